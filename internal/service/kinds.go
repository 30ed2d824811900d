package service

import (
	"context"
	"errors"

	"go-portfolio-cms/internal/lifecycle"
	"go-portfolio-cms/internal/model"
)

// LifecycleKinds is the restore/purge dispatch table for every archivable
// type. files may be nil, in which case purges leave stored files alone.
func LifecycleKinds(files *FileService) []lifecycle.Kind {
	articleOpts := []lifecycle.KindOption[model.Article, *model.Article]{}
	avatarOpts := []lifecycle.KindOption[model.Avatar, *model.Avatar]{}

	if files != nil {
		articleOpts = append(articleOpts, lifecycle.WithAfterPurge[model.Article](func(ctx context.Context, a *model.Article) error {
			return errors.Join(
				files.removeReferenced(ctx, FileKindCovers, a.Cover),
				files.removeReferenced(ctx, FileKindPDFs, a.PDFFilename),
			)
		}))
		avatarOpts = append(avatarOpts, lifecycle.WithAfterPurge[model.Avatar](func(ctx context.Context, a *model.Avatar) error {
			return files.removeReferenced(ctx, FileKindAvatars, a.Filename)
		}))
	}

	return []lifecycle.Kind{
		lifecycle.NewKind[model.Article](model.KindArticle, model.ErrArticleNotFound, articleOpts...),
		lifecycle.NewKind[model.Skill](model.KindSkill, model.ErrSkillNotFound),
		lifecycle.NewKind[model.Contact](model.KindContact, model.ErrContactNotFound),
		lifecycle.NewKind[model.Avatar](model.KindAvatar, model.ErrAvatarNotFound, avatarOpts...),
	}
}

package service

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"go-portfolio-cms/internal/event"
	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/repository"
)

// ContentService is the admin CRUD surface shared by articles, skills and
// contacts. Deletes never remove rows; they go through the recycle bin.
type ContentService[T any, R any, P interface {
	*T
	model.Archivable
}] struct {
	repo  *repository.ContentRepository[T]
	bin   *RecycleBinService
	bus   event.Bus
	kind  string
	apply func(record *T, req R)
}

type (
	ArticleService = ContentService[model.Article, model.ArticleRequest, *model.Article]
	SkillService   = ContentService[model.Skill, model.SkillRequest, *model.Skill]
	ContactService = ContentService[model.Contact, model.ContactRequest, *model.Contact]
)

func NewArticleService(repo *repository.ContentRepository[model.Article], bin *RecycleBinService, bus event.Bus) *ArticleService {
	return &ArticleService{repo: repo, bin: bin, bus: bus, kind: model.KindArticle, apply: applyArticle}
}

func NewSkillService(repo *repository.ContentRepository[model.Skill], bin *RecycleBinService, bus event.Bus) *SkillService {
	return &SkillService{repo: repo, bin: bin, bus: bus, kind: model.KindSkill, apply: applySkill}
}

func NewContactService(repo *repository.ContentRepository[model.Contact], bin *RecycleBinService, bus event.Bus) *ContactService {
	return &ContactService{repo: repo, bin: bin, bus: bus, kind: model.KindContact, apply: applyContact}
}

func (s *ContentService[T, R, P]) List(ctx context.Context, page int, limit int, scopes ...repository.Scope) ([]T, *model.Meta, error) {
	page, limit = repository.NormalizePage(page, limit)
	records, total, err := s.repo.List(ctx, page, limit, scopes...)
	if err != nil {
		return nil, nil, err
	}
	return records, model.NewMeta(page, limit, total), nil
}

func (s *ContentService[T, R, P]) Get(ctx context.Context, id uint) (T, error) {
	return s.repo.Get(ctx, id)
}

func (s *ContentService[T, R, P]) Create(ctx context.Context, req R) (T, error) {
	var record T
	if err := validateRequest(req); err != nil {
		return record, err
	}

	s.apply(&record, req)
	if err := s.repo.Create(ctx, &record); err != nil {
		return record, err
	}

	s.publishSaved(P(&record).ArchiveID(), "created")
	return record, nil
}

func (s *ContentService[T, R, P]) Update(ctx context.Context, id uint, req R) (T, error) {
	if err := validateRequest(req); err != nil {
		var zero T
		return zero, err
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return record, err
	}

	s.apply(&record, req)
	if err := s.repo.Save(ctx, &record); err != nil {
		return record, err
	}

	s.publishSaved(id, "updated")
	return record, nil
}

func (s *ContentService[T, R, P]) Delete(ctx context.Context, id uint) error {
	return s.bin.Archive(ctx, s.kind, id)
}

func (s *ContentService[T, R, P]) publishSaved(id uint, action string) {
	event.Publish(s.bus, event.New(event.TypeContentSaved, map[string]any{
		"data_type": s.kind,
		"data_id":   id,
		"action":    action,
	}))
}

// ArticleScopes turns the public listing filter into query scopes. Tags are
// stored comma separated, so the tag filter is a case-insensitive substring
// match.
func ArticleScopes(filter model.ArticleFilter) []repository.Scope {
	var scopes []repository.Scope
	if category := strings.TrimSpace(filter.Category); category != "" {
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Where("category = ?", category)
		})
	}
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Where("LOWER(tags) LIKE ?", "%"+tag+"%")
		})
	}
	return scopes
}

func applyArticle(a *model.Article, req model.ArticleRequest) {
	a.Title = strings.TrimSpace(req.Title)
	a.Category = strings.TrimSpace(req.Category)
	a.Tags = normalizeTags(req.Tags)
	a.Cover = strings.TrimSpace(req.Cover)
	a.Summary = req.Summary
	a.Content = req.Content
	a.ContentType = req.ContentType
	if a.ContentType == "" {
		a.ContentType = "markdown"
	}
	a.PDFFilename = strings.TrimSpace(req.PDFFilename)
}

func applySkill(s *model.Skill, req model.SkillRequest) {
	s.Name = strings.TrimSpace(req.Name)
	s.Description = req.Description
	s.Level = req.Level
}

func applyContact(c *model.Contact, req model.ContactRequest) {
	c.Type = strings.TrimSpace(req.Type)
	c.Value = strings.TrimSpace(req.Value)
}

func normalizeTags(raw string) string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return strings.Join(tags, ",")
}

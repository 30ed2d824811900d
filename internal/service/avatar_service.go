package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"go-portfolio-cms/internal/event"
	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/repository"
)

// AvatarService keeps at most one live avatar flagged current. Every toggle
// clears the flag and sets it again inside a single transaction.
type AvatarService struct {
	db      *gorm.DB
	avatars *repository.AvatarRepository
	files   *FileService
	bin     *RecycleBinService
	bus     event.Bus
}

func NewAvatarService(db *gorm.DB, avatars *repository.AvatarRepository, files *FileService, bin *RecycleBinService, bus event.Bus) *AvatarService {
	return &AvatarService{db: db, avatars: avatars, files: files, bin: bin, bus: bus}
}

// Upload stores the image and makes it the current avatar.
func (s *AvatarService) Upload(ctx context.Context, originalName string, r io.Reader, croppedInfo string) (model.Avatar, error) {
	upload, err := s.files.Upload(ctx, FileKindAvatars, originalName, r)
	if err != nil {
		return model.Avatar{}, err
	}

	avatar := model.Avatar{
		Filename:    upload.Filename,
		IsCurrent:   true,
		CroppedInfo: strings.TrimSpace(croppedInfo),
		UploadedAt:  time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		avatars := s.avatars.WithTx(tx)
		if err := avatars.LockLive(ctx); err != nil {
			return err
		}
		if err := avatars.ClearCurrent(ctx); err != nil {
			return err
		}
		return avatars.Create(ctx, &avatar)
	})
	if err != nil {
		if cleanupErr := s.files.Delete(ctx, FileKindAvatars, upload.Filename); cleanupErr != nil {
			slog.Warn("failed to remove orphaned avatar file", "filename", upload.Filename, "error", cleanupErr)
		}
		return model.Avatar{}, err
	}

	s.publish(avatar.ID)
	return avatar, nil
}

// SetCurrent flags id as current. Concurrent callers serialise on the row
// locks and the last commit wins.
func (s *AvatarService) SetCurrent(ctx context.Context, id uint) (model.Avatar, error) {
	var avatar model.Avatar
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		avatars := s.avatars.WithTx(tx)
		if err := avatars.LockLive(ctx); err != nil {
			return err
		}

		found, err := avatars.Get(ctx, id)
		if err != nil {
			return err
		}

		if err := avatars.ClearCurrent(ctx); err != nil {
			return err
		}
		if err := avatars.MarkCurrent(ctx, id); err != nil {
			return err
		}

		found.IsCurrent = true
		avatar = found
		return nil
	})
	if err != nil {
		return model.Avatar{}, err
	}

	s.publish(avatar.ID)
	return avatar, nil
}

func (s *AvatarService) List(ctx context.Context) ([]model.Avatar, error) {
	return s.avatars.List(ctx)
}

func (s *AvatarService) Current(ctx context.Context) (model.Avatar, error) {
	return s.avatars.Current(ctx)
}

// Delete sends the avatar to the recycle bin. The file stays on disk until
// the entry is purged.
func (s *AvatarService) Delete(ctx context.Context, id uint) error {
	if err := s.bin.Archive(ctx, model.KindAvatar, id); err != nil {
		return err
	}

	s.publish(id)
	return nil
}

func (s *AvatarService) publish(id uint) {
	event.Publish(s.bus, event.New(event.TypeAvatarsUpdated, map[string]any{"avatar_id": id}))
}

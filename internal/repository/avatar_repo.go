package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-portfolio-cms/internal/model"
)

type AvatarRepository struct {
	db *gorm.DB
}

func NewAvatarRepository(db *gorm.DB) *AvatarRepository {
	return &AvatarRepository{db: db}
}

func (r *AvatarRepository) WithTx(tx *gorm.DB) *AvatarRepository {
	return &AvatarRepository{db: tx}
}

func (r *AvatarRepository) Create(ctx context.Context, avatar *model.Avatar) error {
	if err := r.db.WithContext(ctx).Create(avatar).Error; err != nil {
		return fmt.Errorf("create avatar: %w", err)
	}
	return nil
}

// currentAvatarLockKey names the Postgres advisory lock guarding the current
// flag.
const currentAvatarLockKey int64 = 0x61766174

// LockLive serialises current-avatar toggles for the rest of the
// transaction. On Postgres it takes a transaction-scoped advisory lock, which
// also holds when no live avatar exists yet to lock. Other dialects fall back
// to row locks; SQLite serialises writers on its own.
func (r *AvatarRepository) LockLive(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("SELECT pg_advisory_xact_lock(?)", currentAvatarLockKey).Error; err != nil {
			return fmt.Errorf("lock current avatar: %w", err)
		}
		return nil
	}

	var ids []uint
	err := db.Model(&model.Avatar{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("lock avatars: %w", err)
	}
	return nil
}

func (r *AvatarRepository) ClearCurrent(ctx context.Context) error {
	err := r.db.WithContext(ctx).Model(&model.Avatar{}).
		Where("is_current = ?", true).
		UpdateColumn("is_current", false).Error
	if err != nil {
		return fmt.Errorf("clear current avatar: %w", err)
	}
	return nil
}

func (r *AvatarRepository) MarkCurrent(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&model.Avatar{}).
		Where("id = ?", id).
		UpdateColumn("is_current", true)
	if result.Error != nil {
		return fmt.Errorf("mark current avatar: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrAvatarNotFound
	}
	return nil
}

func (r *AvatarRepository) Get(ctx context.Context, id uint) (model.Avatar, error) {
	var avatar model.Avatar
	err := r.db.WithContext(ctx).First(&avatar, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Avatar{}, model.ErrAvatarNotFound
	}
	if err != nil {
		return model.Avatar{}, fmt.Errorf("get avatar: %w", err)
	}
	return avatar, nil
}

func (r *AvatarRepository) Current(ctx context.Context) (model.Avatar, error) {
	var avatar model.Avatar
	err := r.db.WithContext(ctx).Where("is_current = ?", true).
		Order("uploaded_at DESC").First(&avatar).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Avatar{}, model.ErrAvatarNotFound
	}
	if err != nil {
		return model.Avatar{}, fmt.Errorf("get current avatar: %w", err)
	}
	return avatar, nil
}

func (r *AvatarRepository) List(ctx context.Context) ([]model.Avatar, error) {
	avatars := make([]model.Avatar, 0)
	if err := r.db.WithContext(ctx).Order("uploaded_at DESC").Order("id DESC").Find(&avatars).Error; err != nil {
		return nil, fmt.Errorf("list avatars: %w", err)
	}
	return avatars, nil
}

func (r *AvatarRepository) CountCurrent(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Avatar{}).Where("is_current = ?", true).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count current avatars: %w", err)
	}
	return count, nil
}

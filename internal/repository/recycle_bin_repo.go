package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-portfolio-cms/internal/model"
)

type RecycleBinRepository struct {
	db *gorm.DB
}

func NewRecycleBinRepository(db *gorm.DB) *RecycleBinRepository {
	return &RecycleBinRepository{db: db}
}

// WithTx binds the repository to an open transaction.
func (r *RecycleBinRepository) WithTx(tx *gorm.DB) *RecycleBinRepository {
	return &RecycleBinRepository{db: tx}
}

// Put stores entry as the only live entry for its (data_type, data_id),
// replacing any earlier snapshot of the same record.
func (r *RecycleBinRepository) Put(ctx context.Context, entry *model.RecycleBinEntry) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("data_type = ? AND data_id = ?", entry.DataType, entry.DataID).
		Delete(&model.RecycleBinEntry{}).Error; err != nil {
		return fmt.Errorf("supersede recycle bin entry: %w", err)
	}

	if err := db.Create(entry).Error; err != nil {
		return fmt.Errorf("create recycle bin entry: %w", err)
	}

	return nil
}

func (r *RecycleBinRepository) Get(ctx context.Context, id uint) (model.RecycleBinEntry, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate locks the entry row until the surrounding transaction ends.
func (r *RecycleBinRepository) GetForUpdate(ctx context.Context, id uint) (model.RecycleBinEntry, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *RecycleBinRepository) get(db *gorm.DB, id uint) (model.RecycleBinEntry, error) {
	var entry model.RecycleBinEntry
	err := db.First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.RecycleBinEntry{}, model.ErrEntryNotFound
	}
	if err != nil {
		return model.RecycleBinEntry{}, fmt.Errorf("get recycle bin entry: %w", err)
	}

	return entry, nil
}

func (r *RecycleBinRepository) FindBySubject(ctx context.Context, dataType string, dataID uint) (model.RecycleBinEntry, error) {
	var entry model.RecycleBinEntry
	err := r.db.WithContext(ctx).
		Where("data_type = ? AND data_id = ?", dataType, dataID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.RecycleBinEntry{}, model.ErrEntryNotFound
	}
	if err != nil {
		return model.RecycleBinEntry{}, fmt.Errorf("find recycle bin entry: %w", err)
	}

	return entry, nil
}

func (r *RecycleBinRepository) List(ctx context.Context, filter model.RecycleBinFilter) ([]model.RecycleBinEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.RecycleBinEntry{})
	if filter.DataType != "" {
		query = query.Where("data_type = ?", filter.DataType)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count recycle bin: %w", err)
	}

	entries := make([]model.RecycleBinEntry, 0)
	err := query.Scopes(paginate(filter.Page, filter.Limit)).
		Order("deleted_at DESC").Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list recycle bin: %w", err)
	}

	return entries, total, nil
}

// ListExpired returns entries archived strictly before cutoff, oldest first.
func (r *RecycleBinRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]model.RecycleBinEntry, error) {
	entries := make([]model.RecycleBinEntry, 0)
	err := r.db.WithContext(ctx).
		Where("deleted_at < ?", cutoff).
		Order("deleted_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list expired entries: %w", err)
	}

	return entries, nil
}

func (r *RecycleBinRepository) ListAll(ctx context.Context) ([]model.RecycleBinEntry, error) {
	entries := make([]model.RecycleBinEntry, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list recycle bin: %w", err)
	}

	return entries, nil
}

func (r *RecycleBinRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.RecycleBinEntry{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete recycle bin entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrEntryNotFound
	}

	return nil
}

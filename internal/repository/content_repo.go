package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Scope narrows a content listing.
type Scope = func(*gorm.DB) *gorm.DB

// ContentRepository is the CRUD store shared by articles, skills and
// contacts. Soft-deleted rows are invisible to every method.
type ContentRepository[T any] struct {
	db       *gorm.DB
	notFound error
	order    string
}

func NewContentRepository[T any](db *gorm.DB, notFound error, order string) *ContentRepository[T] {
	if order == "" {
		order = "id DESC"
	}
	return &ContentRepository[T]{db: db, notFound: notFound, order: order}
}

func (r *ContentRepository[T]) Create(ctx context.Context, record *T) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// Save updates every column of a live record. Selecting "*" keeps GORM from
// falling back to an upsert, which would revive a row tombstoned meanwhile.
func (r *ContentRepository[T]) Save(ctx context.Context, record *T) error {
	result := r.db.WithContext(ctx).Select("*").Save(record)
	if result.Error != nil {
		return fmt.Errorf("save record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.notFound
	}
	return nil
}

func (r *ContentRepository[T]) Get(ctx context.Context, id uint) (T, error) {
	var record T
	err := r.db.WithContext(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return record, r.notFound
	}
	if err != nil {
		return record, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

func (r *ContentRepository[T]) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check record: %w", err)
	}
	return count > 0, nil
}

func (r *ContentRepository[T]) List(ctx context.Context, page int, limit int, scopes ...Scope) ([]T, int64, error) {
	query := r.db.WithContext(ctx).Model(new(T)).Scopes(scopes...).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	records := make([]T, 0)
	if err := query.Scopes(paginate(page, limit)).Order(r.order).Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}

	return records, total, nil
}

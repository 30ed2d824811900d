package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"go-portfolio-cms/internal/model"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// CountRecent counts comments from ip on article created in [since, until).
// Rows stamped in the future by a skewed clock do not count.
func (r *CommentRepository) CountRecent(ctx context.Context, articleID uint, ip string, since time.Time, until time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).
		Where("article_id = ? AND ip_address = ? AND created_at >= ? AND created_at < ?", articleID, ip, since, until).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count recent comments: %w", err)
	}

	return count, nil
}

func (r *CommentRepository) Get(ctx context.Context, id uint) (model.Comment, error) {
	var comment model.Comment
	err := r.db.WithContext(ctx).First(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Comment{}, model.ErrCommentNotFound
	}
	if err != nil {
		return model.Comment{}, fmt.Errorf("get comment: %w", err)
	}

	return comment, nil
}

// List applies filter and returns one page plus the total match count. A
// zero Limit returns every match.
func (r *CommentRepository) List(ctx context.Context, filter model.CommentFilter) ([]model.Comment, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Comment{})
	if filter.ArticleID != 0 {
		query = query.Where("article_id = ?", filter.ArticleID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where(
			"(LOWER(author) LIKE ? ESCAPE '\\' OR LOWER(content) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\')",
			like, like, like,
		)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	comments := make([]model.Comment, 0)
	err := query.Scopes(paginate(filter.Page, filter.Limit)).
		Order("created_at DESC").Order("id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}

	return comments, total, nil
}

func (r *CommentRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).Model(&model.Comment{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("update comment status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrCommentNotFound
	}

	return nil
}

// Delete removes the comment row permanently.
func (r *CommentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.Comment{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrCommentNotFound
	}

	return nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

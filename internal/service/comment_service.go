package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go-portfolio-cms/internal/event"
	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/repository"
	"go-portfolio-cms/pkg/apierror"
)

type articleLookup interface {
	Exists(ctx context.Context, id uint) (bool, error)
}

// CommentSubmission is everything the transport layer knows about a public
// comment write.
type CommentSubmission struct {
	ArticleID uint
	Request   model.CommentCreateRequest
	IP        string
	UserAgent string
	IsAdmin   bool
}

type CommentService struct {
	comments *repository.CommentRepository
	articles articleLookup
	limiter  *CommentRateLimiter
	bus      event.Bus
}

func NewCommentService(comments *repository.CommentRepository, articles articleLookup, limiter *CommentRateLimiter, bus event.Bus) *CommentService {
	return &CommentService{comments: comments, articles: articles, limiter: limiter, bus: bus}
}

// Submit admits a public comment. The limiter runs before any row is written.
func (s *CommentService) Submit(ctx context.Context, sub CommentSubmission) (model.Comment, error) {
	req := sub.Request
	req.Author = strings.TrimSpace(req.Author)
	req.Email = strings.TrimSpace(req.Email)
	req.Content = strings.TrimSpace(req.Content)
	if err := validateRequest(req); err != nil {
		return model.Comment{}, err
	}

	exists, err := s.articles.Exists(ctx, sub.ArticleID)
	if err != nil {
		return model.Comment{}, err
	}
	if !exists {
		return model.Comment{}, model.ErrArticleNotFound
	}

	decision := s.limiter.Decide(ctx, sub.ArticleID, sub.IP, sub.IsAdmin)
	if !decision.Allowed {
		return model.Comment{}, apierror.RateLimited(model.ErrRateLimited, decision.Reason)
	}

	comment := model.Comment{
		ArticleID: sub.ArticleID,
		Author:    req.Author,
		Email:     req.Email,
		Content:   req.Content,
		IPAddress: sub.IP,
		UserAgent: truncate(sub.UserAgent, 255),
		Status:    model.CommentStatusNormal,
	}
	if err := s.comments.Create(ctx, &comment); err != nil {
		return model.Comment{}, err
	}

	event.Publish(s.bus, event.New(event.TypeCommentCreated, map[string]any{
		"comment_id": comment.ID,
		"article_id": comment.ArticleID,
	}))

	return comment, nil
}

// ListPublic returns the visible comments of one article, newest first.
func (s *CommentService) ListPublic(ctx context.Context, articleID uint, page int, limit int) ([]model.Comment, *model.Meta, error) {
	exists, err := s.articles.Exists(ctx, articleID)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, model.ErrArticleNotFound
	}

	comments, meta, err := s.List(ctx, model.CommentFilter{
		ArticleID: articleID,
		Status:    model.CommentStatusNormal,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return nil, nil, err
	}

	for i := range comments {
		comments[i].Email = ""
		comments[i].IPAddress = ""
		comments[i].UserAgent = ""
	}

	return comments, meta, nil
}

func (s *CommentService) List(ctx context.Context, filter model.CommentFilter) ([]model.Comment, *model.Meta, error) {
	if filter.Status != "" && !model.ValidCommentStatus(filter.Status) {
		return nil, nil, apierror.Validation("invalid status filter", filter.Status)
	}

	filter.Page, filter.Limit = repository.NormalizePage(filter.Page, filter.Limit)
	comments, total, err := s.comments.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	return comments, model.NewMeta(filter.Page, filter.Limit, total), nil
}

func (s *CommentService) UpdateStatus(ctx context.Context, id uint, req model.CommentStatusRequest) (model.Comment, error) {
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := validateRequest(req); err != nil {
		return model.Comment{}, err
	}

	if err := s.comments.UpdateStatus(ctx, id, req.Status); err != nil {
		return model.Comment{}, err
	}

	comment, err := s.comments.Get(ctx, id)
	if err != nil {
		return model.Comment{}, err
	}

	event.Publish(s.bus, event.New(event.TypeCommentModified, map[string]any{
		"comment_id": comment.ID,
		"status":     comment.Status,
	}))

	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, id uint) error {
	if err := s.comments.Delete(ctx, id); err != nil {
		return err
	}

	event.Publish(s.bus, event.New(event.TypeCommentDeleted, map[string]any{"comment_id": id}))
	return nil
}

var csvHeader = []string{"ID", "Article ID", "Author", "Email", "Content", "IP Address", "Status", "Created At", "Updated At"}

// ExportCSV writes every comment matching filter, ignoring pagination.
func (s *CommentService) ExportCSV(ctx context.Context, filter model.CommentFilter, w io.Writer) error {
	if filter.Status != "" && !model.ValidCommentStatus(filter.Status) {
		return apierror.Validation("invalid status filter", filter.Status)
	}

	filter.Page, filter.Limit = 1, 0
	comments, _, err := s.comments.List(ctx, filter)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, c := range comments {
		row := []string{
			strconv.FormatUint(uint64(c.ID), 10),
			strconv.FormatUint(uint64(c.ArticleID), 10),
			c.Author,
			c.Email,
			c.Content,
			c.IPAddress,
			c.Status,
			c.CreatedAt.UTC().Format(time.DateTime),
			c.UpdatedAt.UTC().Format(time.DateTime),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func (s *CommentService) LimitInfo() model.CommentLimitInfo {
	return s.limiter.Info()
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

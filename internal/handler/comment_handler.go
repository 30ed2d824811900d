package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-portfolio-cms/internal/middleware"
	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/service"
)

type commentService interface {
	Submit(ctx context.Context, sub service.CommentSubmission) (model.Comment, error)
	ListPublic(ctx context.Context, articleID uint, page int, limit int) ([]model.Comment, *model.Meta, error)
	List(ctx context.Context, filter model.CommentFilter) ([]model.Comment, *model.Meta, error)
	UpdateStatus(ctx context.Context, id uint, req model.CommentStatusRequest) (model.Comment, error)
	Delete(ctx context.Context, id uint) error
	ExportCSV(ctx context.Context, filter model.CommentFilter, w io.Writer) error
	LimitInfo() model.CommentLimitInfo
}

type CommentHandler struct {
	comments commentService
}

func NewCommentHandler(comments commentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

func (h *CommentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	articleID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.CommentCreateRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.comments.Submit(r.Context(), service.CommentSubmission{
		ArticleID: articleID,
		Request:   payload,
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		IsAdmin:   middleware.IsAdmin(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, comment, nil)
}

func (h *CommentHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	articleID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	page, limit := pageParams(r)
	comments, meta, err := h.comments.ListPublic(r.Context(), articleID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, comments, meta)
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	comments, meta, err := h.comments.List(r.Context(), commentFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, comments, meta)
}

func (h *CommentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.CommentStatusRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.comments.UpdateStatus(r.Context(), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, comment, nil)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.comments.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": id}, nil)
}

// Export streams every matching comment as CSV. Pagination parameters are
// ignored.
func (h *CommentHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter := commentFilter(r)
	filter.Page, filter.Limit = 0, 0

	filename := "comments_" + time.Now().UTC().Format("20060102_150405") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.comments.ExportCSV(r.Context(), filter, w); err != nil {
		writeError(w, err)
	}
}

func (h *CommentHandler) Limits(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.comments.LimitInfo(), nil)
}

func commentFilter(r *http.Request) model.CommentFilter {
	query := r.URL.Query()
	page, limit := pageParams(r)

	filter := model.CommentFilter{
		Status: strings.ToLower(strings.TrimSpace(query.Get("status"))),
		Search: strings.TrimSpace(query.Get("search")),
		Page:   page,
		Limit:  limit,
	}
	if raw := strings.TrimSpace(query.Get("article_id")); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.ArticleID = uint(id)
		}
	}

	return filter
}

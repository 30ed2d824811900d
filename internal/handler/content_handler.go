package handler

import (
	"context"
	"net/http"
	"strings"

	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/repository"
	"go-portfolio-cms/internal/service"
)

type contentService[T any, R any] interface {
	List(ctx context.Context, page int, limit int, scopes ...repository.Scope) ([]T, *model.Meta, error)
	Get(ctx context.Context, id uint) (T, error)
	Create(ctx context.Context, req R) (T, error)
	Update(ctx context.Context, id uint, req R) (T, error)
	Delete(ctx context.Context, id uint) error
}

// ContentHandler serves the public listing and admin editing of one content
// type. Deletes go to the recycle bin through the service.
type ContentHandler[T any, R any] struct {
	service contentService[T, R]
	scopes  func(r *http.Request) []repository.Scope
}

func NewArticleHandler(articles *service.ArticleService) *ContentHandler[model.Article, model.ArticleRequest] {
	return &ContentHandler[model.Article, model.ArticleRequest]{
		service: articles,
		scopes: func(r *http.Request) []repository.Scope {
			query := r.URL.Query()
			return service.ArticleScopes(model.ArticleFilter{
				Category: strings.TrimSpace(query.Get("category")),
				Tag:      strings.TrimSpace(query.Get("tag")),
			})
		},
	}
}

func NewSkillHandler(skills *service.SkillService) *ContentHandler[model.Skill, model.SkillRequest] {
	return &ContentHandler[model.Skill, model.SkillRequest]{service: skills}
}

func NewContactHandler(contacts *service.ContactService) *ContentHandler[model.Contact, model.ContactRequest] {
	return &ContentHandler[model.Contact, model.ContactRequest]{service: contacts}
}

func (h *ContentHandler[T, R]) List(w http.ResponseWriter, r *http.Request) {
	var scopes []repository.Scope
	if h.scopes != nil {
		scopes = h.scopes(r)
	}

	page, limit := pageParams(r)
	items, meta, err := h.service.List(r.Context(), page, limit, scopes...)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, meta)
}

func (h *ContentHandler[T, R]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, item, nil)
}

func (h *ContentHandler[T, R]) Create(w http.ResponseWriter, r *http.Request) {
	var payload R
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.service.Create(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, item, nil)
}

func (h *ContentHandler[T, R]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload R
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.service.Update(r.Context(), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, item, nil)
}

func (h *ContentHandler[T, R]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": id}, nil)
}

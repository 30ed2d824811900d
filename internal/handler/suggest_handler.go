package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/suggest"
	"go-portfolio-cms/pkg/apierror"
)

type suggester interface {
	Suggest(ctx context.Context, title string, content string) (model.Suggestion, error)
}

type SuggestHandler struct {
	client suggester
}

// NewSuggestHandler accepts a nil client; requests then fail with 503.
func NewSuggestHandler(client suggester) *SuggestHandler {
	return &SuggestHandler{client: client}
}

func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var payload model.SuggestRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	payload.Title = strings.TrimSpace(payload.Title)
	payload.Content = strings.TrimSpace(payload.Content)
	if payload.Title == "" || payload.Content == "" {
		writeError(w, apierror.Validation("title and content are required", "title, content"))
		return
	}

	if h.client == nil {
		writeError(w, suggest.ErrUnavailable)
		return
	}

	suggestion, err := h.client.Suggest(r.Context(), payload.Title, payload.Content)
	if err != nil {
		if errors.Is(err, suggest.ErrUnavailable) {
			writeError(w, err)
			return
		}
		writeError(w, apierror.Wrap(err, "SUGGESTION_FAILED", "suggestion service failed", err.Error(), http.StatusBadGateway))
		return
	}

	writeSuccess(w, http.StatusOK, suggestion, nil)
}

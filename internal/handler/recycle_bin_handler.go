package handler

import (
	"context"
	"net/http"
	"strings"

	"go-portfolio-cms/internal/model"
)

type recycleBin interface {
	List(ctx context.Context, filter model.RecycleBinFilter) ([]model.RecycleBinEntry, *model.Meta, error)
	Restore(ctx context.Context, entryID uint) (model.RestoreResult, error)
	Purge(ctx context.Context, entryID uint) error
	Clear(ctx context.Context) (int, error)
}

type RecycleBinHandler struct {
	bin recycleBin
}

func NewRecycleBinHandler(bin recycleBin) *RecycleBinHandler {
	return &RecycleBinHandler{bin: bin}
}

func (h *RecycleBinHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	entries, meta, err := h.bin.List(r.Context(), model.RecycleBinFilter{
		DataType: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entries, meta)
}

func (h *RecycleBinHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.bin.Restore(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *RecycleBinHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.bin.Purge(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"purged": id}, nil)
}

func (h *RecycleBinHandler) Clear(w http.ResponseWriter, r *http.Request) {
	count, err := h.bin.Clear(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]int{"purged": count}, nil)
}

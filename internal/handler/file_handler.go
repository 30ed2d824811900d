package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-portfolio-cms/internal/model"
)

type fileService interface {
	Upload(ctx context.Context, kind string, originalName string, r io.Reader) (model.UploadResult, error)
	Delete(ctx context.Context, kind string, filename string) error
	Open(kind string, filename string) (*os.File, os.FileInfo, string, error)
}

type FileHandler struct {
	files         fileService
	maxUploadSize int64
}

func NewFileHandler(files fileService, maxUploadSize int64) *FileHandler {
	return &FileHandler{files: files, maxUploadSize: maxUploadSize}
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, filename, _, err := readUpload(w, r, h.maxUploadSize)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	result, err := h.files.Upload(r.Context(), chi.URLParam(r, "kind"), filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, result, nil)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	filename := chi.URLParam(r, "filename")

	if err := h.files.Delete(r.Context(), kind, filename); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"deleted": filename}, nil)
}

// Serve streams a stored file inline. Stored names are random and never
// reused, so responses are cacheable for a long time.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	file, info, contentType, err := h.files.Open(chi.URLParam(r, "kind"), filename)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": filename}))
	w.Header().Set("Cache-Control", "public, max-age=604800, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, filename, info.ModTime(), file)
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/pkg/apierror"
)

type avatarService interface {
	Upload(ctx context.Context, originalName string, r io.Reader, croppedInfo string) (model.Avatar, error)
	SetCurrent(ctx context.Context, id uint) (model.Avatar, error)
	List(ctx context.Context) ([]model.Avatar, error)
	Current(ctx context.Context) (model.Avatar, error)
	Delete(ctx context.Context, id uint) error
}

type AvatarHandler struct {
	avatars       avatarService
	maxUploadSize int64
}

func NewAvatarHandler(avatars avatarService, maxUploadSize int64) *AvatarHandler {
	return &AvatarHandler{avatars: avatars, maxUploadSize: maxUploadSize}
}

func (h *AvatarHandler) List(w http.ResponseWriter, r *http.Request) {
	avatars, err := h.avatars.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, avatars, nil)
}

func (h *AvatarHandler) Current(w http.ResponseWriter, r *http.Request) {
	avatar, err := h.avatars.Current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, avatar, nil)
}

// Upload expects a multipart form with a "file" part and an optional
// "cropped_info" field. The new avatar becomes current.
func (h *AvatarHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, filename, fields, err := readUpload(w, r, h.maxUploadSize, "cropped_info")
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	avatar, err := h.avatars.Upload(r.Context(), filename, file, fields["cropped_info"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, avatar, nil)
}

func (h *AvatarHandler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	avatar, err := h.avatars.SetCurrent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, avatar, nil)
}

func (h *AvatarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.avatars.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": id}, nil)
}

// readUpload parses a multipart body capped at maxBytes plus form overhead
// and returns the "file" part with the requested text fields.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64, fieldNames ...string) (io.ReadCloser, string, map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if isPayloadTooLarge(err) {
			return nil, "", nil, apierror.New("PAYLOAD_TOO_LARGE", "request body exceeds MAX_CONTENT_LENGTH", "MAX_CONTENT_LENGTH", http.StatusRequestEntityTooLarge)
		}
		return nil, "", nil, apierror.New("BAD_REQUEST", "invalid multipart body", err.Error(), http.StatusBadRequest)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", nil, apierror.Validation("file is required", "file")
	}
	if strings.TrimSpace(header.Filename) == "" {
		_ = file.Close()
		return nil, "", nil, apierror.Validation("file name is required", "file")
	}

	fields := make(map[string]string, len(fieldNames))
	for _, name := range fieldNames {
		fields[name] = strings.TrimSpace(r.FormValue(name))
	}

	return file, header.Filename, fields, nil
}

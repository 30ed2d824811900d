package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/suggest"
	"go-portfolio-cms/pkg/apierror"
)

// sentinelStatus maps a domain error onto its HTTP status. An empty message
// means the error text itself is shown to the client.
type sentinelStatus struct {
	target  error
	status  int
	code    string
	message string
	details bool
}

// Order matters: the first sentinel matched by errors.Is wins.
var sentinelStatuses = []sentinelStatus{
	{target: model.ErrUnknownDataType, status: http.StatusBadRequest, code: "UNKNOWN_DATA_TYPE", message: "Unknown data type", details: true},
	{target: model.ErrRestoreConflict, status: http.StatusConflict, code: "RESTORE_CONFLICT", message: "A live record with this id already exists"},
	{target: model.ErrRateLimited, status: http.StatusTooManyRequests, code: "RATE_LIMITED", message: "Too many requests"},
	{target: model.ErrEntryNotFound, status: http.StatusNotFound, code: "NOT_FOUND", message: "Recycle bin entry not found"},
	{target: model.ErrArticleNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
	{target: model.ErrSkillNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
	{target: model.ErrContactNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
	{target: model.ErrAvatarNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
	{target: model.ErrCommentNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
	{target: model.ErrFileNotFound, status: http.StatusNotFound, code: "NOT_FOUND", message: "File not found"},
	{target: os.ErrNotExist, status: http.StatusNotFound, code: "NOT_FOUND", message: "File not found"},
	{target: model.ErrUnsafeFilename, status: http.StatusBadRequest, code: "BAD_REQUEST", message: "Unsafe filename"},
	{target: model.ErrInvalidCredentials, status: http.StatusUnauthorized, code: "UNAUTHORIZED", message: "Invalid credentials"},
	{target: model.ErrUnauthorized, status: http.StatusUnauthorized, code: "UNAUTHORIZED", message: "Authentication required"},
	{target: model.ErrForbidden, status: http.StatusForbidden, code: "FORBIDDEN", message: "Access denied"},
	{target: suggest.ErrUnavailable, status: http.StatusServiceUnavailable, code: "SUGGESTION_UNAVAILABLE", message: "Suggestion service is not configured"},
	{target: model.ErrInvalidInput, status: http.StatusBadRequest, code: "BAD_REQUEST", message: "Invalid input", details: true},
}

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	writeEnvelope(w, status, model.APIResponse{Success: true, Data: data, Meta: meta})
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	writeEnvelope(w, status, model.APIResponse{Error: body})
}

func classify(err error) (int, *model.APIError) {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus, &model.APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details}
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, &model.APIError{
			Code:    "PAYLOAD_TOO_LARGE",
			Message: "request body exceeds MAX_CONTENT_LENGTH",
		}
	}

	for _, s := range sentinelStatuses {
		if !errors.Is(err, s.target) {
			continue
		}
		body := &model.APIError{Code: s.code, Message: s.message}
		if body.Message == "" {
			body.Message = capitalize(s.target.Error())
		}
		if s.details {
			body.Details = err.Error()
		}
		return s.status, body
	}

	slog.Error("unhandled error in writeError", "error", err.Error())
	return http.StatusInternalServerError, &model.APIError{Code: "INTERNAL_ERROR", Message: "Unexpected server error"}
}

func writeEnvelope(w http.ResponseWriter, status int, resp model.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

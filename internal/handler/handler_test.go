package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-portfolio-cms/internal/middleware"
	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/service"
	"go-portfolio-cms/internal/storage"
)

type fakeComments struct {
	submitted service.CommentSubmission
	filter    model.CommentFilter
	submitErr error
}

func (f *fakeComments) Submit(_ context.Context, sub service.CommentSubmission) (model.Comment, error) {
	f.submitted = sub
	if f.submitErr != nil {
		return model.Comment{}, f.submitErr
	}
	return model.Comment{ID: 1, ArticleID: sub.ArticleID, Author: sub.Request.Author}, nil
}

func (f *fakeComments) ListPublic(context.Context, uint, int, int) ([]model.Comment, *model.Meta, error) {
	return []model.Comment{}, model.NewMeta(1, 20, 0), nil
}

func (f *fakeComments) List(_ context.Context, filter model.CommentFilter) ([]model.Comment, *model.Meta, error) {
	f.filter = filter
	return []model.Comment{}, model.NewMeta(1, 20, 0), nil
}

func (f *fakeComments) UpdateStatus(_ context.Context, id uint, req model.CommentStatusRequest) (model.Comment, error) {
	return model.Comment{ID: id, Status: req.Status}, nil
}

func (f *fakeComments) Delete(context.Context, uint) error { return nil }

func (f *fakeComments) ExportCSV(_ context.Context, filter model.CommentFilter, w io.Writer) error {
	f.filter = filter
	_, err := io.WriteString(w, "ID,Article ID\n1,7\n")
	return err
}

func (f *fakeComments) LimitInfo() model.CommentLimitInfo {
	return model.CommentLimitInfo{Enabled: true, WindowHours: 24, MaxComments: 3}
}

type fakeValidator struct{}

func (fakeValidator) ValidateToken(token string) (*model.AuthClaims, error) {
	if token != "admin-token" {
		return nil, model.ErrUnauthorized
	}
	return &model.AuthClaims{Username: "admin", Role: model.RoleAdmin}, nil
}

func commentRouter(comments *fakeComments) http.Handler {
	h := NewCommentHandler(comments)
	auth := middleware.NewAuthMiddleware(fakeValidator{})

	r := chi.NewRouter()
	r.With(auth.OptionalAuth).Post("/api/articles/{id}/comments", h.Submit)
	r.Get("/api/admin/comments", h.List)
	r.Get("/api/admin/comments/export", h.Export)
	return r
}

func TestCommentHandler_SubmitPassesClientContext(t *testing.T) {
	comments := &fakeComments{}
	router := commentRouter(comments)

	req := httptest.NewRequest(http.MethodPost, "/api/articles/7/comments", strings.NewReader(`{"author":"Ann","content":"hi"}`))
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 7, comments.submitted.ArticleID)
	assert.Equal(t, "198.51.100.4", comments.submitted.IP)
	assert.Equal(t, "test-agent", comments.submitted.UserAgent)
	assert.True(t, comments.submitted.IsAdmin)
}

func TestCommentHandler_AnonymousAndBadToken(t *testing.T) {
	comments := &fakeComments{}
	router := commentRouter(comments)

	req := httptest.NewRequest(http.MethodPost, "/api/articles/7/comments", strings.NewReader(`{"author":"Ann","content":"hi"}`))
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, comments.submitted.IsAdmin, "an invalid token is treated as anonymous")
}

func TestCommentHandler_SubmitRejectsBadInput(t *testing.T) {
	router := commentRouter(&fakeComments{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/articles/abc/comments", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/articles/7/comments", strings.NewReader(`{not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommentHandler_SubmitRateLimited(t *testing.T) {
	router := commentRouter(&fakeComments{submitErr: model.ErrRateLimited})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/articles/7/comments", strings.NewReader(`{"author":"a","content":"b"}`)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCommentHandler_ListAndExportFilters(t *testing.T) {
	comments := &fakeComments{}
	router := commentRouter(comments)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/comments?status=Hidden&article_id=9&search=spam&page=2&per_page=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.CommentFilter{ArticleID: 9, Status: "hidden", Search: "spam", Page: 2, Limit: 5}, comments.filter)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/comments/export?status=flagged&page=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, 0, comments.filter.Limit, "export ignores pagination")
	assert.Equal(t, "flagged", comments.filter.Status)
	assert.Contains(t, rec.Body.String(), "Article ID")
}

type fakeBin struct {
	restored uint
	err      error
}

func (f *fakeBin) List(_ context.Context, filter model.RecycleBinFilter) ([]model.RecycleBinEntry, *model.Meta, error) {
	return []model.RecycleBinEntry{{ID: 1, DataType: filter.DataType}}, model.NewMeta(1, 20, 1), f.err
}

func (f *fakeBin) Restore(_ context.Context, id uint) (model.RestoreResult, error) {
	f.restored = id
	if f.err != nil {
		return model.RestoreResult{}, f.err
	}
	return model.RestoreResult{DataType: model.KindArticle, DataID: 3}, nil
}

func (f *fakeBin) Purge(context.Context, uint) error { return f.err }

func (f *fakeBin) Clear(context.Context) (int, error) { return 4, f.err }

func binRouter(bin *fakeBin) http.Handler {
	h := NewRecycleBinHandler(bin)
	r := chi.NewRouter()
	r.Get("/bin", h.List)
	r.Post("/bin/{id}/restore", h.Restore)
	r.Delete("/bin/{id}", h.Purge)
	r.Post("/bin/clear", h.Clear)
	return r
}

func TestRecycleBinHandler(t *testing.T) {
	t.Run("restore", func(t *testing.T) {
		bin := &fakeBin{}
		rec := httptest.NewRecorder()
		binRouter(bin).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bin/12/restore", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 12, bin.restored)
	})

	t.Run("restore conflict", func(t *testing.T) {
		rec := httptest.NewRecorder()
		binRouter(&fakeBin{err: model.ErrRestoreConflict}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bin/12/restore", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("purge missing entry", func(t *testing.T) {
		rec := httptest.NewRecorder()
		binRouter(&fakeBin{err: model.ErrEntryNotFound}).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/bin/99", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		binRouter(&fakeBin{}).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/bin/0", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("clear reports count", func(t *testing.T) {
		rec := httptest.NewRecorder()
		binRouter(&fakeBin{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bin/clear", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"purged":4`)
	})

	t.Run("list passes type filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		binRouter(&fakeBin{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bin?type=Article", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"data_type":"article"`)
	})
}

func TestFileHandler_UploadAndServe(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	files := service.NewFileService(store, nil, service.FileServiceConfig{
		ImageExtensions: []string{"png"},
		PDFExtensions:   []string{"pdf"},
		MaxBytes:        1 << 20,
	}, nil, nil)
	h := NewFileHandler(files, 1<<20)

	r := chi.NewRouter()
	r.Post("/api/admin/files/{kind}", h.Upload)
	r.Get("/api/files/{kind}/{filename}", h.Serve)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "paper.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 portfolio"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/files/pdfs", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var envelope struct {
		Data model.UploadResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, strings.HasPrefix(envelope.Data.URL, "/api/files/pdfs/"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, envelope.Data.URL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age")
	assert.Equal(t, "%PDF-1.4 portfolio", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/pdfs/missing.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFileHandler_UploadRequiresFile(t *testing.T) {
	h := NewFileHandler(nil, 1024)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/files/pdfs", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeSuggester struct {
	err error
}

func (f fakeSuggester) Suggest(context.Context, string, string) (model.Suggestion, error) {
	if f.err != nil {
		return model.Suggestion{}, f.err
	}
	return model.Suggestion{Category: "go", Tags: []string{"testing"}}, nil
}

func TestSuggestHandler(t *testing.T) {
	call := func(h *SuggestHandler, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.Suggest(rec, httptest.NewRequest(http.MethodPost, "/api/admin/articles/suggest", strings.NewReader(body)))
		return rec
	}

	rec := call(NewSuggestHandler(fakeSuggester{}), `{"title":"t","content":"c"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"category":"go"`)

	rec = call(NewSuggestHandler(fakeSuggester{err: os.ErrDeadlineExceeded}), `{"title":"t","content":"c"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = call(NewSuggestHandler(nil), `{"title":"t","content":"c"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = call(NewSuggestHandler(fakeSuggester{}), `{"title":" ","content":"c"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

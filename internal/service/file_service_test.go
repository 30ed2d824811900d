package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-portfolio-cms/internal/imaging"
	"go-portfolio-cms/internal/storage"
	"go-portfolio-cms/pkg/apierror"
)

type stubNormalizer struct {
	result imaging.Result
	err    error
	calls  []string
}

func (s *stubNormalizer) Normalize(sourcePath string) (imaging.Result, error) {
	s.calls = append(s.calls, sourcePath)
	if s.result.Path == "" {
		s.result.Path = sourcePath
	}
	return s.result, s.err
}

func newMockFileService(store *storage.MockStore, normalizer imageNormalizer) *FileService {
	return NewFileService(store, normalizer, FileServiceConfig{
		ImageExtensions: []string{"jpg", "png"},
		PDFExtensions:   []string{"pdf"},
		MaxBytes:        1024,
	}, nil, nil)
}

func TestFileService_Upload(t *testing.T) {
	t.Run("pdf is stored without normalization", func(t *testing.T) {
		mockStore := new(storage.MockStore)
		normalizer := &stubNormalizer{}
		svc := newMockFileService(mockStore, normalizer)

		reader := strings.NewReader("%PDF-1.7")
		mockStore.On("Save", reader, "paper.PDF", storage.SubdirArticlePDFs, int64(1024)).
			Return(storage.SavedFile{Filename: "abc123.pdf", Path: "/srv/articles/pdf/abc123.pdf", Size: 8}, nil)

		result, err := svc.Upload(context.Background(), FileKindPDFs, "paper.PDF", reader)

		require.NoError(t, err)
		assert.Equal(t, "abc123.pdf", result.Filename)
		assert.Equal(t, "/api/files/pdfs/abc123.pdf", result.URL)
		assert.Equal(t, "application/pdf", result.ContentType)
		assert.False(t, result.Normalized)
		assert.Empty(t, normalizer.calls)
		mockStore.AssertExpectations(t)
	})

	t.Run("disallowed extension never reaches the store", func(t *testing.T) {
		mockStore := new(storage.MockStore)
		svc := newMockFileService(mockStore, nil)

		_, err := svc.Upload(context.Background(), FileKindAvatars, "shell.php", strings.NewReader("<?php"))

		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
		mockStore.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		mockStore := new(storage.MockStore)
		svc := newMockFileService(mockStore, nil)

		_, err := svc.Upload(context.Background(), "../etc", "a.png", strings.NewReader("x"))
		require.Error(t, err)
		mockStore.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("normalization failure keeps the original", func(t *testing.T) {
		mockStore := new(storage.MockStore)
		normalizer := &stubNormalizer{err: errors.New("corrupt image")}
		svc := newMockFileService(mockStore, normalizer)

		mockStore.On("Save", mock.Anything, "me.png", storage.SubdirAvatars, int64(1024)).
			Return(storage.SavedFile{Filename: "f00d.png", Path: "/srv/avatars/f00d.png", Size: 10}, nil)

		result, err := svc.Upload(context.Background(), FileKindAvatars, "me.png", strings.NewReader("garbage"))

		require.NoError(t, err)
		assert.Equal(t, "f00d.png", result.Filename)
		assert.False(t, result.Normalized)
		assert.Equal(t, []string{"/srv/avatars/f00d.png"}, normalizer.calls)
	})

	t.Run("converted image reports the new name", func(t *testing.T) {
		mockStore := new(storage.MockStore)
		dir := t.TempDir()
		converted := filepath.Join(dir, "f00d.jpg")
		require.NoError(t, os.WriteFile(converted, []byte("jpegbytes"), 0o644))

		normalizer := &stubNormalizer{result: imaging.Result{Path: converted, Converted: true}}
		svc := newMockFileService(mockStore, normalizer)

		mockStore.On("Save", mock.Anything, "me.png", storage.SubdirArticleCovers, int64(1024)).
			Return(storage.SavedFile{Filename: "f00d.png", Path: filepath.Join(dir, "f00d.png"), Size: 10}, nil)

		result, err := svc.Upload(context.Background(), FileKindCovers, "me.png", strings.NewReader("png"))

		require.NoError(t, err)
		assert.Equal(t, "f00d.jpg", result.Filename)
		assert.Equal(t, "/api/files/covers/f00d.jpg", result.URL)
		assert.EqualValues(t, 9, result.Size)
		assert.True(t, result.Normalized)
	})

	t.Run("store errors propagate", func(t *testing.T) {
		mockStore := new(storage.MockStore)
		svc := newMockFileService(mockStore, nil)

		mockStore.On("Save", mock.Anything, "big.pdf", storage.SubdirArticlePDFs, int64(1024)).
			Return(storage.SavedFile{}, apierror.New("PAYLOAD_TOO_LARGE", "too big", "", 413))

		_, err := svc.Upload(context.Background(), FileKindPDFs, "big.pdf", strings.NewReader("x"))
		require.Error(t, err)
	})
}

func TestFileService_Delete(t *testing.T) {
	mockStore := new(storage.MockStore)
	svc := newMockFileService(mockStore, nil)

	mockStore.On("Delete", "abc.jpg", storage.SubdirAvatars).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), FileKindAvatars, "abc.jpg"))
	mockStore.AssertExpectations(t)
}

func TestFileService_RemoveReferencedSkipsNonStoredValues(t *testing.T) {
	mockStore := new(storage.MockStore)
	svc := newMockFileService(mockStore, nil)

	for _, value := range []string{"", "   ", "https://cdn.example.com/x.png", `..\evil.png`, "/abs/path.png"} {
		require.NoError(t, svc.removeReferenced(context.Background(), FileKindCovers, value))
	}

	mockStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestFileService_OpenServesContentType(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	svc := NewFileService(store, nil, FileServiceConfig{PDFExtensions: []string{"pdf"}, MaxBytes: 1024}, nil, nil)
	uploaded, err := svc.Upload(context.Background(), FileKindPDFs, "doc.pdf", strings.NewReader("%PDF-1.4 hello"))
	require.NoError(t, err)

	file, info, contentType, err := svc.Open(FileKindPDFs, uploaded.Filename)
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, "application/pdf", contentType)
	assert.EqualValues(t, len("%PDF-1.4 hello"), info.Size())

	_, _, _, err = svc.Open(FileKindPDFs, "../../etc/passwd")
	require.Error(t, err)
}

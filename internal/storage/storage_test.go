package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/pkg/apierror"
)

var generatedName = regexp.MustCompile(`^[0-9a-f]{32}\.png$`)

func TestStoreLifecycle(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	for _, subdir := range []string{SubdirAvatars, SubdirArticleCovers, SubdirArticlePDFs} {
		info, statErr := os.Stat(filepath.Join(store.RootAbs(), filepath.FromSlash(subdir)))
		require.NoError(t, statErr)
		require.True(t, info.IsDir())
	}

	saved, err := store.Save(strings.NewReader("hello world"), "../../My Photo.PNG", SubdirAvatars, 1024)
	require.NoError(t, err)
	require.Regexp(t, generatedName, saved.Filename)
	require.Equal(t, int64(11), saved.Size)
	require.Equal(t, filepath.Join(store.RootAbs(), "avatars", saved.Filename), saved.Path)

	file, info, err := store.Open(saved.Filename, SubdirAvatars)
	require.NoError(t, err)
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	require.Equal(t, "hello world", string(content))
	require.Equal(t, int64(11), info.Size())

	require.NoError(t, store.Delete(saved.Filename, SubdirAvatars))
	require.NoError(t, store.Delete(saved.Filename, SubdirAvatars), "delete is idempotent")

	_, _, err = store.Open(saved.Filename, SubdirAvatars)
	require.ErrorIs(t, err, model.ErrFileNotFound)
}

func TestStoreNamesAreUnique(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		saved, saveErr := store.Save(strings.NewReader("x"), "same.png", SubdirArticleCovers, 0)
		require.NoError(t, saveErr)
		_, dup := seen[saved.Filename]
		require.False(t, dup)
		seen[saved.Filename] = struct{}{}
	}
}

func TestStoreSaveRejectsOversizedUpload(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(bytes.NewReader(make([]byte, 2048)), "big.pdf", SubdirArticlePDFs, 1024)
	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "PAYLOAD_TOO_LARGE", apiErr.Code)

	entries, err := os.ReadDir(filepath.Join(store.RootAbs(), "articles", "pdf"))
	require.NoError(t, err)
	require.Empty(t, entries, "temp file must be cleaned up")
}

func TestStoreRejectsUnknownSubdir(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Resolve("file.png", "../etc")
	require.Error(t, err)

	_, err = store.Resolve("file.png", "private")
	require.Error(t, err)

	require.Error(t, store.Delete("../../etc/passwd", SubdirAvatars))
}

package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/util"
	"go-portfolio-cms/pkg/apierror"
)

// Logical subdirectories under the upload root.
const (
	SubdirAvatars       = "avatars"
	SubdirArticleCovers = "articles/cover"
	SubdirArticlePDFs   = "articles/pdf"
)

// FileStore is the surface services depend on. *Store implements it and
// MockStore stands in for it in tests.
type FileStore interface {
	Resolve(filename string, subdir string) (string, error)
	Save(r io.Reader, originalName string, subdir string, maxBytes int64) (SavedFile, error)
	Delete(filename string, subdir string) error
	Open(filename string, subdir string) (*os.File, os.FileInfo, error)
}

var _ FileStore = (*Store)(nil)

type SavedFile struct {
	Filename string
	Path     string
	Size     int64
}

// Store is the only way the service touches uploaded bytes. Every path it
// produces is a descendant of the configured root.
type Store struct {
	validator *PathValidator
	subdirs   map[string]struct{}
}

func New(root string, subdirs ...string) (*Store, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if len(subdirs) == 0 {
		subdirs = []string{SubdirAvatars, SubdirArticleCovers, SubdirArticlePDFs}
	}

	allowed := make(map[string]struct{}, len(subdirs))
	for _, subdir := range subdirs {
		base, err := validator.BaseDir(subdir)
		if err != nil {
			return nil, fmt.Errorf("invalid storage subdirectory %q: %w", subdir, err)
		}
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		allowed[subdir] = struct{}{}
	}

	return &Store{validator: validator, subdirs: allowed}, nil
}

func (s *Store) RootAbs() string {
	return s.validator.RootAbs()
}

func (s *Store) Resolve(filename string, subdir string) (string, error) {
	if _, ok := s.subdirs[subdir]; !ok {
		return "", apierror.Validation("unknown storage directory", subdir)
	}

	return s.validator.Resolve(filename, subdir)
}

// GenerateName returns an unguessable filename. The original name only
// contributes its extension.
func GenerateName(originalName string) string {
	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	if ext := util.Extension(originalName); ext != "" {
		name += "." + ext
	}

	return name
}

// Save streams r into subdir under a generated name. Bytes land in a temp
// file first and are renamed into place, so readers never see partial files.
func (s *Store) Save(r io.Reader, originalName string, subdir string, maxBytes int64) (SavedFile, error) {
	filename := GenerateName(originalName)
	target, err := s.Resolve(filename, subdir)
	if err != nil {
		return SavedFile{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return SavedFile{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	source := r
	if maxBytes > 0 {
		source = io.LimitReader(r, maxBytes+1)
	}

	written, copyErr := io.CopyBuffer(tmp, source, make([]byte, 32*1024))
	closeErr := tmp.Close()
	if copyErr != nil {
		return SavedFile{}, fmt.Errorf("write upload: %w", copyErr)
	}
	if closeErr != nil {
		return SavedFile{}, fmt.Errorf("close upload: %w", closeErr)
	}

	if maxBytes > 0 && written > maxBytes {
		return SavedFile{}, apierror.New("PAYLOAD_TOO_LARGE", "file exceeds the maximum upload size", fmt.Sprintf("limit %d bytes", maxBytes), http.StatusRequestEntityTooLarge)
	}
	if written == 0 {
		return SavedFile{}, apierror.Validation("file is empty", "")
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return SavedFile{}, fmt.Errorf("chmod upload: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return SavedFile{}, fmt.Errorf("commit upload: %w", err)
	}
	committed = true

	return SavedFile{Filename: filename, Path: target, Size: written}, nil
}

// Delete removes a stored file. A file that is already gone is not an error.
func (s *Store) Delete(filename string, subdir string) error {
	target, err := s.Resolve(filename, subdir)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", filename, err)
	}

	return nil
}

// Open returns the stored file and its info for byte serving.
func (s *Store) Open(filename string, subdir string) (*os.File, os.FileInfo, error) {
	target, err := s.Resolve(filename, subdir)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, model.ErrFileNotFound
		}
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}

	if info.IsDir() {
		_ = file.Close()
		return nil, nil, model.ErrFileNotFound
	}

	return file, info, nil
}

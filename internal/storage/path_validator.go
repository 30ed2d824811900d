package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/util"
	"go-portfolio-cms/pkg/apierror"
)

type PathValidator struct {
	rootAbs string
}

func NewPathValidator(root string) (*PathValidator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root path cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	return &PathValidator{rootAbs: rootAbs}, nil
}

func (v *PathValidator) RootAbs() string {
	return v.rootAbs
}

// BaseDir resolves a logical subdirectory such as "articles/cover" under the
// root.
func (v *PathValidator) BaseDir(subdir string) (string, error) {
	normalized := strings.Trim(strings.ReplaceAll(strings.TrimSpace(subdir), `\`, "/"), "/")
	if normalized == "" {
		return v.rootAbs, nil
	}

	if hasControlCharacters(normalized) {
		return "", apierror.New("INVALID_PATH", "subdirectory contains invalid characters", subdir, http.StatusBadRequest)
	}

	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return "", apierror.New("PATH_TRAVERSAL", "path traversal attempt detected", subdir, http.StatusForbidden)
		}
	}

	base, err := filepath.Abs(filepath.Join(v.rootAbs, filepath.FromSlash(normalized)))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	if !isWithinRoot(v.rootAbs, base) {
		return "", apierror.New("PATH_TRAVERSAL", "resolved path is outside storage root", subdir, http.StatusForbidden)
	}

	return base, nil
}

// Resolve maps a stored filename inside subdir to its physical path. The
// filename must already be canonical: anything that sanitisation would
// rewrite (separators, "..", absolute paths) is rejected, never repaired.
func (v *PathValidator) Resolve(filename string, subdir string) (string, error) {
	canonical, err := util.CanonicalFilename(filename)
	if err != nil || canonical != filename {
		return "", apierror.Wrap(model.ErrUnsafeFilename, "VALIDATION_ERROR", "unsafe filename", filename, http.StatusBadRequest)
	}

	base, err := v.BaseDir(subdir)
	if err != nil {
		return "", err
	}

	target, err := filepath.Abs(filepath.Join(base, canonical))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	if target == base || !isWithinRoot(base, target) {
		return "", apierror.Wrap(model.ErrUnsafeFilename, "PATH_TRAVERSAL", "resolved path is outside storage directory", filename, http.StatusForbidden)
	}

	return target, nil
}

func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}

	return false
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	if candidateAbs == rootAbs {
		return true
	}

	rootWithSeparator := rootAbs + string(filepath.Separator)
	return strings.HasPrefix(candidateAbs, rootWithSeparator)
}

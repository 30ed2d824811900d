package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go-portfolio-cms/internal/event"
	"go-portfolio-cms/internal/imaging"
	"go-portfolio-cms/internal/metrics"
	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/storage"
	"go-portfolio-cms/internal/util"
	"go-portfolio-cms/pkg/apierror"
)

// Public file kinds as they appear in URLs.
const (
	FileKindAvatars = "avatars"
	FileKindCovers  = "covers"
	FileKindPDFs    = "pdfs"
)

type imageNormalizer interface {
	Normalize(sourcePath string) (imaging.Result, error)
}

type fileKind struct {
	subdir     string
	extensions map[string]struct{}
	image      bool
}

type FileServiceConfig struct {
	ImageExtensions []string
	PDFExtensions   []string
	MaxBytes        int64
}

// FileService maps public file kinds onto the sandboxed store and runs
// uploaded images through the normalizer.
type FileService struct {
	store      storage.FileStore
	normalizer imageNormalizer
	kinds      map[string]fileKind
	maxBytes   int64
	bus        event.Bus
	metrics    *metrics.Metrics
}

func NewFileService(store storage.FileStore, normalizer imageNormalizer, cfg FileServiceConfig, bus event.Bus, m *metrics.Metrics) *FileService {
	images := extensionSet(cfg.ImageExtensions)
	pdfs := extensionSet(cfg.PDFExtensions)

	return &FileService{
		store:      store,
		normalizer: normalizer,
		kinds: map[string]fileKind{
			FileKindAvatars: {subdir: storage.SubdirAvatars, extensions: images, image: true},
			FileKindCovers:  {subdir: storage.SubdirArticleCovers, extensions: images, image: true},
			FileKindPDFs:    {subdir: storage.SubdirArticlePDFs, extensions: pdfs},
		},
		maxBytes: cfg.MaxBytes,
		bus:      bus,
		metrics:  m,
	}
}

func (s *FileService) kind(name string) (fileKind, error) {
	k, ok := s.kinds[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fileKind{}, apierror.Validation("unknown file kind", name)
	}
	return k, nil
}

// Upload stores r under a generated name. Images are normalized on a best
// effort basis: if conversion fails the original upload is kept and served.
func (s *FileService) Upload(_ context.Context, kindName string, originalName string, r io.Reader) (model.UploadResult, error) {
	k, err := s.kind(kindName)
	if err != nil {
		return model.UploadResult{}, err
	}

	ext := util.Extension(originalName)
	if _, ok := k.extensions[ext]; !ok {
		return model.UploadResult{}, apierror.Validation("file type not allowed", ext)
	}

	saved, err := s.store.Save(r, originalName, k.subdir, s.maxBytes)
	if err != nil {
		return model.UploadResult{}, err
	}

	filename := saved.Filename
	size := saved.Size
	normalized := false
	if k.image && s.normalizer != nil {
		filename, size, normalized = s.normalize(saved)
	}

	result := model.UploadResult{
		Filename:    filename,
		URL:         FileURL(kindName, filename),
		Size:        size,
		ContentType: util.ContentTypeForExtension(util.Extension(filename), ""),
		Normalized:  normalized,
	}

	event.Publish(s.bus, event.New(event.TypeFileUploaded, map[string]any{
		"kind":     kindName,
		"filename": filename,
	}))

	return result, nil
}

func (s *FileService) normalize(saved storage.SavedFile) (string, int64, bool) {
	result, err := s.normalizer.Normalize(saved.Path)
	if err != nil {
		slog.Warn("image normalization failed, serving original",
			"filename", saved.Filename,
			"error", err,
		)
		s.metrics.ImageNormalization("failed")
		return saved.Filename, saved.Size, false
	}

	if !result.Converted {
		s.metrics.ImageNormalization("skipped")
		return saved.Filename, saved.Size, false
	}

	s.metrics.ImageNormalization("converted")
	size := saved.Size
	if info, statErr := os.Stat(result.Path); statErr == nil {
		size = info.Size()
	}

	return filepath.Base(result.Path), size, true
}

// Delete removes a stored file. Missing files are not an error.
func (s *FileService) Delete(_ context.Context, kindName string, filename string) error {
	k, err := s.kind(kindName)
	if err != nil {
		return err
	}

	if err := s.store.Delete(filename, k.subdir); err != nil {
		return err
	}

	event.Publish(s.bus, event.New(event.TypeFileDeleted, map[string]any{
		"kind":     kindName,
		"filename": filename,
	}))
	return nil
}

// Open returns the file, its info and the content type to serve it with.
func (s *FileService) Open(kindName string, filename string) (*os.File, os.FileInfo, string, error) {
	k, err := s.kind(kindName)
	if err != nil {
		return nil, nil, "", err
	}

	file, info, err := s.store.Open(filename, k.subdir)
	if err != nil {
		return nil, nil, "", err
	}

	sniffed, err := util.SniffContentType(file)
	if err != nil {
		_ = file.Close()
		return nil, nil, "", err
	}

	return file, info, util.ContentTypeForExtension(util.Extension(filename), sniffed), nil
}

// removeReferenced deletes a file a purged record pointed at. Values that
// are not plain stored names, such as external URLs, are ignored.
func (s *FileService) removeReferenced(ctx context.Context, kindName string, filename string) error {
	filename = strings.TrimSpace(filename)
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return nil
	}
	return s.Delete(ctx, kindName, filename)
}

func FileURL(kindName string, filename string) string {
	return "/api/files/" + kindName + "/" + filename
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		cleaned := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if cleaned != "" {
			set[cleaned] = struct{}{}
		}
	}
	return set
}

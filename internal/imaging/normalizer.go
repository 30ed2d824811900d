// Package imaging converts uploaded raster images to the canonical format
// served by the site.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// CanonicalExt is the extension every normalized image ends up with.
const CanonicalExt = "jpg"

const (
	DefaultQuality      = 85
	DefaultMaxDimension = 2048
	// DefaultMaxPixels bounds the decoded canvas. Headers are checked before
	// any pixel data is allocated.
	DefaultMaxPixels  = 50_000_000
	alphaQualityBoost = 10
)

// ErrTooManyPixels is returned for images whose declared canvas exceeds the
// normalizer's pixel budget.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// Files that are already JPEG are served as uploaded.
var convertible = map[string]struct{}{
	"png":  {},
	"gif":  {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
}

type Result struct {
	Path      string
	Converted bool
	Quality   int
	HadAlpha  bool
}

type Normalizer struct {
	quality      int
	maxDimension int
	maxPixels    int64
}

// NewNormalizer falls back to the package defaults for any non-positive
// argument.
func NewNormalizer(quality int, maxDimension int, maxPixels int64) *Normalizer {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	return &Normalizer{quality: quality, maxDimension: maxDimension, maxPixels: maxPixels}
}

func (n *Normalizer) CanConvert(path string) bool {
	_, ok := convertible[extension(path)]
	return ok
}

// Normalize re-encodes sourcePath next to itself with the canonical
// extension and removes the original. Unsupported extensions come back
// unchanged. On any failure the original is left byte-for-byte intact and no
// output file remains.
func (n *Normalizer) Normalize(sourcePath string) (Result, error) {
	if !n.CanConvert(sourcePath) {
		return Result{Path: sourcePath}, nil
	}

	src, err := n.decode(sourcePath)
	if err != nil {
		return Result{Path: sourcePath}, err
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Result{Path: sourcePath}, fmt.Errorf("invalid image dimensions %dx%d", bounds.Dx(), bounds.Dy())
	}

	hasAlpha := !isOpaque(src)
	quality := n.quality
	if hasAlpha {
		quality = min(quality+alphaQualityBoost, 100)
	}

	flattened := n.flatten(src)

	targetPath := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + "." + CanonicalExt
	if err := writeJPEG(targetPath, flattened, quality); err != nil {
		return Result{Path: sourcePath}, err
	}

	if err := os.Remove(sourcePath); err != nil {
		slog.Warn("failed to remove original after normalization", "path", sourcePath, "error", err)
	}

	return Result{Path: targetPath, Converted: true, Quality: quality, HadAlpha: hasAlpha}, nil
}

func (n *Normalizer) decode(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > n.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind image: %w", err)
	}

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return img, nil
}

// flatten composites src onto white, downscaling when it exceeds the maximum
// dimension. JPEG has no alpha channel.
func (n *Normalizer) flatten(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	scale := float64(n.maxDimension) / float64(max(width, height))
	if scale > 1 {
		scale = 1
	}

	targetWidth := max(int(math.Round(float64(width)*scale)), 1)
	targetHeight := max(int(math.Round(float64(height)*scale)), 1)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	if scale == 1 {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	return dst
}

func writeJPEG(targetPath string, img image.Image, quality int) error {
	tmp, err := os.CreateTemp(filepath.Dir(targetPath), ".normalize-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	encodeErr := jpeg.Encode(tmp, img, &jpeg.Options{Quality: quality})
	closeErr := tmp.Close()
	if encodeErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		if encodeErr != nil {
			return fmt.Errorf("encode jpeg: %w", encodeErr)
		}
		return fmt.Errorf("close jpeg: %w", closeErr)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, targetPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("commit jpeg: %w", err)
	}

	return nil
}

type opaquer interface {
	Opaque() bool
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(opaquer); ok {
		return o.Opaque()
	}

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}

	return true
}

func extension(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

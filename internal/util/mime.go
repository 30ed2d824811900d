package util

import (
	"io"
	"mime"
	"net/http"
	"strings"
)

// SniffContentType reads up to 512 bytes from r and rewinds it.
func SniffContentType(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	buffer := make([]byte, 512)
	n, err := io.ReadFull(r, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return http.DetectContentType(buffer[:n]), nil
}

// ContentTypeForExtension prefers the registered type for ext and falls back
// to the sniffed value.
func ContentTypeForExtension(ext string, sniffed string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	switch ext {
	case "webp":
		return "image/webp"
	case "pdf":
		return "application/pdf"
	}

	if byExt := mime.TypeByExtension("." + ext); byExt != "" {
		return byExt
	}

	if sniffed == "" {
		return "application/octet-stream"
	}

	return sniffed
}

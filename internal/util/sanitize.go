package util

import (
	"net/http"
	"path"
	"regexp"
	"strings"
	"unicode"

	"go-portfolio-cms/pkg/apierror"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"|?*]`)

var windowsReservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// CanonicalFilename reduces a client supplied name to a single safe path
// component. Directory parts are dropped, so "a/../b.png" becomes "b.png".
// Callers that must not accept rewritten names compare the result with the
// input.
func CanonicalFilename(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apierror.Validation("filename cannot be empty", "")
	}

	if strings.Contains(trimmed, "\x00") {
		return "", apierror.Validation("filename contains null bytes", trimmed)
	}

	base := path.Base(strings.ReplaceAll(trimmed, `\`, "/"))
	if base == "." || base == ".." || base == "/" {
		return "", apierror.Validation("filename cannot be a directory reference", trimmed)
	}

	builder := strings.Builder{}
	builder.Grow(len(base))
	for _, char := range base {
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(invalidFilenameChars.ReplaceAllString(builder.String(), "_"))
	if cleaned == "" {
		return "", apierror.Validation("filename is invalid after sanitization", trimmed)
	}

	runes := []rune(cleaned)
	if len(runes) > 255 {
		runes = runes[:255]
	}
	cleaned = string(runes)

	if strings.HasPrefix(cleaned, ".") {
		return "", apierror.New("INVALID_FILENAME", "hidden filenames are not allowed", cleaned, http.StatusBadRequest)
	}

	stem := cleaned
	if idx := strings.Index(cleaned, "."); idx >= 0 {
		stem = cleaned[:idx]
	}
	if _, exists := windowsReservedNames[strings.ToUpper(stem)]; exists {
		return "", apierror.New("INVALID_FILENAME", "reserved filename is not allowed", cleaned, http.StatusBadRequest)
	}

	return cleaned, nil
}

// Extension returns the lowercase extension of name without the leading dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(strings.TrimSpace(name))), ".")
}

// isInvisibleUnicode reports zero-width and formatting characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u200E', '\u200F', '\u2060', '\uFEFF':
		return true
	}

	return unicode.Is(unicode.Cf, r)
}

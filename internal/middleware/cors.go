package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/rs/cors"
)

// CORS allows the configured front-end origins. An empty list or "*" opens the
// API to any origin, which also disables credentialed requests.
func CORS(origins []string) func(http.Handler) http.Handler {
	wildcard := len(origins) == 0 || slices.Contains(origins, "*")
	if wildcard {
		origins = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "Range", "If-None-Match", "If-Modified-Since"},
		// Files are served with conditional and range support.
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length", "Content-Range", "ETag", "Last-Modified", "Retry-After", "X-Request-ID"},
		MaxAge:           int((12 * time.Hour).Seconds()),
		AllowCredentials: !wildcard,
	}).Handler
}

package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go-portfolio-cms/internal/model"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout bounds JSON handlers. Responses that miss the deadline are replaced
// with a 503 carrying the standard error envelope.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	body, _ := json.Marshal(model.APIResponse{
		Error: &model.APIError{
			Code:    "REQUEST_TIMEOUT",
			Message: "request took longer than " + timeout.String(),
		},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(body))
	}
}

package apierror

import (
	"fmt"
	"net/http"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	cause      error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the sentinel the error was built from, if any.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Wrap builds an APIError that still matches cause under errors.Is.
func Wrap(cause error, code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status, cause: cause}
}

func Validation(message string, details string) *APIError {
	return New("VALIDATION_ERROR", message, details, http.StatusBadRequest)
}

// RateLimited reports a rejected write; the limiter's reason becomes the
// client-facing message.
func RateLimited(cause error, reason string) *APIError {
	return Wrap(cause, "RATE_LIMITED", reason, "", http.StatusTooManyRequests)
}

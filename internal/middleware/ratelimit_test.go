package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_UnlimitedGeneral(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1).Handler(okHandler())

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles", nil))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimitMiddleware_LimitedAuth(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1).Handler(okHandler())

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, "60", rec2.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	other.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, other)
	assert.Equal(t, http.StatusOK, rec3.Code, "buckets are per client")
}

func TestRateLimitMiddleware_FilesAreExempt(t *testing.T) {
	handler := NewRateLimitMiddleware(1, 1).Handler(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/avatars/abc.jpg", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "first forwarded entry", headers: map[string]string{"X-Forwarded-For": " 1.1.1.1 , 2.2.2.2", "X-Real-IP": "3.3.3.3"}, remote: "4.4.4.4:1234", want: "1.1.1.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "3.3.3.3"}, remote: "4.4.4.4:1234", want: "3.3.3.3"},
		{name: "peer address", remote: "4.4.4.4:1234", want: "4.4.4.4"},
		{name: "peer without port", remote: "4.4.4.4", want: "4.4.4.4"},
		{name: "empty forwarded falls through", headers: map[string]string{"X-Forwarded-For": " , "}, remote: "[::1]:80", want: "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

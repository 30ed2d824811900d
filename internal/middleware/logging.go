package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"go-portfolio-cms/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	maxErrorCapture = 4 << 10
)

type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// Logging writes one access log line per request and records the request in
// m, which may be nil. Error responses have their envelope decoded into the
// log line.
func Logging(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			started := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			elapsed := time.Since(started)

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			m.ObserveRequest(r.Method, route, recorder.status, elapsed)

			attrs := []any{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"bytes", recorder.written,
				"duration_ms", elapsed.Milliseconds(),
				"client_ip", ClientIP(r),
			}
			if recorder.status >= 400 {
				attrs = append(attrs, errorAttrs(r, recorder.captured.Bytes())...)
			}

			switch {
			case recorder.status >= 500:
				slog.Error("request", attrs...)
			case recorder.status >= 400:
				slog.Warn("request", attrs...)
			default:
				slog.Info("request", attrs...)
			}
		})
	}
}

func errorAttrs(r *http.Request, body []byte) []any {
	var attrs []any
	if r.URL.RawQuery != "" {
		attrs = append(attrs, "query", r.URL.RawQuery)
	}

	var parsed errorEnvelope
	if len(body) == 0 || json.Unmarshal(body, &parsed) != nil || parsed.Error == nil {
		return attrs
	}

	attrs = append(attrs, "error_code", parsed.Error.Code, "error_message", parsed.Error.Message)
	if parsed.Error.Details != "" {
		attrs = append(attrs, "error_details", parsed.Error.Details)
	}
	return attrs
}

// statusRecorder keeps the status and byte count. Bodies of error responses
// are captured up to maxErrorCapture bytes for the log line.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	written     int64
	captured    bytes.Buffer
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	rw.status = statusCode
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.status >= 400 && rw.captured.Len() < maxErrorCapture {
		rw.captured.Write(b[:min(len(b), maxErrorCapture-rw.captured.Len())])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is needed by the websocket upgrade.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.wroteHeader = true
	rw.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

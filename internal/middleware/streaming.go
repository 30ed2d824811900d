package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

// StreamingTimeout bounds file transfers without buffering them the way
// http.TimeoutHandler does. maxDuration caps the whole transfer; a transfer
// that writes nothing for idleTimeout is cut off. Range requests keep
// working because the writer still exposes Flush and the real connection.
func StreamingTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			deadline := time.Now().Add(maxDuration)
			_ = rc.SetWriteDeadline(deadline)
			_ = rc.SetReadDeadline(deadline)

			tw := &transferWriter{ResponseWriter: w}
			tw.touch()

			done := make(chan struct{})
			go watchIdle(ctx, tw, rc, cancel, idleTimeout, done)

			next.ServeHTTP(tw, r.WithContext(ctx))
			close(done)
		})
	}
}

// watchIdle polls the writer's last activity instead of re-arming a timer
// on every Write.
func watchIdle(ctx context.Context, tw *transferWriter, rc *http.ResponseController, cancel context.CancelFunc, idle time.Duration, done <-chan struct{}) {
	interval := max(idle/4, 10*time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(tw.lastActivity()) < idle {
				continue
			}
			// Fail blocked writes right away.
			_ = rc.SetWriteDeadline(time.Now())
			cancel()
			return
		}
	}
}

type transferWriter struct {
	http.ResponseWriter
	last atomic.Int64
}

func (tw *transferWriter) touch() {
	tw.last.Store(time.Now().UnixNano())
}

func (tw *transferWriter) lastActivity() time.Time {
	return time.Unix(0, tw.last.Load())
}

func (tw *transferWriter) Write(b []byte) (int, error) {
	n, err := tw.ResponseWriter.Write(b)
	tw.touch()
	return n, err
}

func (tw *transferWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}

func (tw *transferWriter) Flush() {
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

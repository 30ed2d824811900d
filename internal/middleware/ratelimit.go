package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	scopeGeneral = "general"
	scopeAuth    = "auth"

	visitorSweepThreshold = 1000
	visitorIdleTTL        = 10 * time.Minute
)

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimitMiddleware is a coarse per-IP request throttle in front of the
// whole API. Login gets its own, stricter bucket. A non-positive RPM
// disables that bucket.
type RateLimitMiddleware struct {
	rpm      map[string]int
	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimitMiddleware(generalRPM int, authRPM int) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rpm:      map[string]int{scopeGeneral: generalRPM, scopeAuth: authRPM},
		visitors: make(map[string]*visitor),
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, limited := requestScope(r.URL.Path)
		if !limited || m.rpm[scope] <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		if wait, ok := m.reserve(scope, ClientIP(r)); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestScope picks the bucket for a path. File downloads are never
// throttled here; they have their own transfer timeouts.
func requestScope(path string) (string, bool) {
	path = strings.ToLower(path)
	switch {
	case strings.HasPrefix(path, "/api/files/"):
		return "", false
	case strings.HasPrefix(path, "/api/auth"):
		return scopeAuth, true
	default:
		return scopeGeneral, true
	}
}

// reserve takes a token for the client, or reports how long until one is
// available.
func (m *RateLimitMiddleware) reserve(scope string, clientIP string) (time.Duration, bool) {
	now := time.Now()
	key := scope + "|" + clientIP

	m.mu.Lock()
	v, ok := m.visitors[key]
	if !ok {
		rpm := m.rpm[scope]
		v = &visitor{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)}
		m.visitors[key] = v
	}
	v.seen = now
	if len(m.visitors) >= visitorSweepThreshold {
		m.sweepLocked(now)
	}
	m.mu.Unlock()

	res := v.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return delay, false
	}
	return 0, true
}

func (m *RateLimitMiddleware) sweepLocked(now time.Time) {
	for key, v := range m.visitors {
		if now.Sub(v.seen) > visitorIdleTTL {
			delete(m.visitors, key)
		}
	}
}

// ClientIP picks the first X-Forwarded-For entry, then X-Real-IP, then the
// peer address. Comment rate limiting keys on this value.
func ClientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote == "" {
		return "unknown"
	}
	return remote
}

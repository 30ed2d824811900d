package handler

import (
	"context"
	"net/http"
	"time"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db      healthChecker
	started time.Time
}

func NewHealthHandler(db healthChecker) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	database := "ok"
	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			status = "degraded"
			database = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	writeSuccess(w, code, map[string]any{
		"status":         status,
		"database":       database,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}, nil)
}

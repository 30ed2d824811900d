package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go-portfolio-cms/internal/metrics"
	"go-portfolio-cms/internal/model"
)

type expirySweeper interface {
	PurgeExpired(ctx context.Context, retentionDays int, now time.Time) (model.SweepResult, error)
}

// ExpiryReaper periodically purges recycle bin entries past retention. It is
// owned by the process, not by any request.
type ExpiryReaper struct {
	bin           expirySweeper
	retentionDays int
	interval      time.Duration
	metrics       *metrics.Metrics
	now           func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewExpiryReaper(bin expirySweeper, retentionDays int, interval time.Duration, m *metrics.Metrics) *ExpiryReaper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &ExpiryReaper{
		bin:           bin,
		retentionDays: retentionDays,
		interval:      interval,
		metrics:       m,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce performs a single sweep. Errors are logged and returned; the next
// tick retries.
func (r *ExpiryReaper) RunOnce(ctx context.Context) (model.SweepResult, error) {
	started := time.Now()
	result, err := r.bin.PurgeExpired(ctx, r.retentionDays, r.now())
	r.metrics.ReaperRun(result.Purged, err)

	if err != nil {
		slog.Error("recycle bin sweep failed",
			"cutoff", result.Cutoff,
			"purged", result.Purged,
			"error", err,
		)
		return result, err
	}

	slog.Info("recycle bin sweep finished",
		"cutoff", result.Cutoff,
		"purged", result.Purged,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}

// Start launches the background loop: one sweep immediately, then one per
// interval until Stop or ctx cancellation. Calling Start twice is a no-op.
func (r *ExpiryReaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(runCtx)
	}()
}

func (r *ExpiryReaper) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	_, _ = r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.RunOnce(ctx)
		}
	}
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (r *ExpiryReaper) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	r.wg.Wait()
	slog.Info("expiry reaper stopped")
}

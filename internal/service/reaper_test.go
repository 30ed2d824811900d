package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-portfolio-cms/internal/metrics"
	"go-portfolio-cms/internal/model"
)

type fakeSweeper struct {
	calls     atomic.Int32
	err       error
	retention atomic.Int32
}

func (f *fakeSweeper) PurgeExpired(_ context.Context, retentionDays int, now time.Time) (model.SweepResult, error) {
	f.calls.Add(1)
	f.retention.Store(int32(retentionDays))
	if f.err != nil {
		return model.SweepResult{}, f.err
	}
	return model.SweepResult{Cutoff: now.Add(-time.Duration(retentionDays) * 24 * time.Hour), Purged: 2}, nil
}

func TestReaperRunOnce(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{}
	reaper := NewExpiryReaper(sweeper, 15, time.Hour, metrics.New())

	result, err := reaper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Purged)
	assert.EqualValues(t, 15, sweeper.retention.Load())
}

func TestReaperRunOnceReportsFailure(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{err: errors.New("database unavailable")}
	reaper := NewExpiryReaper(sweeper, 15, time.Hour, nil)

	_, err := reaper.RunOnce(context.Background())
	require.Error(t, err)
}

func TestReaperStartSweepsImmediatelyAndOnTick(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{err: errors.New("first runs fail, later ones retry")}
	reaper := NewExpiryReaper(sweeper, 15, 10*time.Millisecond, nil)

	reaper.Start(context.Background())
	reaper.Start(context.Background())

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	reaper.Stop()
	stopped := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, sweeper.calls.Load(), "no sweeps after Stop returns")

	reaper.Stop()
}

func TestReaperStopsWithContext(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{}
	reaper := NewExpiryReaper(sweeper, 15, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	reaper.Start(ctx)
	require.Eventually(t, func() bool { return sweeper.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	reaper.Stop()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go-portfolio-cms/internal/event"
	"go-portfolio-cms/internal/lifecycle"
	"go-portfolio-cms/internal/metrics"
	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/repository"
)

type RecycleBinService struct {
	manager *lifecycle.Manager
	entries *repository.RecycleBinRepository
	bus     event.Bus
	metrics *metrics.Metrics
}

func NewRecycleBinService(manager *lifecycle.Manager, entries *repository.RecycleBinRepository, bus event.Bus, m *metrics.Metrics) *RecycleBinService {
	return &RecycleBinService{manager: manager, entries: entries, bus: bus, metrics: m}
}

// Archive tombstones a record and snapshots it into the bin. Content
// services route every delete through here.
func (s *RecycleBinService) Archive(ctx context.Context, dataType string, id uint) error {
	outcome, err := s.manager.Delete(ctx, dataType, id)
	if err != nil {
		return err
	}

	if !outcome.Archived {
		slog.Debug("record already tombstoned", "data_type", dataType, "data_id", id)
		return nil
	}

	s.metrics.Lifecycle("delete", dataType)
	event.Publish(s.bus, event.New(event.TypeRecordArchived, entrySummary(outcome.Entry)))
	return nil
}

func (s *RecycleBinService) List(ctx context.Context, filter model.RecycleBinFilter) ([]model.RecycleBinEntry, *model.Meta, error) {
	if filter.DataType != "" && !slices.Contains(s.manager.Kinds(), filter.DataType) {
		return nil, nil, fmt.Errorf("%w: %q", model.ErrUnknownDataType, filter.DataType)
	}

	filter.Page, filter.Limit = repository.NormalizePage(filter.Page, filter.Limit)

	entries, total, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	if filter.DataType == "" {
		s.metrics.SetRecycleBinSize(total)
	}

	return entries, model.NewMeta(filter.Page, filter.Limit, total), nil
}

func (s *RecycleBinService) Restore(ctx context.Context, entryID uint) (model.RestoreResult, error) {
	outcome, err := s.manager.Restore(ctx, entryID)
	if err != nil {
		return model.RestoreResult{}, err
	}

	s.metrics.Lifecycle("restore", outcome.Entry.DataType)
	event.Publish(s.bus, event.New(event.TypeRecordRestored, entrySummary(outcome.Entry)))

	return model.RestoreResult{
		DataType: outcome.Entry.DataType,
		DataID:   outcome.Entry.DataID,
		Record:   outcome.Record,
	}, nil
}

func (s *RecycleBinService) Purge(ctx context.Context, entryID uint) error {
	outcome, err := s.manager.Purge(ctx, entryID)
	if err != nil {
		return err
	}

	s.metrics.Lifecycle("purge", outcome.Entry.DataType)
	event.Publish(s.bus, event.New(event.TypeEntryPurged, entrySummary(outcome.Entry)))
	return nil
}

// Clear purges every entry one by one so per-type cleanup hooks still run.
// Entries that vanish concurrently are skipped.
func (s *RecycleBinService) Clear(ctx context.Context) (int, error) {
	entries, err := s.entries.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	purged, err := s.purgeAll(ctx, entries, "clear")
	if purged > 0 {
		event.Publish(s.bus, event.New(event.TypeBinCleared, map[string]any{"purged": purged}))
	}

	return purged, err
}

// PurgeExpired removes entries archived strictly before now minus the
// retention window.
func (s *RecycleBinService) PurgeExpired(ctx context.Context, retentionDays int, now time.Time) (model.SweepResult, error) {
	if retentionDays <= 0 {
		return model.SweepResult{}, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}

	cutoff := now.UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	expired, err := s.entries.ListExpired(ctx, cutoff)
	if err != nil {
		return model.SweepResult{Cutoff: cutoff}, err
	}

	purged, err := s.purgeAll(ctx, expired, "expire")
	result := model.SweepResult{Cutoff: cutoff, Purged: purged}
	if purged > 0 {
		event.Publish(s.bus, event.New(event.TypeBinSwept, result))
	}

	return result, err
}

func (s *RecycleBinService) purgeAll(ctx context.Context, entries []model.RecycleBinEntry, operation string) (int, error) {
	purged := 0
	var errs []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if _, err := s.manager.Purge(ctx, entry.ID); err != nil {
			if errors.Is(err, model.ErrEntryNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("purge entry %d: %w", entry.ID, err))
			continue
		}

		purged++
		s.metrics.Lifecycle(operation, entry.DataType)
	}

	return purged, errors.Join(errs...)
}

func entrySummary(entry model.RecycleBinEntry) map[string]any {
	return map[string]any{
		"entry_id":  entry.ID,
		"data_type": entry.DataType,
		"data_id":   entry.DataID,
	}
}

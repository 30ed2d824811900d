package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"

	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/repository"
)

// Outcome describes what a lifecycle call actually changed.
type Outcome struct {
	Entry    model.RecycleBinEntry
	Record   model.Archivable
	Archived bool
}

type Options struct {
	// HardDeleteOnPurge also removes the tombstoned row when its entry is
	// purged. Off by default: the tombstone stays as an audit trail.
	HardDeleteOnPurge bool
	Now               func() time.Time
}

// Manager owns the transactions around every state change. Restore and
// purge dispatch on data_type through the kind table.
type Manager struct {
	db      *gorm.DB
	entries *repository.RecycleBinRepository
	kinds   map[string]Kind
	opts    Options
}

func NewManager(db *gorm.DB, entries *repository.RecycleBinRepository, opts Options, kinds ...Kind) *Manager {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	table := make(map[string]Kind, len(kinds))
	for _, k := range kinds {
		table[k.Name()] = k
	}

	return &Manager{db: db, entries: entries, kinds: table, opts: opts}
}

func (m *Manager) Kinds() []string {
	names := make([]string, 0, len(m.kinds))
	for name := range m.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) kind(dataType string) (Kind, error) {
	k, ok := m.kinds[dataType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownDataType, dataType)
	}
	return k, nil
}

// Delete tombstones the record and archives its snapshot in one
// transaction. Deleting a record that is already tombstoned succeeds with
// Archived=false.
func (m *Manager) Delete(ctx context.Context, dataType string, id uint) (Outcome, error) {
	k, err := m.kind(dataType)
	if err != nil {
		return Outcome{}, err
	}

	var outcome Outcome
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := m.opts.Now()
		snapshot, archived, err := k.Tombstone(tx, id, now)
		if err != nil {
			return err
		}
		if !archived {
			return nil
		}

		entry := model.RecycleBinEntry{
			DataType:   dataType,
			DataID:     id,
			DataJSON:   snapshot,
			ArchivedAt: now,
		}
		if err := m.entries.WithTx(tx).Put(ctx, &entry); err != nil {
			return err
		}

		outcome = Outcome{Entry: entry, Archived: true}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	return outcome, nil
}

// Restore brings an archived record back under its original id and consumes
// the entry.
func (m *Manager) Restore(ctx context.Context, entryID uint) (Outcome, error) {
	var outcome Outcome
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entries := m.entries.WithTx(tx)

		entry, err := entries.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}

		k, err := m.kind(entry.DataType)
		if err != nil {
			return err
		}

		record, err := k.Restore(tx, entry.DataID, entry.DataJSON)
		if err != nil {
			return err
		}

		if err := entries.Delete(ctx, entry.ID); err != nil {
			return err
		}

		outcome = Outcome{Entry: entry, Record: record}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	return outcome, nil
}

// Purge drops the entry for good. Cleanup hooks run after commit and never
// fail the purge.
func (m *Manager) Purge(ctx context.Context, entryID uint) (Outcome, error) {
	var outcome Outcome
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entries := m.entries.WithTx(tx)

		entry, err := entries.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}

		if err := entries.Delete(ctx, entry.ID); err != nil {
			return err
		}

		if m.opts.HardDeleteOnPurge {
			if k, ok := m.kinds[entry.DataType]; ok {
				if err := k.HardDelete(tx, entry.DataID); err != nil {
					return err
				}
			}
		}

		outcome = Outcome{Entry: entry}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	m.afterPurge(ctx, outcome.Entry)
	return outcome, nil
}

func (m *Manager) afterPurge(ctx context.Context, entry model.RecycleBinEntry) {
	k, ok := m.kinds[entry.DataType]
	if !ok {
		return
	}

	if err := k.AfterPurge(ctx, entry.DataJSON); err != nil {
		slog.Warn("post-purge cleanup failed",
			"entry_id", entry.ID,
			"data_type", entry.DataType,
			"data_id", entry.DataID,
			"error", err,
		)
	}
}

// Package lifecycle moves archivable records between the active,
// tombstoned, archived and purged states.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-portfolio-cms/internal/model"
)

// Kind is the per-type half of the lifecycle: everything that needs to know
// the concrete Go type behind a data_type string.
type Kind interface {
	Name() string
	// Tombstone marks the live row deleted and returns its JSON snapshot.
	// It reports archived=false when the row was already tombstoned.
	Tombstone(tx *gorm.DB, id uint, now time.Time) (snapshot string, archived bool, err error)
	// Restore rebuilds the row from snapshot under its original id.
	Restore(tx *gorm.DB, id uint, snapshot string) (model.Archivable, error)
	// HardDelete removes the row if it is still tombstoned.
	HardDelete(tx *gorm.DB, id uint) error
	// AfterPurge runs outside the transaction once an entry is gone.
	AfterPurge(ctx context.Context, snapshot string) error
}

// KindOption customises a kind at registration time.
type KindOption[T any, P interface {
	*T
	model.Archivable
}] func(*kind[T, P])

// WithAfterPurge registers a best-effort cleanup hook, typically removing
// files the record referenced.
func WithAfterPurge[T any, P interface {
	*T
	model.Archivable
}](hook func(ctx context.Context, record P) error) KindOption[T, P] {
	return func(k *kind[T, P]) {
		k.afterPurge = hook
	}
}

type kind[T any, P interface {
	*T
	model.Archivable
}] struct {
	name       string
	notFound   error
	afterPurge func(ctx context.Context, record P) error
}

// NewKind builds the lifecycle handler for entity type T.
func NewKind[T any, P interface {
	*T
	model.Archivable
}](name string, notFound error, opts ...KindOption[T, P]) Kind {
	k := &kind[T, P]{name: name, notFound: notFound}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *kind[T, P]) Name() string {
	return k.name
}

func (k *kind[T, P]) Tombstone(tx *gorm.DB, id uint, now time.Time) (string, bool, error) {
	record := P(new(T))
	err := tx.Unscoped().Clauses(clause.Locking{Strength: "UPDATE"}).First(record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, k.notFound
	}
	if err != nil {
		return "", false, fmt.Errorf("load %s: %w", k.name, err)
	}

	if record.Tombstoned() {
		return "", false, nil
	}

	if err := tx.Model(record).UpdateColumn("deleted_at", now).Error; err != nil {
		return "", false, fmt.Errorf("tombstone %s: %w", k.name, err)
	}

	if err := tx.Unscoped().First(record, id).Error; err != nil {
		return "", false, fmt.Errorf("reload %s: %w", k.name, err)
	}

	snapshot, err := json.Marshal(record)
	if err != nil {
		return "", false, fmt.Errorf("serialize %s: %w", k.name, err)
	}

	return string(snapshot), true, nil
}

func (k *kind[T, P]) Restore(tx *gorm.DB, id uint, snapshot string) (model.Archivable, error) {
	record, err := k.decode(snapshot)
	if err != nil {
		return nil, err
	}
	if record.ArchiveID() != id {
		return nil, fmt.Errorf("%s snapshot id %d does not match entry id %d", k.name, record.ArchiveID(), id)
	}

	existing := P(new(T))
	err = tx.Unscoped().Clauses(clause.Locking{Strength: "UPDATE"}).First(existing, id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record.Revive()
		if err := tx.Create(record).Error; err != nil {
			return nil, fmt.Errorf("recreate %s: %w", k.name, err)
		}
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", k.name, err)
	case !existing.Tombstoned():
		return nil, model.ErrRestoreConflict
	default:
		record.Revive()
		if err := tx.Unscoped().Save(record).Error; err != nil {
			return nil, fmt.Errorf("revive %s: %w", k.name, err)
		}
	}

	return record, nil
}

func (k *kind[T, P]) HardDelete(tx *gorm.DB, id uint) error {
	err := tx.Unscoped().Where("deleted_at IS NOT NULL").Delete(P(new(T)), id).Error
	if err != nil {
		return fmt.Errorf("hard delete %s: %w", k.name, err)
	}
	return nil
}

func (k *kind[T, P]) AfterPurge(ctx context.Context, snapshot string) error {
	if k.afterPurge == nil {
		return nil
	}

	record, err := k.decode(snapshot)
	if err != nil {
		return err
	}

	return k.afterPurge(ctx, record)
}

func (k *kind[T, P]) decode(snapshot string) (P, error) {
	record := P(new(T))
	if err := json.Unmarshal([]byte(snapshot), record); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", k.name, err)
	}
	return record, nil
}

package database

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"go-portfolio-cms/internal/model"
)

// Models lists every table the service owns, in creation order.
func Models() []any {
	return []any{
		&model.Article{},
		&model.Skill{},
		&model.Contact{},
		&model.Avatar{},
		&model.Comment{},
		&model.RecycleBinEntry{},
	}
}

func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Gorm == nil {
		return fmt.Errorf("database is not initialized")
	}

	return Migrate(db.Gorm.WithContext(ctx))
}

// singleCurrentAvatarIndex backs the at-most-one-current invariant in the
// database itself. Both Postgres and SQLite support partial indexes.
const singleCurrentAvatarIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_avatars_single_current
	ON avatars (is_current) WHERE is_current AND deleted_at IS NULL`

// Migrate is shared with tests, which run it against SQLite.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := gdb.Exec(singleCurrentAvatarIndex).Error; err != nil {
		return fmt.Errorf("create current avatar index: %w", err)
	}

	slog.Info("database schema ensured", "tables", len(Models()))
	return nil
}

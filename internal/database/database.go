package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

type Options struct {
	URL       string
	MaxConns  int32
	MinConns  int32
	SlowQuery time.Duration
}

// DB holds the pgx pool and the GORM handle layered on top of it. Both share
// the same connections.
type DB struct {
	Pool *pgxpool.Pool
	Gorm *gorm.DB
}

func New(ctx context.Context, opts Options) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolCfg.MinConns = opts.MinConns
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), &gorm.Config{
		Logger:  NewLogger(opts.SlowQuery),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	slog.Info("database connected", "max_conns", poolCfg.MaxConns, "min_conns", poolCfg.MinConns)
	return &DB{Pool: pool, Gorm: gdb}, nil
}

// NewLogger routes GORM warnings (slow queries, errors) into slog.
func NewLogger(slowQuery time.Duration) gormlogger.Interface {
	if slowQuery <= 0 {
		slowQuery = defaultSlowQuery
	}
	return gormlogger.New(slogWriter{}, gormlogger.Config{
		SlowThreshold:             slowQuery,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type slogWriter struct{}

func (slogWriter) Printf(format string, args ...any) {
	slog.Warn("gorm", "detail", fmt.Sprintf(format, args...))
}

func (db *DB) Close() {
	if db.Gorm != nil {
		if sqlDB, err := db.Gorm.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health pings through the pool; used by /health.
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

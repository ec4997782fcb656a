// AngelaMos | 2026
// database.go

package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/carterperez-dev/insighta/internal/config"
	"github.com/carterperez-dev/insighta/internal/core/migrations"
)

const (
	pingTimeout     = 5 * time.Second
	uniqueViolation = "23505"
)

// Database is the Postgres record store, reached through pgx's database/sql
// driver and wrapped in sqlx for struct scanning.
type Database struct {
	DB *sqlx.DB
}

func NewDatabase(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	configurePool(db, cfg)

	d := &Database{DB: db}
	if err := d.Ping(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, err
	}
	return d, nil
}

func configurePool(db *sqlx.DB, cfg config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	// Spread lifetimes so pooled connections do not all recycle at once.
	db.SetConnMaxLifetime(withJitter(cfg.ConnMaxLifetime))
}

func withJitter(d time.Duration) time.Duration {
	spread := d / 10
	if spread <= 0 {
		return d
	}
	//nolint:gosec // G404: pool jitter is not security sensitive
	return d + time.Duration(rand.Int64N(int64(spread)))
}

// Migrate applies the embedded goose migrations.
func (d *Database) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := runMigrations(ctx, d.DB.DB, "."); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

var runMigrations = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

func (d *Database) Driver() string { return config.DriverPostgres }

func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

func (d *Database) Close(_ context.Context) error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

type PostgresStats struct {
	MaxOpen      int    `json:"max_open"`
	Open         int    `json:"open"`
	InUse        int    `json:"in_use"`
	Idle         int    `json:"idle"`
	Waits        int64  `json:"waits"`
	WaitTime     string `json:"wait_time"`
	ClosedIdle   int64  `json:"closed_idle"`
	ClosedMaxAge int64  `json:"closed_max_age"`
}

func (d *Database) Stats(_ context.Context) (any, error) {
	s := d.DB.Stats()
	return &PostgresStats{
		MaxOpen:      s.MaxOpenConnections,
		Open:         s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		Waits:        s.WaitCount,
		WaitTime:     s.WaitDuration.String(),
		ClosedIdle:   s.MaxIdleClosed + s.MaxIdleTimeClosed,
		ClosedMaxAge: s.MaxLifetimeClosed,
	}, nil
}

// DBTX is what the Postgres repositories need from *sqlx.DB.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// IsDuplicateKeyError reports a unique index violation from either store.
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return mongo.IsDuplicateKeyError(err)
}

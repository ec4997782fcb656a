// AngelaMos | 2026
// store.go

package core

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/insighta/internal/config"
)

// Store is the record store selected by database.driver. Both *Database and
// *Mongo satisfy it.
type Store interface {
	Driver() string
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (any, error)
	Close(ctx context.Context) error
}

var (
	_ Store = (*Database)(nil)
	_ Store = (*Mongo)(nil)
)

// OpenStore connects to the configured driver and prepares its schema:
// migrations for Postgres when enabled, unique indexes for Mongo.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := NewDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				_ = db.Close(ctx) //nolint:errcheck // cleanup on migration failure
				return nil, err
			}
		}
		return db, nil

	case config.DriverMongo:
		m, err := NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			_ = m.Close(ctx) //nolint:errcheck // cleanup on index failure
			return nil, err
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

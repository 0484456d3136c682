package store

import (
	"context"
	"fmt"

	"github.com/elonfeng/rentradar/internal/config"
	"github.com/elonfeng/rentradar/pkg/listing"
)

// Store persists the whole listing collection. Save replaces everything
// previously stored; there are no partial writes.
type Store interface {
	Load(ctx context.Context) ([]listing.Listing, error)
	Save(ctx context.Context, listings []listing.Listing) error
	Close() error
}

// Open returns the store selected by the database config.
func Open(cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "", "json":
		return NewJSONStore(cfg.Path), nil
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Package store persists completed audits.
package store

import (
	"context"
	"fmt"

	"github.com/biasbench/biasbench/internal/config"
	"github.com/biasbench/biasbench/internal/model"
)

// Store is an AuditStore that holds resources until closed.
type Store interface {
	model.AuditStore
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return NewSQLiteStore(cfg.Path)
	case config.DriverMySQL:
		return NewMySQLStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

package storage

import (
	"context"
	"fmt"

	"finn_scraper/config"
)

// New selects a backend by the configured name. Every backend satisfies
// the full Store contract.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "sqlite", "":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("storage: postgres backend requires POSTGRES_DSN")
		}
		return NewPostgresStore(ctx, cfg.PostgresDSN)
	case "csv":
		return NewCSVStore(cfg.CSVDir)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

package repository

import (
	"context"
	"fmt"

	"chatWorker/worker/database"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type StoreConfig struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

// Open connects the configured backend and makes sure the schema exists.
func Open(ctx context.Context, cfg StoreConfig) (Repository, error) {
	var repo Repository

	switch cfg.Driver {
	case DriverPostgres:
		pool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo = NewPostgresRepo(pool)
	case DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo = NewSQLiteRepo(db)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}

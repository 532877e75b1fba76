package store

import (
	"context"
	"fmt"

	"portfoliovault/config"
	"portfoliovault/config/database"
)

// Open builds the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverFile:
		return NewFile(cfg.DataDir)
	case config.DriverPostgres:
		db, err := database.ConnectPostgres(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		s, err := NewSQL(ctx, db, Postgres)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s, err := NewSQL(ctx, db, SQLite)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("store: unsupported driver %q", cfg.StoreDriver)
}

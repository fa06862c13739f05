package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/codyseavey/basket-tracker/internal/store"
)

// OpenStore opens the configured backend. driver is "sqlite" (dbPath) or
// "postgres" (dsn).
func OpenStore(ctx context.Context, driver, dbPath, dsn string, log zerolog.Logger) (store.Store, error) {
	switch driver {
	case "sqlite":
		db, err := OpenSQLite(dbPath, log)
		if err != nil {
			return nil, err
		}
		return store.NewGormStore(db), nil
	case "postgres":
		db, err := OpenPostgres(ctx, dsn, log)
		if err != nil {
			return nil, err
		}
		st, err := store.NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

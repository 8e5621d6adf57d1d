package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geodir/internal/db"
	"github.com/sells-group/geodir/internal/location"
)

// openPool connects to the configured database.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	if err != nil {
		return nil, eris.Wrap(err, "open database")
	}
	zap.L().Debug("connected to database")
	return pool, nil
}

// openStore connects and returns the pool together with the location store.
func openStore(ctx context.Context) (*pgxpool.Pool, *location.PostgresStore, error) {
	pool, err := openPool(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pool, location.NewPostgresStore(pool), nil
}

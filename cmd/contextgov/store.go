package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // postgres driver for database/sql
	"github.com/spf13/viper"

	"github.com/makalah-ai/contextgov/storage"
)

var errNoDatabase = errors.New("database url not set: use --database-url or CONTEXTGOV_DATABASE_URL")

// migrator is implemented by both stores.
type migrator interface {
	Migrate(ctx context.Context) error
}

// openStore connects to the configured database with the configured driver.
// The returned close function releases the connection.
func openStore(ctx context.Context) (storage.Store, func(), error) {
	url := viper.GetString("database_url")
	if url == "" {
		return nil, nil, errNoDatabase
	}

	var (
		store storage.Store
		done  func()
	)
	switch driver := viper.GetString("driver"); driver {
	case "pgx", "":
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping: %w", err)
		}
		store, done = storage.NewPostgresStore(pool), pool.Close
	case "sql":
		db, err := sql.Open("postgres", url)
		if err != nil {
			return nil, nil, fmt.Errorf("open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping: %w", err)
		}
		store, done = storage.NewSQLStore(db), func() { db.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown driver %q (want pgx or sql)", driver)
	}

	if viper.GetBool("migrate") {
		if m, ok := store.(migrator); ok {
			if err := m.Migrate(ctx); err != nil {
				done()
				return nil, nil, err
			}
		}
	}
	return store, done, nil
}

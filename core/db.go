package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUsersSchema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    username TEXT NOT NULL UNIQUE,
    bio TEXT,
    image TEXT,
    hash TEXT NOT NULL
)`

// Connect opens a pgx connection pool with conservative defaults.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable defaults for small services; callers can override if needed.
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	// Validate connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// EnsurePgSchema creates the users table if it does not exist yet.
func EnsurePgSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, pgUsersSchema)
	return err
}

// OpenUserStore picks a backend from the URL scheme: postgres:// and
// postgresql:// use pgx, sqlite: and file: use the embedded sqlite driver.
// The returned func releases the underlying connections.
func OpenUserStore(ctx context.Context, url string) (UserRepository, func(), error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		pool, err := Connect(ctx, url)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := EnsurePgSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("create users table: %w", err)
		}
		return NewPgUserRepository(pool), pool.Close, nil
	case strings.HasPrefix(url, "sqlite:"), strings.HasPrefix(url, "file:"):
		db, err := OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite:"))
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteUserRepository(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database url scheme: %q", url)
	}
}

package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateConnectionPool creates a new pgx connection pool with automatic
// PgBouncer compatibility.
//
// By default pgx uses prepared statements (QueryExecModeCacheStatement),
// which transaction-pooling PgBouncer (port 6543) does not support. When
// that port is detected and the user did not set an explicit mode in the
// connection string, we switch to QueryExecModeCacheDescribe: it still
// uses the extended protocol (required for proper JSONB encoding of
// map[string]any) but caches statement descriptions instead of prepared
// statements, so it works through the pooler.
//
// Dynamic table names interpolated with fmt.Sprintf are safe with prepared
// statements because the SQL string is fixed before it reaches the server;
// each prefix gets its own statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	// POSTGRES_DATABASE overrides the database in the connection string.
	// The session configurator rewrites this variable to the tenant-scoped
	// name before any pool is constructed, so handles built here resolve
	// to the scoped database without touching DATABASE_URL.
	if db := os.Getenv("POSTGRES_DATABASE"); db != "" {
		config.ConnConfig.Database = db
	}

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"ragstore/internal/domain"
	"ragstore/internal/domain/repositories"
)

// namespacePattern restricts namespaces to safe SQL identifier characters,
// since table names are interpolated into statements before they reach
// the server.
var namespacePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Factory creates KV storage handles backed by a shared pgx pool.
// Implements repositories.StorageFactory.
type Factory struct {
	pool   *pgxpool.Pool
	prefix string
	logger *slog.Logger
}

// NewFactory creates a storage factory. Table names are prefix+namespace,
// following the per-environment table prefixing convention (dev_, test_,
// prod_).
func NewFactory(pool *pgxpool.Pool, prefix string, logger *slog.Logger) *Factory {
	return &Factory{
		pool:   pool,
		prefix: prefix,
		logger: logger,
	}
}

// OpenKV returns an uninitialized handle for the given namespace
func (f *Factory) OpenKV(namespace string) repositories.KVStorage {
	return &KVStorage{
		pool:   f.pool,
		table:  f.prefix + namespace,
		logger: f.logger,
	}
}

// KVStorage persists opaque JSON records in one table per namespace:
// (id TEXT PRIMARY KEY, data JSONB). The pool is owned by the caller;
// Finalize releases the handle without closing the pool.
type KVStorage struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
	finalized   bool
}

// Initialize creates the backing table if it does not exist. Idempotent.
func (s *KVStorage) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return fmt.Errorf("initialize %s: %w", s.table, domain.ErrFinalized)
	}
	if s.initialized {
		return nil
	}
	if !namespacePattern.MatchString(s.table) {
		return fmt.Errorf("invalid table name %q", s.table)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, s.table)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	s.initialized = true
	s.logger.Debug("kv storage initialized", "table", s.table)
	return nil
}

// Upsert writes every record in the mapping as one batch. Existing keys
// are overwritten (last write wins); the batch is persisted before return.
func (s *KVStorage) Upsert(ctx context.Context, records map[string]repositories.Record) error {
	if err := s.checkLive(); err != nil {
		return fmt.Errorf("upsert into %s: %w", s.table, err)
	}
	if len(records) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, data)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
	`, s.table)

	batch := &pgx.Batch{}
	for id, record := range records {
		batch.Queue(query, id, record)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert into %s: %w", s.table, err)
		}
	}

	return nil
}

// GetByID returns the record for id, or domain.ErrNotFound
func (s *KVStorage) GetByID(ctx context.Context, id string) (repositories.Record, error) {
	if err := s.checkLive(); err != nil {
		return nil, fmt.Errorf("get from %s: %w", s.table, err)
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.table)

	var record repositories.Record
	err := s.pool.QueryRow(ctx, query, id).Scan(&record)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get from %s: %w", s.table, err)
	}

	return record, nil
}

// Count returns the number of records in the collection
func (s *KVStorage) Count(ctx context.Context) (int64, error) {
	if err := s.checkLive(); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)

	var count int64
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}

	return count, nil
}

// Finalize releases the handle. The shared pool stays open for other
// handles; no further calls are valid on this one.
func (s *KVStorage) Finalize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return nil
	}
	s.finalized = true
	s.logger.Debug("kv storage finalized", "table", s.table)
	return nil
}

// Ready reports whether the handle is initialized and not finalized
func (s *KVStorage) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool != nil && s.initialized && !s.finalized
}

func (s *KVStorage) checkLive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return domain.ErrFinalized
	}
	if !s.initialized {
		return domain.ErrNotInitialized
	}
	return nil
}

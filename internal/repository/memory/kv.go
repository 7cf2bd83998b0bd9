// Package memory provides an in-process KVStorage implementation with the
// same contract as the postgres backend. It backs unit tests and
// STORAGE=memory development runs; nothing survives process exit.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"ragstore/internal/domain"
	"ragstore/internal/domain/repositories"
)

// Factory creates in-memory KV handles. Implements
// repositories.StorageFactory. Handles opened for the same namespace share
// one record map, mirroring how postgres handles share a table.
type Factory struct {
	logger *slog.Logger

	mu         sync.Mutex
	namespaces map[string]map[string]repositories.Record
}

func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{
		logger:     logger,
		namespaces: make(map[string]map[string]repositories.Record),
	}
}

// OpenKV returns an uninitialized handle for the given namespace
func (f *Factory) OpenKV(namespace string) repositories.KVStorage {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, ok := f.namespaces[namespace]
	if !ok {
		records = make(map[string]repositories.Record)
		f.namespaces[namespace] = records
	}

	return &KVStorage{
		namespace: namespace,
		records:   records,
		logger:    f.logger,
	}
}

// KVStorage stores records in a map guarded by a mutex
type KVStorage struct {
	namespace string
	logger    *slog.Logger

	mu          sync.Mutex
	records     map[string]repositories.Record
	initialized bool
	finalized   bool
}

func (s *KVStorage) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return fmt.Errorf("initialize %s: %w", s.namespace, domain.ErrFinalized)
	}
	s.initialized = true
	return nil
}

func (s *KVStorage) Upsert(ctx context.Context, records map[string]repositories.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLive(); err != nil {
		return fmt.Errorf("upsert into %s: %w", s.namespace, err)
	}

	for id, record := range records {
		// Copy so later caller mutations don't reach the store
		s.records[id] = maps.Clone(record)
	}
	return nil
}

func (s *KVStorage) GetByID(ctx context.Context, id string) (repositories.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLive(); err != nil {
		return nil, fmt.Errorf("get from %s: %w", s.namespace, err)
	}

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	return maps.Clone(record), nil
}

func (s *KVStorage) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLive(); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.namespace, err)
	}
	return int64(len(s.records)), nil
}

func (s *KVStorage) Finalize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finalized = true
	return nil
}

func (s *KVStorage) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && !s.finalized
}

func (s *KVStorage) checkLive() error {
	if s.finalized {
		return domain.ErrFinalized
	}
	if !s.initialized {
		return domain.ErrNotInitialized
	}
	return nil
}

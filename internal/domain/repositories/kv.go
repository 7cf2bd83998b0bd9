package repositories

import "context"

// Record is the opaque JSON-shaped value persisted for one key
type Record = map[string]any

// KVStorage is the contract every key-value backend must satisfy.
// Initialize must be called once before any other operation; Finalize
// releases the handle and no further calls are valid after it returns.
type KVStorage interface {
	// Initialize prepares the underlying collection. Idempotent.
	Initialize(ctx context.Context) error

	// Upsert writes every record in the mapping. Last write for a given
	// key wins; the write is persisted before Upsert returns.
	Upsert(ctx context.Context, records map[string]Record) error

	// GetByID returns the record for id, or domain.ErrNotFound
	GetByID(ctx context.Context, id string) (Record, error)

	// Count returns the number of records in the collection
	Count(ctx context.Context) (int64, error)

	// Finalize releases underlying resources
	Finalize(ctx context.Context) error

	// Ready reports whether the handle is initialized and not finalized
	Ready() bool
}

// StorageFactory hands out one KVStorage handle per namespace.
// Namespaces map to physical collections (tables) in the backend.
type StorageFactory interface {
	OpenKV(namespace string) KVStorage
}

// Package history persists quality snapshots, designates baselines, and
// detects regressions against them.
//
// # Architecture
//
// Persistence sits behind the [Store] key/value interface with
// implementations for different backends:
//   - memory: in-memory storage for development/testing
//   - file: file-based storage for CLI usage
//   - redis: Redis-backed storage for shared deployments
//   - mongo: MongoDB-backed durable storage
//
// The [Service] contains all indexing, filtering, and comparison logic; the
// stores contain only persistence mechanics, so swapping backends never
// changes behavior.
//
// # Keys
//
// Snapshots are keyed by (diagram category, layout strategy, model
// identity). Each key has at most one active baseline, tracked as an
// explicit pointer entry mutated only through [Service.SetBaseline]; writes
// to the same key are serialized by a per-key mutex (single-writer
// discipline), while operations on different keys proceed concurrently.
package history

import "context"

// Store is the abstract persistence surface used by the history service.
// Implementations must tolerate being backed by in-memory storage for tests
// and durable storage in production without behavioral differences.
type Store interface {
	// Get retrieves a value. The second return is false on a missing key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores a value, overwriting any existing entry.
	Put(ctx context.Context, key string, value []byte) error

	// List returns all keys with the given prefix in lexicographic order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any backend resources.
	Close() error
}

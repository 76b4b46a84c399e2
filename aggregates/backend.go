package aggregates

import (
	"context"
)

// WriteBatch groups the effects of one Add or Remove call that must become
// visible together: the event-log append, the projection write and, for
// creation, the registration of the new id in the known-ids log.
//
// IDsKey is empty for non-creation writes; engines must then skip the id
// registration.
type WriteBatch struct {
	EventsKey string
	Event     []byte
	StateKey  string
	State     []byte
	IDsKey    string
	NewID     ID
}

// Backend is the key-value persistence contract the repository requires.
// It stores opaque bytes under string keys; all serialization is the
// repository's responsibility.
//
// Known ids are tracked in an ordered log, not an unordered set: every id
// is appended exactly once (inside the creating Commit), and full scans
// need ascending creation order, which the log preserves.
//
// Cancellation and deadlines are delegated to the engine's client through
// the supplied context; the core imposes no additional deadline logic.
type Backend interface {
	// Incr atomically increments the counter stored at key and returns the
	// new value. A missing counter starts at zero.
	Incr(ctx context.Context, key string) (int64, error)

	// Get returns the value stored at key, or found == false if the key is
	// absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// GetMulti returns the values for the given keys in order; absent keys
	// yield nil elements.
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)

	// List returns all entries of the ordered log stored at key in
	// insertion order. A missing log yields an empty result.
	List(ctx context.Context, key string) ([][]byte, error)

	// Commit atomically applies the write batch: all of its effects become
	// visible together or not at all.
	Commit(ctx context.Context, batch WriteBatch) error
}

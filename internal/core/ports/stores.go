package ports

import (
	"context"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
)

// CacheContainers is the named, versioned cache container store. A container
// maps canonical request keys to full captured responses and remembers
// insertion order so constrained clients can evict the oldest entry.
// Implementations should degrade gracefully: a failed container operation is
// a soft failure and must not take down the request it was serving.
type CacheContainers interface {
	// Get returns the entry for key in the named container. ok=false on miss.
	Get(ctx context.Context, container, key string) (*offline.CapturedResponse, bool, error)
	// Put stores the entry, replacing any previous value for key.
	Put(ctx context.Context, container, key string, resp *offline.CapturedResponse) error
	// Len returns the number of entries in the container.
	Len(ctx context.Context, container string) (int, error)
	// EvictOldest removes the single oldest entry; a no-op on an empty container.
	EvictOldest(ctx context.Context, container string) error
	// List enumerates all container names under the product prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Drop deletes an entire container and its bookkeeping.
	Drop(ctx context.Context, container string) error
}

// SnapshotStore keeps the last-known-good body per readable API endpoint.
type SnapshotStore interface {
	// Save upserts the snapshot for its endpoint.
	Save(ctx context.Context, snap *offline.Snapshot) error
	// Get returns the snapshot for endpoint. ok=false if none was ever saved.
	Get(ctx context.Context, endpoint string) (*offline.Snapshot, bool, error)
}

// WriteQueue is the durable, append/delete-only list of pending mutating
// requests. Entries are never updated in place.
type WriteQueue interface {
	Enqueue(ctx context.Context, action *offline.QueuedAction) error
	// List returns all pending actions in enqueue order.
	List(ctx context.Context) ([]*offline.QueuedAction, error)
	// Delete removes one action by id; absence is not an error.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

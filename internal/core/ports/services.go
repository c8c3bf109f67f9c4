package ports

import (
	"context"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
)

// Interceptor receives every outgoing request and returns exactly one
// response, from the network, a cache container, the snapshot store, or a
// synthesized offline placeholder. It never returns an error to the caller's
// request path; degraded outcomes are still well-formed responses.
type Interceptor interface {
	Intercept(ctx context.Context, req *offline.Request) (*offline.CapturedResponse, error)
}

// SyncState is the coordinator's externally visible state.
type SyncState string

const (
	SyncIdle     SyncState = "idle"
	SyncDraining SyncState = "draining"
)

// DrainReport summarizes one full pass over the write queue.
type DrainReport struct {
	Replayed  int `json:"replayed"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// SyncCoordinator drains the write queue when connectivity returns. A drain
// replays actions in enqueue order, deletes the ones that succeed, and keeps
// the ones that fail for the next trigger.
type SyncCoordinator interface {
	Drain(ctx context.Context) (*DrainReport, error)
	State() SyncState
}

// CacheGenerations owns the lifecycle of the named, versioned containers.
type CacheGenerations interface {
	// Install opens the static container and pre-populates it from the
	// offline asset manifest. Population failures are soft.
	Install(ctx context.Context) error
	// Activate deletes every prefixed container that is not one of the two
	// live names. Idempotent.
	Activate(ctx context.Context) error
	// Purge deletes all containers under the product prefix.
	Purge(ctx context.Context) error
	// Names returns the live static and dynamic container names.
	Names() (static, dynamic string)
}

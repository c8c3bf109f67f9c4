package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/configs"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/ports"
)

var errNetworkDown = errors.New("dial tcp: connection refused")

func testOfflineConfig() *configs.OfflineConfig {
	return &configs.OfflineConfig{
		CachePrefix:         "vtm",
		StaticVersion:       "v2",
		DynamicVersion:      "v2",
		SyncTag:             "sync-offline-actions",
		NetworkTimeout:      2 * time.Second,
		ConstrainedTimeout:  time.Second,
		DynamicEntryCeiling: 2,
		PrecacheManifest:    []string{"/", "/static/css/app.css"},
	}
}

type containersMock struct {
	getFn         func(ctx context.Context, container, key string) (*offline.CapturedResponse, bool, error)
	putFn         func(ctx context.Context, container, key string, resp *offline.CapturedResponse) error
	lenFn         func(ctx context.Context, container string) (int, error)
	evictOldestFn func(ctx context.Context, container string) error
	listFn        func(ctx context.Context, prefix string) ([]string, error)
	dropFn        func(ctx context.Context, container string) error
}

func (m *containersMock) Get(ctx context.Context, container, key string) (*offline.CapturedResponse, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, container, key)
	}
	return nil, false, nil
}
func (m *containersMock) Put(ctx context.Context, container, key string, resp *offline.CapturedResponse) error {
	if m.putFn != nil {
		return m.putFn(ctx, container, key, resp)
	}
	return nil
}
func (m *containersMock) Len(ctx context.Context, container string) (int, error) {
	if m.lenFn != nil {
		return m.lenFn(ctx, container)
	}
	return 0, nil
}
func (m *containersMock) EvictOldest(ctx context.Context, container string) error {
	if m.evictOldestFn != nil {
		return m.evictOldestFn(ctx, container)
	}
	return nil
}
func (m *containersMock) List(ctx context.Context, prefix string) ([]string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, prefix)
	}
	return nil, nil
}
func (m *containersMock) Drop(ctx context.Context, container string) error {
	if m.dropFn != nil {
		return m.dropFn(ctx, container)
	}
	return nil
}

type snapshotsMock struct {
	saveFn func(ctx context.Context, snap *offline.Snapshot) error
	getFn  func(ctx context.Context, endpoint string) (*offline.Snapshot, bool, error)
}

func (m *snapshotsMock) Save(ctx context.Context, snap *offline.Snapshot) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, snap)
	}
	return nil
}
func (m *snapshotsMock) Get(ctx context.Context, endpoint string) (*offline.Snapshot, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, endpoint)
	}
	return nil, false, nil
}

// memQueue is an in-memory write queue honoring the append/delete-only
// contract, for tests that assert queue contents.
type memQueue struct {
	mu      sync.Mutex
	actions []*offline.QueuedAction

	enqueueErr error
	replayErrs map[string]bool
}

func (q *memQueue) Enqueue(ctx context.Context, action *offline.QueuedAction) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.actions = append(q.actions, action)
	return nil
}

func (q *memQueue) List(ctx context.Context) ([]*offline.QueuedAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*offline.QueuedAction, len(q.actions))
	copy(out, q.actions)
	return out, nil
}

func (q *memQueue) Delete(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, a := range q.actions {
		if a.ID == id {
			q.actions = append(q.actions[:i], q.actions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *memQueue) Count(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions), nil
}

type upstreamMock struct {
	doFn func(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error)

	mu    sync.Mutex
	calls []*ports.UpstreamRequest
}

func (m *upstreamMock) Do(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.doFn != nil {
		return m.doFn(ctx, req)
	}
	return nil, errNetworkDown
}

func (m *upstreamMock) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *upstreamMock) lastCall() *ports.UpstreamRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

func okJSON(body string) *offline.CapturedResponse {
	return &offline.CapturedResponse{
		Status:     200,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
		CapturedAt: time.Now(),
	}
}

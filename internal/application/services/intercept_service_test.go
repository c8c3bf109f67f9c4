package services_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	impl "github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/application/services"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/ports"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newInterceptor(containers ports.CacheContainers, snapshots ports.SnapshotStore, queue ports.WriteQueue, up ports.Upstream) ports.Interceptor {
	return impl.NewInterceptService(containers, snapshots, queue, up, testOfflineConfig(), "app.example.com", quietLogger())
}

func TestCacheFirst_HitNeverCallsNetwork(t *testing.T) {
	cached := okJSON(`console.log("app")`)
	containers := &containersMock{
		getFn: func(ctx context.Context, container, key string) (*offline.CapturedResponse, bool, error) {
			if container != "vtm-static-v2" {
				t.Fatalf("lookup hit wrong container %s", container)
			}
			return cached, true, nil
		},
	}
	up := &upstreamMock{}
	svc := newInterceptor(containers, &snapshotsMock{}, &memQueue{}, up)

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/static/js/app.js"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.callCount() != 0 {
		t.Fatalf("cache-first hit must not call the network, saw %d calls", up.callCount())
	}
	if resp.Headers[offline.HeaderServedFrom] != offline.ServedFromCache {
		t.Fatalf("expected cache marker, got %+v", resp.Headers)
	}
}

func TestCacheFirst_MissFetchesAndStores(t *testing.T) {
	var storedKey string
	containers := &containersMock{
		putFn: func(ctx context.Context, container, key string, resp *offline.CapturedResponse) error {
			storedKey = container + "|" + key
			return nil
		},
	}
	up := &upstreamMock{doFn: func(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error) {
		return okJSON("body{}"), nil
	}}
	svc := newInterceptor(containers, &snapshotsMock{}, &memQueue{}, up)

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/static/css/app.css"})
	if err != nil || resp.Status != 200 {
		t.Fatalf("expected fetched asset, got %v / %+v", err, resp)
	}
	if storedKey != "vtm-static-v2|GET /static/css/app.css" {
		t.Fatalf("asset not stored under canonical key, got %q", storedKey)
	}
}

func TestCacheFirst_TotalFailureSynthesizesPlaceholder(t *testing.T) {
	svc := newInterceptor(&containersMock{}, &snapshotsMock{}, &memQueue{}, &upstreamMock{})

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/static/js/app.js"})
	if err != nil {
		t.Fatalf("degraded static read must not error: %v", err)
	}
	if resp.Status != 503 {
		t.Fatalf("expected 503 placeholder, got %d", resp.Status)
	}
	if !strings.Contains(string(resp.Body), `"offline":true`) {
		t.Fatalf("placeholder missing offline marker: %s", resp.Body)
	}
}

func TestAPIRead_SuccessPopulatesCacheAndSnapshot(t *testing.T) {
	var (
		putContainer string
		savedSnap    *offline.Snapshot
	)
	containers := &containersMock{
		putFn: func(ctx context.Context, container, key string, resp *offline.CapturedResponse) error {
			putContainer = container
			return nil
		},
	}
	snaps := &snapshotsMock{saveFn: func(ctx context.Context, snap *offline.Snapshot) error {
		savedSnap = snap
		return nil
	}}
	up := &upstreamMock{doFn: func(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error) {
		return okJSON(`{"projects":[{"name":"Johnson Wedding"}]}`), nil
	}}
	svc := newInterceptor(containers, snaps, &memQueue{}, up)

	if _, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/api/projects"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if putContainer != "vtm-dynamic-v2" {
		t.Fatalf("read not cached in dynamic container, got %q", putContainer)
	}
	if savedSnap == nil || savedSnap.Endpoint != "/api/projects" {
		t.Fatalf("snapshot not keyed by endpoint: %+v", savedSnap)
	}
}

func TestAPIRead_NonJSONBodySkipsSnapshot(t *testing.T) {
	snapSaved := false
	snaps := &snapshotsMock{saveFn: func(ctx context.Context, snap *offline.Snapshot) error {
		snapSaved = true
		return nil
	}}
	up := &upstreamMock{doFn: func(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error) {
		return &offline.CapturedResponse{Status: 200, Body: []byte("<html>not json</html>"), CapturedAt: time.Now()}, nil
	}}
	svc := newInterceptor(&containersMock{}, snaps, &memQueue{}, up)

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/api/export"})
	if err != nil || resp.Status != 200 {
		t.Fatalf("malformed body must not fail the response: %v / %+v", err, resp)
	}
	if snapSaved {
		t.Fatal("non-JSON body must not populate the snapshot store")
	}
}

func TestAPIRead_OfflineFallsBackToCachedEntry(t *testing.T) {
	cached := okJSON(`{"tasks":[{"title":"Color grade"}]}`)
	containers := &containersMock{
		getFn: func(ctx context.Context, container, key string) (*offline.CapturedResponse, bool, error) {
			return cached, true, nil
		},
	}
	svc := newInterceptor(containers, &snapshotsMock{}, &memQueue{}, &upstreamMock{})

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/api/tasks"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Headers[offline.HeaderServedFrom] != offline.ServedFromCache {
		t.Fatalf("expected staleness annotation, got %+v", resp.Headers)
	}
	if resp.Headers[offline.HeaderCacheTimestamp] == "" {
		t.Fatalf("expected cache timestamp header, got %+v", resp.Headers)
	}
	if string(resp.Body) != string(cached.Body) {
		t.Fatalf("cached body altered: %s", resp.Body)
	}
}

func TestAPIRead_OfflineFallsBackToSnapshot(t *testing.T) {
	stored := []byte(`{"projects":[{"name":"Johnson Wedding"}]}`)
	snaps := &snapshotsMock{getFn: func(ctx context.Context, endpoint string) (*offline.Snapshot, bool, error) {
		if endpoint != "/api/projects" {
			t.Fatalf("snapshot looked up by %q, want endpoint path", endpoint)
		}
		return &offline.Snapshot{Endpoint: endpoint, Data: stored, Timestamp: time.Now().Add(-time.Hour)}, true, nil
	}}
	svc := newInterceptor(&containersMock{}, snaps, &memQueue{}, &upstreamMock{})

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/api/projects"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Body) != string(stored) {
		t.Fatalf("expected exact stored payload, got %s", resp.Body)
	}
	if resp.Headers[offline.HeaderServedFrom] != offline.ServedFromOfflineStorage {
		t.Fatalf("expected offline-storage annotation, got %+v", resp.Headers)
	}
}

func TestAPIRead_ContainerErrorFallsBackToSnapshot(t *testing.T) {
	stored := []byte(`{"tasks":[{"title":"Color grade"}]}`)
	containers := &containersMock{
		getFn: func(ctx context.Context, container, key string) (*offline.CapturedResponse, bool, error) {
			return nil, false, errNetworkDown
		},
	}
	snaps := &snapshotsMock{getFn: func(ctx context.Context, endpoint string) (*offline.Snapshot, bool, error) {
		return &offline.Snapshot{Endpoint: endpoint, Data: stored, Timestamp: time.Now().Add(-time.Hour)}, true, nil
	}}
	svc := newInterceptor(containers, snaps, &memQueue{}, &upstreamMock{})

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/api/tasks"})
	if err != nil {
		t.Fatalf("container failure must not surface: %v", err)
	}
	if resp.Headers[offline.HeaderServedFrom] != offline.ServedFromOfflineStorage {
		t.Fatalf("expected snapshot fallback after container error, got %+v", resp.Headers)
	}
	if string(resp.Body) != string(stored) {
		t.Fatalf("expected stored payload, got %s", resp.Body)
	}
}

func TestAPIRead_OfflineSynthesizesEmptyCollection(t *testing.T) {
	svc := newInterceptor(&containersMock{}, &snapshotsMock{}, &memQueue{}, &upstreamMock{})

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/api/tasks"})
	if err != nil {
		t.Fatalf("offline api read must never error: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatalf("placeholder not JSON: %v", err)
	}
	if list, ok := body["tasks"].([]any); !ok || len(list) != 0 {
		t.Fatalf("expected empty tasks placeholder, got %+v", body)
	}
	if body["offline"] != true {
		t.Fatalf("placeholder missing offline marker: %+v", body)
	}
}

func TestAPIWrite_OfflineQueuesAndReturns202(t *testing.T) {
	queue := &memQueue{}
	svc := newInterceptor(&containersMock{}, &snapshotsMock{}, queue, &upstreamMock{})

	payload := []byte(`{"title":"Edit ceremony reel"}`)
	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "POST", Path: "/api/tasks", Body: payload})
	if err != nil {
		t.Fatalf("offline write must never error: %v", err)
	}
	if resp.Status != 202 {
		t.Fatalf("expected 202 accepted, got %d", resp.Status)
	}

	var envelope offline.AcceptedOffline
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if !envelope.Success || !envelope.Offline || envelope.ID == "" {
		t.Fatalf("envelope missing optimistic markers: %+v", envelope)
	}
	if string(envelope.Data) != string(payload) {
		t.Fatalf("submitted payload altered: %s", envelope.Data)
	}

	actions, _ := queue.List(context.Background())
	if len(actions) != 1 {
		t.Fatalf("expected exactly one queued action, got %d", len(actions))
	}
	if actions[0].ID != envelope.ID {
		t.Fatalf("queued id %s does not match response id %s", actions[0].ID, envelope.ID)
	}
	if actions[0].Method != "POST" || actions[0].URL != "/api/tasks" {
		t.Fatalf("queued action lost request identity: %+v", actions[0])
	}
}

func TestAPIWrite_OnlineReturnsNetworkResponseUnmodified(t *testing.T) {
	queue := &memQueue{}
	created := &offline.CapturedResponse{Status: 201, Body: []byte(`{"id":99}`), CapturedAt: time.Now()}
	up := &upstreamMock{doFn: func(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error) {
		return created, nil
	}}
	svc := newInterceptor(&containersMock{}, &snapshotsMock{}, queue, up)

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "POST", Path: "/api/tasks", Body: []byte(`{}`)})
	if err != nil || resp != created {
		t.Fatalf("network success must pass through unmodified: %v / %+v", err, resp)
	}
	if n, _ := queue.Count(context.Background()); n != 0 {
		t.Fatalf("successful write must not queue, found %d entries", n)
	}
}

func TestConstrainedClient_EvictsOldestAtCeiling(t *testing.T) {
	evicted := false
	putAfterEvict := false
	containers := &containersMock{
		lenFn: func(ctx context.Context, container string) (int, error) { return 2, nil },
		evictOldestFn: func(ctx context.Context, container string) error {
			evicted = true
			return nil
		},
		putFn: func(ctx context.Context, container, key string, resp *offline.CapturedResponse) error {
			putAfterEvict = evicted
			return nil
		},
	}
	up := &upstreamMock{doFn: func(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error) {
		return okJSON(`{"tasks":[]}`), nil
	}}
	svc := newInterceptor(containers, &snapshotsMock{}, &memQueue{}, up)

	profile := offline.ClientProfile{IsConstrainedClient: true, NetworkTimeout: time.Second, DynamicEntryCeiling: 2}
	if _, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/api/tasks", Profile: profile}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !evicted {
		t.Fatal("expected oldest entry eviction at the ceiling")
	}
	if !putAfterEvict {
		t.Fatal("eviction must happen before the insert")
	}
}

func TestUnconstrainedClient_NeverEvicts(t *testing.T) {
	containers := &containersMock{
		lenFn: func(ctx context.Context, container string) (int, error) { return 1000, nil },
		evictOldestFn: func(ctx context.Context, container string) error {
			t.Fatal("regular clients must not evict")
			return nil
		},
	}
	up := &upstreamMock{doFn: func(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error) {
		return okJSON(`{"tasks":[]}`), nil
	}}
	svc := newInterceptor(containers, &snapshotsMock{}, &memQueue{}, up)

	if _, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/api/tasks"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestForeignOrigin_PassesThroughUntouched(t *testing.T) {
	containers := &containersMock{
		putFn: func(ctx context.Context, container, key string, resp *offline.CapturedResponse) error {
			t.Fatal("foreign-origin responses must not be cached")
			return nil
		},
	}
	up := &upstreamMock{doFn: func(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error) {
		return okJSON(`{}`), nil
	}}
	svc := newInterceptor(containers, &snapshotsMock{}, &memQueue{}, up)

	_, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Host: "cdn.other.example", Path: "/widget.js"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := up.lastCall()
	if call == nil || !strings.Contains(call.URL, "cdn.other.example") {
		t.Fatalf("passthrough must target the foreign host, got %+v", call)
	}
}

func TestPage_OfflineServesPrecachedRoute(t *testing.T) {
	// Install puts page routes from the manifest into the static container;
	// a fresh install that goes offline must still serve them.
	precached := &offline.CapturedResponse{
		Status:     200,
		Headers:    map[string]string{"Content-Type": "text/html"},
		Body:       []byte(`<html><body>Projects</body></html>`),
		CapturedAt: time.Now(),
	}
	containers := &containersMock{
		getFn: func(ctx context.Context, container, key string) (*offline.CapturedResponse, bool, error) {
			if container == "vtm-static-v2" && key == "GET /" {
				return precached, true, nil
			}
			return nil, false, nil
		},
	}
	svc := newInterceptor(containers, &snapshotsMock{}, &memQueue{}, &upstreamMock{})

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != 200 || string(resp.Body) != string(precached.Body) {
		t.Fatalf("expected precached page, got %d %s", resp.Status, resp.Body)
	}
	if resp.Headers[offline.HeaderServedFrom] != offline.ServedFromCache {
		t.Fatalf("expected cache marker on precached page, got %+v", resp.Headers)
	}
}

func TestPage_OfflinePrefersRuntimeEntryOverPrecache(t *testing.T) {
	runtime := okJSON(`<html>fresh</html>`)
	containers := &containersMock{
		getFn: func(ctx context.Context, container, key string) (*offline.CapturedResponse, bool, error) {
			switch container {
			case "vtm-dynamic-v2":
				return runtime, true, nil
			case "vtm-static-v2":
				t.Fatal("static container must not be consulted when the dynamic entry exists")
			}
			return nil, false, nil
		},
	}
	svc := newInterceptor(containers, &snapshotsMock{}, &memQueue{}, &upstreamMock{})

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Body) != string(runtime.Body) {
		t.Fatalf("runtime-captured page must win, got %s", resp.Body)
	}
}

func TestPage_OfflineSynthesizesHTMLFallback(t *testing.T) {
	svc := newInterceptor(&containersMock{}, &snapshotsMock{}, &memQueue{}, &upstreamMock{})

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/projects"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != 503 || !strings.Contains(resp.Headers["Content-Type"], "text/html") {
		t.Fatalf("expected offline HTML page, got %d %+v", resp.Status, resp.Headers)
	}
}

func TestForeignOrigin_PreservesRequestScheme(t *testing.T) {
	up := &upstreamMock{doFn: func(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error) {
		return okJSON(`{}`), nil
	}}
	svc := newInterceptor(&containersMock{}, &snapshotsMock{}, &memQueue{}, up)

	if _, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Scheme: "http", Host: "cdn.other.example", Path: "/widget.js"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call := up.lastCall(); call == nil || !strings.HasPrefix(call.URL, "http://cdn.other.example/") {
		t.Fatalf("plaintext target must not be upgraded, got %+v", call)
	}

	if _, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Host: "cdn.other.example", Path: "/widget.js"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call := up.lastCall(); call == nil || !strings.HasPrefix(call.URL, "https://cdn.other.example/") {
		t.Fatalf("schemeless target must default to https, got %+v", call)
	}
}

func TestFragment_ServesPrecachedEntry(t *testing.T) {
	precached := okJSON(`<li>Johnson Wedding</li>`)
	containers := &containersMock{
		getFn: func(ctx context.Context, container, key string) (*offline.CapturedResponse, bool, error) {
			if container == "vtm-static-v2" && key == "GET /fragments/recent-projects" {
				return precached, true, nil
			}
			return nil, false, nil
		},
	}
	svc := newInterceptor(containers, &snapshotsMock{}, &memQueue{}, &upstreamMock{})

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/fragments/recent-projects"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Headers[offline.HeaderServedFrom] != offline.ServedFromCache {
		t.Fatalf("precached fragment must carry the cache marker, got %+v", resp.Headers)
	}
	if string(resp.Body) != string(precached.Body) {
		t.Fatalf("expected precached fragment body, got %s", resp.Body)
	}
}

func TestFragment_ServesStaleAndRevalidates(t *testing.T) {
	cached := okJSON(`<li>Johnson Wedding</li>`)
	refreshed := make(chan struct{})
	containers := &containersMock{
		getFn: func(ctx context.Context, container, key string) (*offline.CapturedResponse, bool, error) {
			return cached, true, nil
		},
		putFn: func(ctx context.Context, container, key string, resp *offline.CapturedResponse) error {
			close(refreshed)
			return nil
		},
	}
	up := &upstreamMock{doFn: func(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error) {
		return okJSON(`<li>Johnson Wedding</li><li>Nguyen Reception</li>`), nil
	}}
	svc := newInterceptor(containers, &snapshotsMock{}, &memQueue{}, up)

	resp, err := svc.Intercept(context.Background(), &offline.Request{Method: "GET", Path: "/fragments/recent-projects"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Headers[offline.HeaderServedFrom] != offline.ServedFromCache {
		t.Fatalf("stale entry must be served from cache, got %+v", resp.Headers)
	}

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("background revalidation never refreshed the cache")
	}
}

package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/configs"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/ports"
)

// InterceptService receives every outgoing request from the client runtime
// and applies the per-class caching strategy. It is the sole writer of cache
// entries and snapshots, and the sole creator of queued actions.
type InterceptService struct {
	containers ports.CacheContainers
	snapshots  ports.SnapshotStore
	queue      ports.WriteQueue
	upstream   ports.Upstream
	cfg        *configs.OfflineConfig
	originHost string
	logger     *logrus.Logger
	revalidate singleflight.Group
}

func NewInterceptService(
	containers ports.CacheContainers,
	snapshots ports.SnapshotStore,
	queue ports.WriteQueue,
	upstream ports.Upstream,
	cfg *configs.OfflineConfig,
	originHost string,
	logger *logrus.Logger,
) ports.Interceptor {
	return &InterceptService{
		containers: containers,
		snapshots:  snapshots,
		queue:      queue,
		upstream:   upstream,
		cfg:        cfg,
		originHost: originHost,
		logger:     logger,
	}
}

// Intercept classifies the request and dispatches to its strategy. It returns
// an error only for passthrough traffic the network could not deliver; every
// cacheable class always yields a response, degraded or not.
func (s *InterceptService) Intercept(ctx context.Context, req *offline.Request) (*offline.CapturedResponse, error) {
	if req.Host != "" && !strings.EqualFold(req.Host, s.originHost) {
		// Foreign origins are never ours to cache or queue.
		s.logClassification(req, offline.ClassPassthrough)
		interceptionsTotal.WithLabelValues(string(offline.ClassPassthrough), outcomePassthrough).Inc()
		return s.upstream.Do(ctx, &ports.UpstreamRequest{
			Method:  req.Method,
			URL:     req.TargetURL(),
			Headers: req.Headers,
			Body:    req.Body,
		})
	}

	class := offline.Classify(req.Method, req.Path)
	s.logClassification(req, class)

	switch class {
	case offline.ClassStatic:
		return s.cacheFirst(ctx, req), nil
	case offline.ClassAPIRead:
		return s.networkFirstAPI(ctx, req), nil
	case offline.ClassAPIWrite:
		return s.onlineFirstWrite(ctx, req), nil
	case offline.ClassFragment:
		return s.staleWhileRevalidate(ctx, req), nil
	case offline.ClassPage:
		return s.networkFirstPage(ctx, req), nil
	default:
		interceptionsTotal.WithLabelValues(string(class), outcomePassthrough).Inc()
		return s.upstream.Do(ctx, &ports.UpstreamRequest{
			Method:  req.Method,
			URL:     req.URL(),
			Headers: req.Headers,
			Body:    req.Body,
			Timeout: req.Profile.NetworkTimeout,
		})
	}
}

func (s *InterceptService) logClassification(req *offline.Request, class offline.RouteClass) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"method":      req.Method,
		"path":        req.Path,
		"class":       string(class),
		"constrained": req.Profile.IsConstrainedClient,
	}).Debug("classified intercepted request")
}

// cacheFirst serves static assets: container hit wins outright, the network
// is only consulted on a miss.
func (s *InterceptService) cacheFirst(ctx context.Context, req *offline.Request) *offline.CapturedResponse {
	container := s.cfg.StaticContainer()
	key := req.CacheKey()

	if cached, ok, err := s.containers.Get(ctx, container, key); err == nil && ok {
		interceptionsTotal.WithLabelValues(string(offline.ClassStatic), outcomeCache).Inc()
		return cached.AnnotatedCopy(map[string]string{offline.HeaderServedFrom: offline.ServedFromCache})
	} else if err != nil {
		s.logger.WithFields(logrus.Fields{"container": container, "key": key}).WithError(err).Warn("static container lookup failed, falling through to network")
	}

	resp, err := s.fetch(ctx, req)
	if err != nil {
		interceptionsTotal.WithLabelValues(string(offline.ClassStatic), outcomePlaceholder).Inc()
		return offline.SynthesizeUnavailable(time.Now())
	}
	if resp.Successful() {
		s.storeEntry(ctx, container, key, resp, false)
	}
	interceptionsTotal.WithLabelValues(string(offline.ClassStatic), outcomeNetwork).Inc()
	return resp
}

// networkFirstAPI serves API reads: the network wins when reachable, and its
// successful responses opportunistically refresh the dynamic container and
// the snapshot store. Offline fallback order is container, then snapshot,
// then an empty-collection placeholder for the resource type.
func (s *InterceptService) networkFirstAPI(ctx context.Context, req *offline.Request) *offline.CapturedResponse {
	container := s.cfg.DynamicContainer()
	key := req.CacheKey()

	resp, err := s.fetch(ctx, req)
	if err == nil {
		if resp.Successful() {
			s.storeEntry(ctx, container, key, resp, req.Profile.IsConstrainedClient)
			s.storeSnapshot(ctx, req.Path, resp)
		}
		interceptionsTotal.WithLabelValues(string(offline.ClassAPIRead), outcomeNetwork).Inc()
		return resp
	}

	if cached, ok, cErr := s.containers.Get(ctx, container, key); cErr == nil && ok {
		interceptionsTotal.WithLabelValues(string(offline.ClassAPIRead), outcomeCache).Inc()
		return cached.AnnotatedCopy(map[string]string{
			offline.HeaderServedFrom:     offline.ServedFromCache,
			offline.HeaderCacheTimestamp: cached.CapturedAt.UTC().Format(time.RFC3339),
		})
	} else if cErr != nil {
		s.logger.WithFields(logrus.Fields{"container": container, "key": key}).WithError(cErr).Warn("dynamic container lookup failed, falling back to snapshot store")
	}

	if snap, ok, sErr := s.snapshots.Get(ctx, req.Path); sErr == nil && ok {
		interceptionsTotal.WithLabelValues(string(offline.ClassAPIRead), outcomeOfflineStorage).Inc()
		return &offline.CapturedResponse{
			Status: http.StatusOK,
			Headers: map[string]string{
				"Content-Type":               "application/json",
				offline.HeaderServedFrom:     offline.ServedFromOfflineStorage,
				offline.HeaderCacheTimestamp: snap.Timestamp.UTC().Format(time.RFC3339),
			},
			Body:       snap.Data,
			CapturedAt: snap.Timestamp,
		}
	} else if sErr != nil {
		s.logger.WithFields(logrus.Fields{"endpoint": req.Path}).WithError(sErr).Warn("snapshot store unavailable during offline fallback")
	}

	interceptionsTotal.WithLabelValues(string(offline.ClassAPIRead), outcomePlaceholder).Inc()
	return offline.SynthesizeEmptyCollection(offline.ResourceName(req.Path), time.Now())
}

// networkFirstPage serves navigations: network first, cached page second,
// minimal offline page last.
func (s *InterceptService) networkFirstPage(ctx context.Context, req *offline.Request) *offline.CapturedResponse {
	container := s.cfg.DynamicContainer()
	key := req.CacheKey()

	resp, err := s.fetch(ctx, req)
	if err == nil {
		if resp.Successful() {
			s.storeEntry(ctx, container, key, resp, req.Profile.IsConstrainedClient)
		}
		interceptionsTotal.WithLabelValues(string(offline.ClassPage), outcomeNetwork).Inc()
		return resp
	}

	if cached, ok := s.lookupFallback(ctx, key); ok {
		interceptionsTotal.WithLabelValues(string(offline.ClassPage), outcomeCache).Inc()
		return cached.AnnotatedCopy(map[string]string{
			offline.HeaderServedFrom:     offline.ServedFromCache,
			offline.HeaderCacheTimestamp: cached.CapturedAt.UTC().Format(time.RFC3339),
		})
	}

	interceptionsTotal.WithLabelValues(string(offline.ClassPage), outcomePlaceholder).Inc()
	return offline.SynthesizeOfflinePage(time.Now())
}

// lookupFallback checks both containers for a key, runtime-captured entries
// first, installed precache entries second. Precached page routes stay
// reachable offline through the second pass even before they are ever
// fetched online.
func (s *InterceptService) lookupFallback(ctx context.Context, key string) (*offline.CapturedResponse, bool) {
	for _, container := range []string{s.cfg.DynamicContainer(), s.cfg.StaticContainer()} {
		cached, ok, err := s.containers.Get(ctx, container, key)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"container": container, "key": key}).WithError(err).Warn("container lookup failed during offline fallback")
			continue
		}
		if ok {
			return cached, true
		}
	}
	return nil, false
}

// staleWhileRevalidate serves secondary page content: a cached entry is
// returned immediately while a coalesced background fetch refreshes it for
// next time.
func (s *InterceptService) staleWhileRevalidate(ctx context.Context, req *offline.Request) *offline.CapturedResponse {
	container := s.cfg.DynamicContainer()
	key := req.CacheKey()

	if cached, ok := s.lookupFallback(ctx, key); ok {
		go s.revalidateEntry(key, req)
		interceptionsTotal.WithLabelValues(string(offline.ClassFragment), outcomeCache).Inc()
		return cached.AnnotatedCopy(map[string]string{offline.HeaderServedFrom: offline.ServedFromCache})
	}

	resp, err := s.fetch(ctx, req)
	if err != nil {
		interceptionsTotal.WithLabelValues(string(offline.ClassFragment), outcomePlaceholder).Inc()
		return offline.SynthesizeUnavailable(time.Now())
	}
	if resp.Successful() {
		s.storeEntry(ctx, container, key, resp, req.Profile.IsConstrainedClient)
	}
	interceptionsTotal.WithLabelValues(string(offline.ClassFragment), outcomeNetwork).Inc()
	return resp
}

// revalidateEntry refreshes one cached entry off the request path. Concurrent
// refreshes of the same key are coalesced.
func (s *InterceptService) revalidateEntry(key string, req *offline.Request) {
	_, _, _ = s.revalidate.Do(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NetworkTimeout)
		defer cancel()

		resp, err := s.upstream.Do(ctx, &ports.UpstreamRequest{
			Method:  req.Method,
			URL:     req.URL(),
			Headers: req.Headers,
			Timeout: s.cfg.NetworkTimeout,
		})
		if err != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Debug("background revalidation skipped, network unavailable")
			return nil, nil
		}
		if resp.Successful() {
			s.storeEntry(ctx, s.cfg.DynamicContainer(), key, resp, req.Profile.IsConstrainedClient)
		}
		return nil, nil
	})
}

// onlineFirstWrite attempts the mutation against the network and queues it
// for replay when the network is unavailable, answering with an optimistic
// 202 that echoes the submitted payload and the generated action id.
func (s *InterceptService) onlineFirstWrite(ctx context.Context, req *offline.Request) *offline.CapturedResponse {
	resp, err := s.fetch(ctx, req)
	if err == nil {
		interceptionsTotal.WithLabelValues(string(offline.ClassAPIWrite), outcomeNetwork).Inc()
		return resp
	}

	now := time.Now()
	action := &offline.QueuedAction{
		ID:        offline.NewActionID(now),
		URL:       req.URL(),
		Method:    req.Method,
		Headers:   req.Headers,
		Body:      req.Body,
		Timestamp: now,
	}
	if qErr := s.queue.Enqueue(ctx, action); qErr != nil {
		s.logger.WithFields(logrus.Fields{"method": req.Method, "url": action.URL}).WithError(qErr).Error("failed to queue offline write")
		interceptionsTotal.WithLabelValues(string(offline.ClassAPIWrite), outcomePlaceholder).Inc()
		body, _ := json.Marshal(map[string]any{
			"success": false,
			"offline": true,
			"error":   "write could not be saved for later sync",
		})
		return &offline.CapturedResponse{
			Status:     http.StatusServiceUnavailable,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       body,
			CapturedAt: now,
		}
	}

	if n, cErr := s.queue.Count(ctx); cErr == nil {
		queueDepth.Set(float64(n))
	}
	s.logger.WithFields(logrus.Fields{"action_id": action.ID, "method": action.Method, "url": action.URL}).Info("mutating request queued for background sync")
	interceptionsTotal.WithLabelValues(string(offline.ClassAPIWrite), outcomeQueued).Inc()
	return offline.SynthesizeAccepted(action)
}

// fetch runs one bounded network attempt using the profile's two-tier timeout.
func (s *InterceptService) fetch(ctx context.Context, req *offline.Request) (*offline.CapturedResponse, error) {
	timeout := req.Profile.NetworkTimeout
	if timeout <= 0 {
		timeout = s.cfg.NetworkTimeout
	}
	return s.upstream.Do(ctx, &ports.UpstreamRequest{
		Method:  req.Method,
		URL:     req.URL(),
		Headers: req.Headers,
		Body:    req.Body,
		Timeout: timeout,
	})
}

// storeEntry writes a successful response into a container, applying the
// constrained-client ceiling on the dynamic container. Store failures are
// soft: caching is skipped, the response is unaffected.
func (s *InterceptService) storeEntry(ctx context.Context, container, key string, resp *offline.CapturedResponse, constrained bool) {
	if constrained && s.cfg.DynamicEntryCeiling > 0 && container == s.cfg.DynamicContainer() {
		if n, err := s.containers.Len(ctx, container); err == nil && n >= s.cfg.DynamicEntryCeiling {
			if err := s.containers.EvictOldest(ctx, container); err != nil {
				s.logger.WithFields(logrus.Fields{"container": container}).WithError(err).Warn("eviction failed before insert")
			}
		}
	}
	if err := s.containers.Put(ctx, container, key, resp); err != nil {
		s.logger.WithFields(logrus.Fields{"container": container, "key": key}).WithError(err).Warn("skipping cache population")
	}
}

// storeSnapshot captures the decoded body of a successful API read. Non-JSON
// bodies skip the snapshot store without failing the response.
func (s *InterceptService) storeSnapshot(ctx context.Context, endpoint string, resp *offline.CapturedResponse) {
	if !json.Valid(resp.Body) {
		s.logger.WithFields(logrus.Fields{"endpoint": endpoint}).Debug("response body is not JSON, snapshot skipped")
		return
	}
	snap := &offline.Snapshot{
		Endpoint:  endpoint,
		Data:      resp.Body,
		Timestamp: resp.CapturedAt,
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		s.logger.WithFields(logrus.Fields{"endpoint": endpoint}).WithError(err).Warn("skipping snapshot population")
	}
}

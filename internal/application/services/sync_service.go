package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/configs"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/ports"
)

// SyncService drains the write queue when the hosting page signals that
// connectivity is back. Drains replay actions in enqueue order; a failed
// replay leaves its action in place for the next trigger and never blocks
// the rest of the pass.
type SyncService struct {
	queue    ports.WriteQueue
	upstream ports.Upstream
	cfg      *configs.OfflineConfig
	logger   *logrus.Logger

	mu       sync.Mutex
	draining atomic.Bool
}

func NewSyncService(queue ports.WriteQueue, upstream ports.Upstream, cfg *configs.OfflineConfig, logger *logrus.Logger) *SyncService {
	return &SyncService{
		queue:    queue,
		upstream: upstream,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *SyncService) State() ports.SyncState {
	if s.draining.Load() {
		return ports.SyncDraining
	}
	return ports.SyncIdle
}

// Drain performs one full pass over the write queue. Triggers arriving while
// a drain is running are serialized; replays are at-least-once, so a second
// pass over an action that already landed is tolerated.
func (s *SyncService) Drain(ctx context.Context) (*ports.DrainReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draining.Store(true)
	defer s.draining.Store(false)

	actions, err := s.queue.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &ports.DrainReport{}
	if len(actions) == 0 {
		s.logger.Debug("sync triggered with empty queue, nothing to drain")
		return report, nil
	}

	s.logger.WithFields(logrus.Fields{"pending": len(actions)}).Info("draining offline write queue")

	for _, action := range actions {
		resp, err := s.upstream.Do(ctx, &ports.UpstreamRequest{
			Method:  action.Method,
			URL:     action.URL,
			Headers: action.Headers,
			Body:    action.Body,
			Timeout: s.cfg.NetworkTimeout,
		})
		if err != nil || !resp.Successful() {
			report.Failed++
			syncReplaysTotal.WithLabelValues("failed").Inc()
			fields := logrus.Fields{"action_id": action.ID, "method": action.Method, "url": action.URL}
			if err != nil {
				s.logger.WithFields(fields).WithError(err).Warn("replay failed, action retained for next sync")
			} else {
				fields["status"] = resp.Status
				s.logger.WithFields(fields).Warn("origin rejected replay, action retained for next sync")
			}
			continue
		}

		if err := s.queue.Delete(ctx, action.ID); err != nil {
			// The replay landed but the delete did not; the action will be
			// replayed again on the next trigger (at-least-once).
			report.Failed++
			s.logger.WithFields(logrus.Fields{"action_id": action.ID}).WithError(err).Error("replayed action could not be removed from queue")
			continue
		}
		report.Replayed++
		syncReplaysTotal.WithLabelValues("replayed").Inc()
		s.logger.WithFields(logrus.Fields{"action_id": action.ID, "method": action.Method, "url": action.URL}).Info("queued action replayed and removed")
	}

	if n, err := s.queue.Count(ctx); err == nil {
		report.Remaining = n
		queueDepth.Set(float64(n))
	} else {
		report.Remaining = report.Failed
	}

	s.logger.WithFields(logrus.Fields{"replayed": report.Replayed, "failed": report.Failed, "remaining": report.Remaining}).Info("drain cycle complete")
	return report, nil
}

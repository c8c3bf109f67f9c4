package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type syncTriggerRequest struct {
	Tag string `json:"tag"`
}

// triggerSync fires one drain cycle of the write queue. The hosting page
// registers the configured sync tag when a write is queued offline and calls
// this endpoint once connectivity is restored.
func (s *Server) triggerSync(c echo.Context) error {
	var req syncTriggerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid sync trigger payload"})
	}
	if req.Tag != s.offlineCfg.SyncTag {
		s.logger.WithFields(logrus.Fields{"tag": req.Tag}).Debug("ignoring unknown sync tag")
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "unknown sync tag"})
	}

	report, err := s.syncSvc.Drain(c.Request().Context())
	if err != nil {
		s.logger.WithError(err).Error("drain cycle failed to read the write queue")
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": "write queue unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"state":  s.syncSvc.State(),
		"report": report,
	})
}

type controlRequest struct {
	Type string `json:"type"`
}

const (
	controlSkipWaiting = "SKIP_WAITING"
	controlClearCaches = "CLEAR_CACHES"
)

// controlMessage handles the two control messages the hosting page may send:
// immediate takeover by the current version, and full cache deletion.
func (s *Server) controlMessage(c echo.Context) error {
	var req controlRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid control payload"})
	}

	ctx := c.Request().Context()
	switch req.Type {
	case controlSkipWaiting:
		if err := s.generations.Activate(ctx); err != nil {
			s.logger.WithError(err).Error("activation failed")
			return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": "activation failed"})
		}
	case controlClearCaches:
		if err := s.generations.Purge(ctx); err != nil {
			s.logger.WithError(err).Error("cache purge failed")
			return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": "purge failed"})
		}
	default:
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "unknown control message"})
	}

	static, dynamic := s.generations.Names()
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"type":    req.Type,
		"static":  static,
		"dynamic": dynamic,
	})
}

// listQueue exposes the pending write queue for the hosting UI.
func (s *Server) listQueue(c echo.Context) error {
	actions, err := s.queue.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": "write queue unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"count":   len(actions),
		"actions": actions,
	})
}

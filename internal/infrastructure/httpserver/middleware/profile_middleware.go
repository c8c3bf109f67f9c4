package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/configs"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
)

const profileContextKey = "client_profile"

// ProfileMiddleware resolves the client profile once per request. The
// profile carries the two parameters that differ between constrained and
// regular clients: the network timeout and the dynamic-container ceiling.
type ProfileMiddleware struct {
	cfg    *configs.OfflineConfig
	logger *logrus.Logger
}

func NewProfileMiddleware(cfg *configs.OfflineConfig, logger *logrus.Logger) *ProfileMiddleware {
	return &ProfileMiddleware{cfg: cfg, logger: logger}
}

var mobileMarkers = []string{"Mobile", "Android", "iPhone", "iPad"}

func isConstrainedClient(saveData, userAgent string) bool {
	if strings.EqualFold(saveData, "on") {
		return true
	}
	for _, marker := range mobileMarkers {
		if strings.Contains(userAgent, marker) {
			return true
		}
	}
	return false
}

// ResolveProfile stashes the resolved profile in the request context.
func (m *ProfileMiddleware) ResolveProfile() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			profile := offline.ClientProfile{
				NetworkTimeout: m.cfg.NetworkTimeout,
			}
			if isConstrainedClient(req.Header.Get("Save-Data"), req.Header.Get("User-Agent")) {
				profile.IsConstrainedClient = true
				profile.NetworkTimeout = m.cfg.ConstrainedTimeout
				profile.DynamicEntryCeiling = m.cfg.DynamicEntryCeiling
			}
			c.Set(profileContextKey, profile)
			return next(c)
		}
	}
}

// ProfileFromContext returns the resolved profile, or the regular-client
// default when the middleware did not run.
func ProfileFromContext(c echo.Context, cfg *configs.OfflineConfig) offline.ClientProfile {
	if v, ok := c.Get(profileContextKey).(offline.ClientProfile); ok {
		return v
	}
	return offline.ClientProfile{NetworkTimeout: cfg.NetworkTimeout}
}

package httpserver

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
	customMiddleware "github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/infrastructure/httpserver/middleware"
)

// Hop-by-hop headers must not be forwarded or cached.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// interceptRequest is the single entry point of the interception boundary:
// every request that is not a control or observability call lands here and
// leaves with exactly one response.
func (s *Server) interceptRequest(c echo.Context) error {
	r := c.Request()

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "unreadable request body"})
		}
	}

	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		if hopByHopHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		headers[name] = r.Header.Get(name)
	}

	req := &offline.Request{
		Method: r.Method,
		// Absolute-form request targets carry a foreign scheme and host;
		// origin-form targets are same-origin and leave both empty.
		Scheme:  r.URL.Scheme,
		Host:    r.URL.Host,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Headers: headers,
		Body:    body,
		Profile: customMiddleware.ProfileFromContext(c, s.offlineCfg),
	}

	resp, err := s.interceptor.Intercept(r.Context(), req)
	if err != nil {
		// Only passthrough traffic surfaces network errors directly.
		s.logger.WithFields(logrus.Fields{"method": req.Method, "path": req.Path, "host": req.Host}).WithError(err).Warn("passthrough request failed")
		return c.JSON(http.StatusBadGateway, map[string]any{"error": "upstream unreachable"})
	}

	return writeCaptured(c, resp)
}

// writeCaptured copies a captured response onto the wire.
func writeCaptured(c echo.Context, resp *offline.CapturedResponse) error {
	contentType := "application/octet-stream"
	for name, value := range resp.Headers {
		if http.CanonicalHeaderKey(name) == "Content-Type" {
			contentType = value
			continue
		}
		if hopByHopHeaders[http.CanonicalHeaderKey(name)] || http.CanonicalHeaderKey(name) == "Content-Length" {
			continue
		}
		c.Response().Header().Set(name, value)
	}
	return c.Blob(resp.Status, contentType, resp.Body)
}

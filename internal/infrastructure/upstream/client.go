package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/configs"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/ports"
)

// Client issues requests against the configured origin on behalf of the
// interceptor. A non-nil error always means the network attempt itself
// failed (unreachable, refused, timed out); origin responses of any status
// come back as captured responses.
type Client struct {
	origin *url.URL
	http   *http.Client
	logger *logrus.Logger
}

func NewClient(cfg *configs.UpstreamConfig, logger *logrus.Logger) (ports.Upstream, error) {
	origin, err := url.Parse(cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream origin %q: %w", cfg.Origin, err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("upstream origin %q must include scheme and host", cfg.Origin)
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		origin: origin,
		// Per-attempt deadlines come from the request context, not a global
		// client timeout, so constrained clients can run shorter bounds.
		http:   &http.Client{Transport: transport},
		logger: logger,
	}, nil
}

func (c *Client) Do(ctx context.Context, req *ports.UpstreamRequest) (*offline.CapturedResponse, error) {
	target := req.URL
	if !strings.Contains(target, "://") {
		ref, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream request url %q: %w", target, err)
		}
		target = c.origin.ResolveReference(ref).String()
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{"method": req.Method, "url": target, "elapsed": time.Since(start).String()}).WithError(err).Debug("upstream unreachable")
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{"method": req.Method, "url": target, "status": resp.StatusCode, "elapsed": time.Since(start).String()}).Debug("upstream response")
	}

	return &offline.CapturedResponse{
		Status:     resp.StatusCode,
		Headers:    headers,
		Body:       raw,
		CapturedAt: time.Now(),
	}, nil
}

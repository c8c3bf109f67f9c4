package ports

import (
	"context"
	"time"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
)

// UpstreamRequest is a request the gateway issues against the origin on the
// client's behalf.
type UpstreamRequest struct {
	Method  string
	URL     string // path plus query, resolved against the configured origin
	Headers map[string]string
	Body    []byte
	// Timeout bounds this one network attempt. Zero means the client default.
	Timeout time.Duration
}

// Upstream is the origin network boundary. Do returns an error only for
// transport-level failures (unreachable host, connection refused, timeout),
// which callers treat as "network unavailable". Any response the origin
// actually produced, including 4xx/5xx, comes back as a captured response
// with a nil error.
type Upstream interface {
	Do(ctx context.Context, req *UpstreamRequest) (*offline.CapturedResponse, error)
}

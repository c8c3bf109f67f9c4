package offline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Request is one intercepted outgoing request from the client runtime.
type Request struct {
	Method  string            `json:"method"`
	Scheme  string            `json:"scheme,omitempty"`
	Host    string            `json:"host"`
	Path    string            `json:"path"`
	Query   string            `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
	Profile ClientProfile     `json:"-"`
}

// CacheKey canonicalizes the request for container lookups (method + URL).
func (r *Request) CacheKey() string {
	if r.Query != "" {
		return r.Method + " " + r.Path + "?" + r.Query
	}
	return r.Method + " " + r.Path
}

// URL returns the path plus query, the form replayed against the origin.
func (r *Request) URL() string {
	if r.Query != "" {
		return r.Path + "?" + r.Query
	}
	return r.Path
}

// TargetURL returns the absolute form of a foreign-origin request,
// preserving the scheme it arrived with.
func (r *Request) TargetURL() string {
	scheme := r.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL()
}

// ClientProfile is resolved once per request and drives the two tuning
// parameters that differ between constrained (mobile) and regular clients.
type ClientProfile struct {
	IsConstrainedClient bool
	NetworkTimeout      time.Duration
	DynamicEntryCeiling int
}

// CapturedResponse is a full response as stored in a cache container and
// as returned by the interceptor.
type CapturedResponse struct {
	Status     int               `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"body,omitempty"`
	CapturedAt time.Time         `json:"captured_at"`
}

// Successful reports whether the response may populate caches.
func (cr *CapturedResponse) Successful() bool {
	return cr.Status >= 200 && cr.Status < 300
}

// AnnotatedCopy returns a copy carrying the extra marker headers, so
// degraded responses can be annotated without mutating the cached entry.
func (cr *CapturedResponse) AnnotatedCopy(extra map[string]string) *CapturedResponse {
	out := &CapturedResponse{
		Status:     cr.Status,
		Headers:    make(map[string]string, len(cr.Headers)+len(extra)),
		Body:       cr.Body,
		CapturedAt: cr.CapturedAt,
	}
	for k, v := range cr.Headers {
		out.Headers[k] = v
	}
	for k, v := range extra {
		out.Headers[k] = v
	}
	return out
}

// Snapshot is the last-known-good body of one readable API endpoint.
// Keyed by endpoint path; a newer capture replaces the previous one.
type Snapshot struct {
	Endpoint  string    `json:"endpoint" db:"endpoint"`
	Data      []byte    `json:"data" db:"data"`
	Timestamp time.Time `json:"timestamp" db:"captured_at"`
}

// QueuedAction is one pending mutating request awaiting replay.
// Once enqueued it is never mutated, only read and deleted.
type QueuedAction struct {
	ID        string            `json:"id" db:"id"`
	URL       string            `json:"url" db:"url"`
	Method    string            `json:"method" db:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      []byte            `json:"body,omitempty" db:"body"`
	Timestamp time.Time         `json:"timestamp" db:"queued_at"`
}

// NewActionID derives a queue identifier from the enqueue instant.
// The millisecond prefix keeps ids ordered with the queue; the uuid
// suffix keeps concurrent enqueues from distinct tabs unique.
func NewActionID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

package offline

import (
	"encoding/json"
	"net/http"
	"time"
)

// Marker headers attached to every degraded or synthesized response so the
// hosting UI can tell authoritative data from fallback data.
const (
	HeaderServedFrom     = "X-Served-From"
	HeaderCacheTimestamp = "X-Cache-Timestamp"

	ServedFromCache          = "cache"
	ServedFromOfflineStorage = "offline-storage"
	ServedFromPlaceholder    = "placeholder"
)

// AcceptedOffline is the optimistic envelope returned for a mutating request
// that was queued instead of delivered. The caller reconciles the generated
// id once the replay lands.
type AcceptedOffline struct {
	Success bool            `json:"success"`
	Offline bool            `json:"offline"`
	ID      string          `json:"id"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message"`
}

// SynthesizeAccepted builds the 202 response for a queued write, echoing the
// original submitted payload unchanged.
func SynthesizeAccepted(action *QueuedAction) *CapturedResponse {
	data := json.RawMessage(action.Body)
	if !json.Valid(action.Body) {
		quoted, _ := json.Marshal(string(action.Body))
		data = quoted
	}
	body, _ := json.Marshal(&AcceptedOffline{
		Success: true,
		Offline: true,
		ID:      action.ID,
		Data:    data,
		Message: "saved offline, will sync when connection is restored",
	})
	return &CapturedResponse{
		Status: http.StatusAccepted,
		Headers: map[string]string{
			"Content-Type":   "application/json",
			HeaderServedFrom: ServedFromPlaceholder,
		},
		Body:       body,
		CapturedAt: action.Timestamp,
	}
}

// SynthesizeEmptyCollection builds the offline placeholder for an API read
// with no cached or snapshotted data, scoped to the resource type:
// {"tasks": [], "offline": true}.
func SynthesizeEmptyCollection(resource string, now time.Time) *CapturedResponse {
	body, _ := json.Marshal(map[string]any{
		resource:  []any{},
		"offline": true,
	})
	return &CapturedResponse{
		Status: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":   "application/json",
			HeaderServedFrom: ServedFromPlaceholder,
		},
		Body:       body,
		CapturedAt: now,
	}
}

const offlinePage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Offline</title></head>
<body>
<h1>You are offline</h1>
<p>This page is not available without a connection. Changes you save will sync automatically.</p>
</body>
</html>`

// SynthesizeOfflinePage is the minimal HTML fallback for uncached page routes.
func SynthesizeOfflinePage(now time.Time) *CapturedResponse {
	return &CapturedResponse{
		Status: http.StatusServiceUnavailable,
		Headers: map[string]string{
			"Content-Type":   "text/html; charset=utf-8",
			HeaderServedFrom: ServedFromPlaceholder,
		},
		Body:       []byte(offlinePage),
		CapturedAt: now,
	}
}

// SynthesizeUnavailable is the placeholder for a static asset that is neither
// cached nor reachable.
func SynthesizeUnavailable(now time.Time) *CapturedResponse {
	body, _ := json.Marshal(map[string]any{
		"error":   "resource unavailable offline",
		"offline": true,
	})
	return &CapturedResponse{
		Status: http.StatusServiceUnavailable,
		Headers: map[string]string{
			"Content-Type":   "application/json",
			HeaderServedFrom: ServedFromPlaceholder,
		},
		Body:       body,
		CapturedAt: now,
	}
}

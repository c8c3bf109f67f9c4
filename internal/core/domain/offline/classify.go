package offline

import (
	"path"
	"strings"
)

type RouteClass string

const (
	ClassStatic      RouteClass = "static"
	ClassAPIRead     RouteClass = "api_read"
	ClassAPIWrite    RouteClass = "api_write"
	ClassPage        RouteClass = "page"
	ClassFragment    RouteClass = "fragment"
	ClassPassthrough RouteClass = "passthrough"
)

var staticExtensions = map[string]bool{
	".js":    true,
	".css":   true,
	".png":   true,
	".jpg":   true,
	".jpeg":  true,
	".gif":   true,
	".svg":   true,
	".ico":   true,
	".json":  true,
	".webp":  true,
	".woff":  true,
	".woff2": true,
	".map":   true,
}

func isReadMethod(method string) bool {
	return method == "GET" || method == "HEAD"
}

// Classify assigns a same-origin request to its caching strategy class.
// Foreign-origin requests never reach this point; the interceptor passes
// them straight to the network.
func Classify(method, requestPath string) RouteClass {
	api := strings.HasPrefix(requestPath, "/api/") || requestPath == "/api"

	if !isReadMethod(method) {
		if api {
			return ClassAPIWrite
		}
		// Non-read, non-API traffic is not ours to cache or queue.
		return ClassPassthrough
	}

	if api {
		return ClassAPIRead
	}
	if strings.HasPrefix(requestPath, "/fragments/") {
		return ClassFragment
	}
	if strings.HasPrefix(requestPath, "/static/") || strings.HasPrefix(requestPath, "/assets/") {
		return ClassStatic
	}
	if staticExtensions[strings.ToLower(path.Ext(requestPath))] {
		return ClassStatic
	}
	return ClassPage
}

// ResourceName extracts the collection name of an API path so offline
// placeholders can be scoped to the resource type, e.g.
// /api/tasks/42 -> "tasks".
func ResourceName(requestPath string) string {
	trimmed := strings.TrimPrefix(requestPath, "/api/")
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "items"
	}
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}

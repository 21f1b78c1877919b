// ABOUTME: Request logging for the dev/admin server: one key=value log.Printf line per request.
// ABOUTME: Each line carries the X-Request-Id (incoming or a fresh UUID) and the route that answered.
package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// Route names for the non-GET handlers. GET requests report their route step.
const (
	routeLogin     = "login"
	routeSaveData  = "save-data"
	routePreflight = "preflight"
	routeUnrouted  = "unrouted"
)

type requestLogKey struct{}

// requestLog wraps the response writer and collects what the log line reports.
type requestLog struct {
	http.ResponseWriter
	id     string
	route  string
	status int
	bytes  int
}

func (l *requestLog) WriteHeader(code int) {
	if l.status == 0 {
		l.status = code
	}
	l.ResponseWriter.WriteHeader(code)
}

func (l *requestLog) Write(p []byte) (int, error) {
	if l.status == 0 {
		l.status = http.StatusOK
	}
	n, err := l.ResponseWriter.Write(p)
	l.bytes += n
	return n, err
}

// noteRoute records which route answered r. It is a no-op outside the logger.
func noteRoute(r *http.Request, route string) {
	if l, ok := r.Context().Value(requestLogKey{}).(*requestLog); ok {
		l.route = route
	}
}

// routed tags a handler with its route name for the request log.
func routed(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noteRoute(r, route)
		h(w, r)
	}
}

func webRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		entry := &requestLog{ResponseWriter: w, id: id, route: "-"}
		next.ServeHTTP(entry, r.WithContext(context.WithValue(r.Context(), requestLogKey{}, entry)))

		if entry.status == 0 {
			entry.status = http.StatusOK
		}
		log.Printf("web request id=%s method=%s path=%s route=%s status=%d bytes=%d duration=%s",
			entry.id,
			r.Method,
			r.URL.Path,
			entry.route,
			entry.status,
			entry.bytes,
			time.Since(start).Round(time.Microsecond),
		)
	})
}

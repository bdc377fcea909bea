// Package router is a small method-aware HTTP mux with single-segment
// wildcard routes, used by the run-tracking API.
package router

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HandlerFunc handles one matched request.
type HandlerFunc func(http.ResponseWriter, *http.Request)

// Router dispatches by "METHOD:PATH" with `*` matching one path segment.
type Router struct {
	log    *zap.Logger
	routes map[string]HandlerFunc
	paths  []string
}

// New creates an empty router logging through log.
func New(log *zap.Logger) *Router {
	return &Router{log: log, routes: make(map[string]HandlerFunc)}
}

// GET registers a GET route.
func (r *Router) GET(path string, h HandlerFunc) { r.handle(http.MethodGet, path, h) }

// POST registers a POST route.
func (r *Router) POST(path string, h HandlerFunc) { r.handle(http.MethodPost, path, h) }

func (r *Router) handle(method, path string, h HandlerFunc) {
	key := method + ":" + path
	if _, dup := r.routes[key]; !dup {
		r.paths = append(r.paths, path)
	}
	r.routes[key] = h
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}

	h := r.match(req.Method, req.URL.Path)
	if h == nil {
		http.NotFound(lrw, req)
	} else {
		h(lrw, req)
	}

	r.log.Info("http request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", lrw.status),
		zap.Duration("elapsed", time.Since(start)))
}

func (r *Router) match(method, path string) HandlerFunc {
	if h, ok := r.routes[method+":"+path]; ok {
		return h
	}
	// Registration order decides between overlapping wildcard routes,
	// so more specific routes must be registered first.
	for _, route := range r.paths {
		if strings.Contains(route, "*") && matchWildcard(path, route) {
			if h, ok := r.routes[method+":"+route]; ok {
				return h
			}
		}
	}
	return nil
}

// matchWildcard matches a request path against a route where each `*`
// stands for exactly one path segment, except a trailing "*" after a slash
// which also matches any remainder.
func matchWildcard(path, route string) bool {
	ps := strings.Split(strings.Trim(path, "/"), "/")
	rs := strings.Split(strings.Trim(route, "/"), "/")

	if len(rs) > 0 && rs[len(rs)-1] == "*" && len(ps) >= len(rs) {
		ps = ps[:len(rs)]
	}
	if len(ps) != len(rs) {
		return false
	}
	for i := range rs {
		if rs[i] != "*" && rs[i] != ps[i] {
			return false
		}
	}
	return true
}

// PathSegment returns the i-th segment of the request path, or "".
func PathSegment(req *http.Request, i int) string {
	segs := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	if i < 0 || i >= len(segs) {
		return ""
	}
	return segs[i]
}

// Start serves the router on addr, blocking until the server stops.
func (r *Router) Start(addr string) error {
	r.log.Info("api server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, r)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

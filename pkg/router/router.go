// Package router is a small method+path router with request logging.
// Route patterns use "*" to match a single path segment, or a trailing
// "*" to match the rest of the path.
package router

import (
	"log"
	"net/http"
	"strings"
	"time"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

type route struct {
	method  string
	pattern string
	handler HandlerFunc
}

type Router struct {
	routes []route
}

func New() *Router {
	return &Router{}
}

func (r *Router) handle(method, pattern string, h HandlerFunc) {
	r.routes = append(r.routes, route{method: method, pattern: pattern, handler: h})
}

func (r *Router) GET(pattern string, h HandlerFunc)  { r.handle(http.MethodGet, pattern, h) }
func (r *Router) POST(pattern string, h HandlerFunc) { r.handle(http.MethodPost, pattern, h) }
func (r *Router) PUT(pattern string, h HandlerFunc)  { r.handle(http.MethodPut, pattern, h) }
func (r *Router) DELETE(pattern string, h HandlerFunc) {
	r.handle(http.MethodDelete, pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

	var pathMatched bool
	handled := false
	// Routes are tried in registration order, so register the more
	// specific patterns first.
	for _, rt := range r.routes {
		if !matchPattern(req.URL.Path, rt.pattern) {
			continue
		}
		pathMatched = true
		if rt.method != req.Method {
			continue
		}
		rt.handler(sw, req)
		handled = true
		break
	}
	if !handled {
		if pathMatched {
			http.Error(sw, "Method Not Allowed", http.StatusMethodNotAllowed)
		} else {
			http.Error(sw, "Not Found", http.StatusNotFound)
		}
	}

	log.Printf("%s %s %d (%v)", req.Method, req.URL.Path, sw.status, time.Since(start))
}

// matchPattern matches a request path against a pattern. "*" matches one
// segment; a trailing "*" matches everything that remains.
func matchPattern(reqPath, pattern string) bool {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	rs := strings.Split(strings.Trim(reqPath, "/"), "/")

	if len(ps) > 0 && ps[len(ps)-1] == "*" {
		// The trailing star needs at least one segment to bind to.
		if len(rs) < len(ps) {
			return false
		}
		for i := 0; i < len(ps)-1; i++ {
			if ps[i] != "*" && ps[i] != rs[i] {
				return false
			}
		}
		return true
	}

	if len(ps) != len(rs) {
		return false
	}
	for i := range ps {
		if ps[i] != "*" && ps[i] != rs[i] {
			return false
		}
	}
	return true
}

// Start blocks serving HTTP on addr.
func (r *Router) Start(addr string) error {
	log.Printf("🚀 server listening on %s", addr)
	return http.ListenAndServe(addr, r)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

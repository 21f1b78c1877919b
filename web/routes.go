// ABOUTME: Ordered GET route table: config, API passthrough, admin redirect, default documents, unbuilt guard, static, SPA fallback.
// ABOUTME: Steps run top to bottom; a step either claims the request with a handler or passes a possibly rewritten path on.
package web

import (
	"net/http"
	"path"
	"strings"
)

// Route step names returned by resolve and reported in the request log.
const (
	stepConfig         = "config"
	stepAPIPassthrough = "api-passthrough"
	stepAdminRedirect  = "admin-redirect"
	stepDefaultDoc     = "default-document"
	stepUnbuiltGuard   = "unbuilt-guard"
	stepStatic         = "static"
	stepSPAFallback    = "spa-fallback"
	stepNotFound       = "not-found"
)

// routeStep is one entry of the GET routing table. apply returns a non-nil
// handler to end routing; it may rewrite p to affect later steps.
type routeStep struct {
	name  string
	apply func(s *Server, p *string) http.Handler
}

var getRoutes = []routeStep{
	{stepConfig, func(s *Server, p *string) http.Handler {
		if *p == ConfigPath {
			return http.HandlerFunc(s.handleConfig)
		}
		return nil
	}},
	{stepAPIPassthrough, func(s *Server, p *string) http.Handler {
		if !strings.HasPrefix(*p, APIPrefix) {
			return nil
		}
		if rel, ok := s.lookup(*p); ok {
			return s.fileHandler(rel)
		}
		return s.notFoundHandler(*p)
	}},
	{stepAdminRedirect, func(s *Server, p *string) http.Handler {
		if *p == AdminPath {
			return http.RedirectHandler(AdminPath+"/", http.StatusMovedPermanently)
		}
		return nil
	}},
	{stepDefaultDoc, func(s *Server, p *string) http.Handler {
		if *p == "/" || *p == AdminPath+"/" {
			*p += "index.html"
		}
		return nil
	}},
	{stepUnbuiltGuard, func(s *Server, p *string) http.Handler {
		if !s.unbuilt() {
			return nil
		}
		if _, ok := s.lookup(*p); *p == RootDocument || !ok {
			return s.unbuiltHandler()
		}
		return nil
	}},
	{stepStatic, func(s *Server, p *string) http.Handler {
		if rel, ok := s.lookup(*p); ok {
			return s.fileHandler(rel)
		}
		return nil
	}},
	{stepSPAFallback, func(s *Server, p *string) http.Handler {
		if rel, ok := s.lookup(RootDocument); ok {
			return s.fileHandler(rel)
		}
		return nil
	}},
}

// resolve runs the route table for a GET path and returns the claiming step
// and its handler. A path no step claims resolves to a 404 handler.
func (s *Server) resolve(requestPath string) (string, http.Handler) {
	p := cleanPath(requestPath)
	for _, step := range getRoutes {
		if h := step.apply(s, &p); h != nil {
			return step.name, h
		}
	}
	return stepNotFound, s.notFoundHandler(p)
}

// handleGet serves every GET and HEAD request through the route table.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	step, h := s.resolve(r.URL.Path)
	noteRoute(r, step)
	h.ServeHTTP(w, r)
}

// cleanPath normalizes a request path to a rooted, dot-free form while
// keeping a trailing slash, which the admin redirect depends on.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

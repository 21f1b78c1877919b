// ABOUTME: Static file resolution and serving confined to the served root via os.Root.
// ABOUTME: Directories resolve through their own index.html; content type is inferred from the extension.
package web

import (
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

// lookup maps a cleaned request path to a servable file relative to the
// root. Directories resolve to their index.html. It reports false when
// nothing servable exists, including when the root itself is missing.
func (s *Server) lookup(p string) (string, bool) {
	root, err := os.OpenRoot(s.root)
	if err != nil {
		return "", false
	}
	defer func() { _ = root.Close() }()

	rel := strings.Trim(p, "/")
	if rel == "" {
		rel = "."
	}

	info, err := root.Stat(rel)
	if err != nil {
		return "", false
	}
	if info.Mode().IsRegular() {
		return rel, true
	}
	if !info.IsDir() {
		return "", false
	}

	index := path.Join(rel, "index.html")
	info, err = root.Stat(index)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return index, true
}

// fileHandler serves the file at rel. A file that disappears between lookup
// and open is answered with 404.
func (s *Server) fileHandler(rel string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		root, err := os.OpenRoot(s.root)
		if err != nil {
			s.notFoundHandler(r.URL.Path).ServeHTTP(w, r)
			return
		}
		defer func() { _ = root.Close() }()

		f, err := root.Open(rel)
		if err != nil {
			s.notFoundHandler(r.URL.Path).ServeHTTP(w, r)
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		// Zero modtime: no Last-Modified, and conditional requests never get 304.
		http.ServeContent(w, r, info.Name(), time.Time{}, f)
	})
}

func (s *Server) notFoundHandler(p string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, http.StatusNotFound, "not_found.html", PageData{
			Title: "Not found",
			Path:  p,
		})
	})
}

func (s *Server) unbuiltHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, http.StatusOK, "unbuilt.html", PageData{
			Title:    "Site not built yet",
			Path:     r.URL.Path,
			Root:     s.root,
			AppEntry: s.appEntry,
		})
	})
}

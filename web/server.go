// ABOUTME: Local dev/admin HTTP server for a static site: config endpoint, login gate, save-data, SPA serving.
// ABOUTME: Routes through a chi router; GET resolution runs the ordered route table in routes.go.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/2389-research/sitekit/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Fixed paths of the admin surface.
const (
	APIPrefix     = "/.netlify/functions/"
	LoginPath     = APIPrefix + "login"
	ConfigPath    = "/config"
	SaveDataPath  = "/save-data"
	AdminPath     = "/admin"
	RootDocument  = "/index.html"
	maxBodyBytes  = 10 << 20
	shutdownGrace = 5 * time.Second
)

// Server serves one site root and its admin endpoints. Requests are handled
// one at a time.
type Server struct {
	cfg       *config.Config
	root      string
	appEntry  string
	format    DataFormat
	dataFile  string
	templates *TemplateEngine
	router    chi.Router

	// mu serializes request handling so the data file only ever has one writer.
	mu sync.Mutex
}

// ServerConfig holds the configuration for the dev/admin server.
type ServerConfig struct {
	Config   *config.Config // loaded once at startup; required
	Root     string         // served root directory; required
	AppEntry string         // framework entry file; when it exists and Root does not, the unbuilt guard is active
	Format   DataFormat     // persistence format (default: FormatJSON)
	DataFile string         // data file relative to Root (default depends on Format)
}

// NewServer creates a Server with the given configuration and builds its router.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, fmt.Errorf("Config must not be nil")
	}
	if cfg.Root == "" {
		return nil, fmt.Errorf("Root must not be empty")
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	format := cfg.Format
	if format == "" {
		format = FormatJSON
	}
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	dataFile := cfg.DataFile
	if dataFile == "" {
		dataFile = format.DefaultFile()
	}

	appEntry := cfg.AppEntry
	if appEntry != "" {
		if appEntry, err = filepath.Abs(appEntry); err != nil {
			return nil, fmt.Errorf("resolving app entry: %w", err)
		}
	}

	tmpl, err := NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}

	s := &Server{
		cfg:       cfg.Config,
		root:      root,
		appEntry:  appEntry,
		format:    format,
		dataFile:  filepath.FromSlash(dataFile),
		templates: tmpl,
	}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("serving root=%s addr=http://%s format=%s", s.root, addr, s.format)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(webRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(noCache)
	r.Use(s.serialize)
	r.Use(middleware.GetHead)

	r.Options("/*", routed(routePreflight, handleOptions))
	r.Post(LoginPath, routed(routeLogin, s.handleLogin))
	r.Post(SaveDataPath, routed(routeSaveData, s.handleSaveData))
	r.Get("/*", s.handleGet)

	// Methods with no route on a path get the same 404 page as GET.
	r.NotFound(routed(routeUnrouted, s.handleUnrouted))
	r.MethodNotAllowed(routed(routeUnrouted, s.handleUnrouted))

	return r
}

// handleUnrouted answers requests no route accepts with the not-found page.
func (s *Server) handleUnrouted(w http.ResponseWriter, r *http.Request) {
	s.notFoundHandler(cleanPath(r.URL.Path)).ServeHTTP(w, r)
}

// serialize holds the server mutex for the whole request.
func (s *Server) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// unbuilt reports whether the served root is missing while the framework
// source is present, meaning the client app has not been compiled yet.
func (s *Server) unbuilt() bool {
	if s.appEntry == "" {
		return false
	}
	if _, err := os.Stat(s.root); !errors.Is(err, os.ErrNotExist) {
		return false
	}
	_, err := os.Stat(s.appEntry)
	return err == nil
}

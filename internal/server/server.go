// Package server exposes the inventory over a REST API: locations,
// regions, items, search, LED positioning, and image uploads. Any store
// backend can sit behind it; the remote store backend is a client of this
// same API.
package server

import (
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shelfmap/shelfmap/pkg/store"
)

// Options configures a Server.
type Options struct {
	Store store.Store
	// UploadsDir holds location and item images; created if missing.
	UploadsDir string
	Logger     *log.Logger
}

// Server handles the REST API and static uploads.
type Server struct {
	store      store.Store
	uploadsDir string
	logger     *log.Logger
	router     chi.Router
}

// New builds a server and its routes.
func New(opts Options) (*Server, error) {
	if opts.UploadsDir == "" {
		opts.UploadsDir = "uploads"
	}
	if err := os.MkdirAll(opts.UploadsDir, 0o755); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Server{
		store:      opts.Store,
		uploadsDir: opts.UploadsDir,
		logger:     opts.Logger,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(allowCORS)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(s.uploadsDir))))

	r.Route("/api", func(r chi.Router) {
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", s.handleListLocations)
			r.Post("/", s.handleCreateLocation)
			r.Route("/{locationID}", func(r chi.Router) {
				r.Get("/", s.handleGetLocation)
				r.Put("/", s.handleUpdateLocation)
				r.Delete("/", s.handleDeleteLocation)
				r.Get("/breadcrumbs", s.handleBreadcrumbs)
				r.Get("/regions", s.handleListRegions)
				r.Post("/regions", s.handleCreateRegion)
				r.Put("/regions", s.handleReplaceRegions)
			})
		})
		r.Route("/regions/{regionID}", func(r chi.Router) {
			r.Get("/", s.handleGetRegion)
			r.Put("/", s.handleUpdateRegion)
			r.Delete("/", s.handleDeleteRegion)
		})
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.Post("/", s.handleCreateItem)
			r.Route("/{itemID}", func(r chi.Router) {
				r.Get("/", s.handleGetItem)
				r.Put("/", s.handleUpdateItem)
				r.Delete("/", s.handleDeleteItem)
			})
		})
		r.Get("/search", s.handleSearch)
		r.Get("/led/{itemID}", s.handleLED)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// logRequests logs one line per request at the level the status warrants.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		}
		switch {
		case ww.Status() >= 500:
			s.logger.Error("request", fields...)
		case ww.Status() >= 400:
			s.logger.Warn("request", fields...)
		default:
			s.logger.Debug("request", fields...)
		}
	})
}

// allowCORS opens the API to browsers on other origins; the web frontend
// is typically served from a separate host on the home network.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

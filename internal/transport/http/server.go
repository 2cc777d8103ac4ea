// Package http serves the profiling dashboard, its exports and a small JSON API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/KaramelBytes/profiloom/internal/catalog"
	"github.com/KaramelBytes/profiloom/internal/metrics"
	"github.com/KaramelBytes/profiloom/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "profiloom_session"

// Deps wires the server.
type Deps struct {
	Store    *session.Store
	Workflow *session.Workflow
	Catalog  *catalog.Catalog
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	// MaxUploadBytes limits multipart uploads; 0 means 200 MiB.
	MaxUploadBytes int64
}

// Server holds the HTTP handlers.
type Server struct {
	store     *session.Store
	workflow  *session.Workflow
	catalog   *catalog.Catalog
	metrics   *metrics.Metrics
	log       *slog.Logger
	maxUpload int64
	started   time.Time
}

// NewServer creates a Server.
func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	limit := d.MaxUploadBytes
	if limit <= 0 {
		limit = 200 << 20
	}
	return &Server{
		store:     d.Store,
		workflow:  d.Workflow,
		catalog:   d.Catalog,
		metrics:   d.Metrics,
		log:       log.With("component", "http"),
		maxUpload: limit,
		started:   time.Now(),
	}
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleDashboard)
	r.Post("/source", s.handleSource)
	r.Post("/upload", s.handleUpload)
	r.Post("/upload/clear", s.handleClearUpload)
	r.Post("/configure", s.handleConfigure)
	r.Get("/report", s.handleReport)

	r.Route("/export", func(r chi.Router) {
		r.Get("/report", s.handleExportReport)
		r.Get("/sample", s.handleExportSample)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/catalog", s.handleAPICatalog)
		r.Get("/session", s.handleAPISession)
		r.Get("/report", s.handleAPIReport)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			_ = render.Render(w, r, ErrNotFound("no such endpoint"))
		})
	})

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// session returns the caller's session, issuing a cookie for new ones.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.store.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID.String(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request completed",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
			)
		})
	}
}

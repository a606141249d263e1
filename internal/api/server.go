package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/backupdash/internal/api/handler"
	mw "github.com/edvin/backupdash/internal/api/middleware"
)

// Session is the token store behind the session endpoints.
type Session interface {
	handler.SessionStore
	mw.Authenticator
}

// Deps are the services the dashboard API serves. Uploader may be nil.
type Deps struct {
	Backups       handler.BackupsService
	Connections   handler.ConnectionsService
	Session       Session
	Cache         handler.Invalidator
	Notifications handler.NotificationSource
	Exporter      handler.Exporter
	Uploader      handler.Uploader
}

type Server struct {
	router      chi.Router
	logger      zerolog.Logger
	deps        Deps
	corsOrigins []string
}

func NewServer(logger zerolog.Logger, deps Deps, corsOrigins []string) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger.With().Str("component", "api").Logger(),
		deps:        deps,
		corsOrigins: corsOrigins,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
	s.router.Use(mw.CORS(s.corsOrigins))
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealthz)

	session := handler.NewSession(s.deps.Session, s.deps.Cache)
	backups := handler.NewBackups(s.deps.Backups)
	connections := handler.NewConnections(s.deps.Connections)
	export := handler.NewExport(s.deps.Exporter, s.deps.Uploader)
	events := handler.NewEvents(s.deps.Backups, s.deps.Notifications, originHosts(s.corsOrigins))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", session.Get)
		r.Post("/session", session.Login)
		r.Delete("/session", session.Logout)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireSession(s.deps.Session))

			r.Get("/backups", backups.Get)
			r.Post("/backups", backups.Create)
			r.Put("/backups/page", backups.SetPage)
			r.Put("/backups/search", backups.SetSearch)
			r.Post("/backups/refresh", backups.Refresh)

			r.Post("/backups/schedule", backups.CreateSchedule)
			r.Put("/backups/schedule/{connectionID}", backups.UpdateSchedule)
			r.Delete("/backups/schedule/{connectionID}", backups.DisableSchedule)

			r.Get("/backups/export", export.Download)
			r.Post("/backups/export/s3", export.Upload)

			r.Get("/connections", connections.List)
			r.Get("/connections/{id}", connections.Get)

			r.Get("/events", events.Stream)
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// originHosts turns CORS origins into the host patterns the WebSocket
// handshake matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}

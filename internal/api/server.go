package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gethomeport/resmon/internal/activity"
	"github.com/gethomeport/resmon/internal/alertlog"
	"github.com/gethomeport/resmon/internal/config"
	"github.com/gethomeport/resmon/internal/logger"
	"github.com/gethomeport/resmon/internal/monitor"
	"github.com/gethomeport/resmon/internal/store"
)

type Server struct {
	cfg      *config.Config
	monitor  *monitor.Monitor
	store    *store.Store
	alerts   *alertlog.Log
	activity *activity.Log
	hub      *Hub
	log      logger.Logger
	router   chi.Router
	started  time.Time
}

func NewServer(cfg *config.Config, mon *monitor.Monitor, st *store.Store, alerts *alertlog.Log, act *activity.Log, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}

	s := &Server{
		cfg:      cfg,
		monitor:  mon,
		store:    st,
		alerts:   alerts,
		activity: act,
		hub:      NewHub(log.With("component", "hub")),
		log:      log,
		started:  time.Now(),
	}

	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		// Websocket stream is long-lived and stays outside the request timeout
		r.Get("/ws", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/status", s.handleStatus)
			r.Get("/snapshot", s.handleSnapshot)

			r.Get("/thresholds", s.handleGetThresholds)
			r.Put("/thresholds", s.handleUpdateThresholds)

			r.Route("/monitor", func(r chi.Router) {
				r.Post("/pause", s.handlePause)
				r.Post("/resume", s.handleResume)
			})

			r.Get("/logs", s.handleGetLogs)
			r.Delete("/logs", s.handleClearLogs)

			r.Get("/alerts", s.handleListAlerts)
			r.Get("/activity", s.handleGetActivity)
			r.Get("/version", s.handleVersion)
		})
	})

	s.router = r
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub. It must be subscribed to the monitor and
// run for stream clients to receive anything.
func (s *Server) Hub() *Hub {
	return s.hub
}

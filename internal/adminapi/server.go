package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrivas/taskpool/internal/adminapi/handlers"
	adminmw "github.com/mrivas/taskpool/internal/adminapi/middleware"
	"github.com/mrivas/taskpool/internal/adminapi/websocket"
	"github.com/mrivas/taskpool/internal/config"
	"github.com/mrivas/taskpool/internal/events"
	"github.com/mrivas/taskpool/internal/pool"
)

// Server is the pool's admin HTTP surface: task submission, pool/worker
// introspection, metrics, and a dashboard websocket — adapted from the
// teacher's internal/api.Server.
type Server struct {
	router       *chi.Mux
	pool         *pool.Pool
	cfg          *config.Config
	taskHandler  *handlers.TaskHandler
	adminHandler *handlers.AdminHandler
	wsHub        *websocket.Hub
	wsHandler    *websocket.Handler
}

// NewServer wires routes, middleware and the dashboard hub around p.
// factory materializes task submissions; bus is the event source the
// dashboard websocket subscribes to.
func NewServer(cfg *config.Config, p *pool.Pool, factory handlers.Factory, bus *events.Bus) *Server {
	hub := websocket.NewHub(bus)

	s := &Server{
		router:       chi.NewRouter(),
		pool:         p,
		cfg:          cfg,
		taskHandler:  handlers.NewTaskHandler(p, factory),
		adminHandler: handlers.NewAdminHandler(p),
		wsHub:        hub,
		wsHandler:    websocket.NewHandler(hub),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(chimw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Heartbeat("/health"))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.AllowContentType("application/json"))
		if s.cfg.Auth.Enabled {
			r.Use(adminmw.Auth(adminmw.AuthConfig{Enabled: true, JWTSecret: s.cfg.Auth.JWTSecret}))
		}
		r.Use(adminmw.ClientRateLimit(200))

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.taskHandler.Create)
			r.Get("/{uid}", s.taskHandler.Get)
			r.Get("/", s.taskHandler.List)
		})
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Use(chimw.AllowContentType("application/json"))
		r.Get("/health", s.adminHandler.HealthCheck)
		r.Get("/status", s.adminHandler.Status)
		r.Get("/workers", s.adminHandler.ListWorkers)
	})

	s.router.Get("/ws", s.wsHandler.ServeWS)

	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	}
}

// Start launches the dashboard hub's loop.
func (s *Server) Start(ctx context.Context) {
	go s.wsHub.Run(ctx)
}

// Stop stops the dashboard hub.
func (s *Server) Stop() {
	s.wsHub.Stop()
}

// Router returns the underlying chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer builds a *http.Server bound to addr using the configured
// timeouts, ready for ListenAndServe/Shutdown by the caller.
func HTTPServer(addr string, s *Server, readTimeout, writeTimeout, idleTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

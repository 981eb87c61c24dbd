// Package devserver is a development stand-in for the diabetes backend:
// it implements the client's full HTTP contract over an in-memory store so
// the sync layer, scheduler, and MCP server have a real peer to talk to.
package devserver

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/claude/glucosync/internal/models"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	log    *slog.Logger
	apiKey string
	router chi.Router

	mu    sync.Mutex
	users map[string]*userData
}

// userData is what the stub remembers per user: which calendar days each
// kind has data for, plus sync counters.
type userData struct {
	days    map[models.SampleKind]map[string]bool
	records int
	syncs   int
}

// New creates a Server with all routes configured. An empty apiKey
// disables auth on the write endpoints.
func New(apiKey string, log *slog.Logger) *Server {
	s := &Server{
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
		users:  make(map[string]*userData),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/debug-health-data", s.handleCoverage)
	s.router.Get("/api/check-first-time-sync", s.handleFirstTimeCheck)
	s.router.Get("/api/diabetes-dashboard", s.handleDashboard)
	s.router.Get("/api/insights", s.handleInsights)

	// Write endpoints (API key required when configured)
	s.router.Group(func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Post("/api/sync-dashboard-health-data", s.handleSync)
		r.Post("/api/clear-all-health-data", s.handleClearAll)
	})
}

func (s *Server) user(id string) *userData {
	u, ok := s.users[id]
	if !ok {
		u = &userData{days: make(map[models.SampleKind]map[string]bool)}
		s.users[id] = u
	}
	return u
}

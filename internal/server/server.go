// Package server exposes the request-handler surface consumed by the
// web application: manual publication refresh, the cached dashboard
// summary, in-app notification reads, and deadline acknowledgment.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lexdesk/deadline-alerts/internal/cache"
	"github.com/lexdesk/deadline-alerts/internal/job"
	"github.com/lexdesk/deadline-alerts/internal/publications"
	"github.com/lexdesk/deadline-alerts/internal/store"
)

// Server wires the handlers onto a chi router.
type Server struct {
	store  store.Store
	cache  *cache.Cache
	pubs   *publications.Service
	runner *job.Runner
	logger *zap.Logger
}

// New creates a Server. runner may be nil when the HTTP surface runs
// without the embedded job loop.
func New(s store.Store, c *cache.Cache, pubs *publications.Service, runner *job.Runner, logger *zap.Logger) *Server {
	return &Server{
		store:  s,
		cache:  c,
		pubs:   pubs,
		runner: runner,
		logger: logger.Named("server"),
	}
}

// Router builds the HTTP route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/publications/refresh", s.refreshPublications)
		r.Get("/dashboard/summary", s.dashboardSummary)
		r.Get("/notifications", s.listNotifications)
		r.Post("/notifications/{id}/read", s.markNotificationRead)
		r.Post("/deadlines/{id}/acknowledge", s.acknowledgeDeadline)
		r.Post("/jobs/alert-pass", s.triggerAlertPass)
	})

	return r
}

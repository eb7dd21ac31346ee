package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	recognize := handlers.NewRecognizeHandler(s.state)
	attendance := handlers.NewAttendanceHandler(s.state.Store)
	gal := handlers.NewGalleryHandler(s.state, s.jobManager)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Health check stays open so probes work without credentials.
		r.Get("/health", handlers.HealthCheck)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(s.config.Web.Token))

			r.Post("/recognize", recognize.Recognize)

			r.Get("/attendance", attendance.Today)
			r.Get("/attendance/{date}", attendance.ByDate)

			r.Get("/gallery", gal.List)
			r.Post("/gallery/reload", gal.Reload)
			r.Get("/jobs/{id}", s.jobManager.GetJob)
		})
	})
}

package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/ondrejvana/rollcall/internal/attendance"
	"github.com/ondrejvana/rollcall/internal/store"
	"github.com/ondrejvana/rollcall/internal/web/handlers"
	"github.com/ondrejvana/rollcall/internal/web/middleware"
)

func (s *Server) setupRoutes(st *store.Store, service *attendance.Service) {
	// Create handlers
	authHandler := handlers.NewAuthHandler(s.config, s.sessionManager)
	dashboardHandler := handlers.NewDashboardHandler(service)
	studentsHandler := handlers.NewStudentsHandler(st.Students, service, dashboardHandler.InvalidateCache)
	attendanceHandler := handlers.NewAttendanceHandler(service, dashboardHandler.InvalidateCache)
	recordsHandler := handlers.NewRecordsHandler(service)
	settingsHandler := handlers.NewSettingsHandler(st.Settings)
	captureHandler := handlers.NewCaptureHandler(s.config, s.captureManager, service, nil)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// All other routes require authentication
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))

			// Dashboard
			r.Get("/dashboard/metrics", dashboardHandler.Metrics)
			r.Get("/dashboard/trend", dashboardHandler.Trend)

			// Students
			r.Get("/students", studentsHandler.List)
			r.Post("/students", studentsHandler.Register)
			r.Get("/students/{id}", studentsHandler.Get)

			// Attendance
			r.Post("/attendance/recognize", attendanceHandler.Recognize)
			r.Post("/attendance/mark", attendanceHandler.Mark)
			r.Get("/attendance/records", recordsHandler.Get)

			// Settings
			r.Get("/settings", settingsHandler.Get)
			r.Put("/settings", settingsHandler.Update)

			// Capture (long-running camera session)
			r.Post("/capture/start", captureHandler.Start)
			r.Get("/capture/status", captureHandler.Status)
			r.Delete("/capture", captureHandler.Stop)
			r.Get("/capture/events", captureHandler.Events)
		})
	})
}

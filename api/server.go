/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboard clients

ROUTE GROUPS:
  /api/latefees/*       Late-fee calculation
  /api/dunning/*        Escalation processing and sweeps
  /api/proration/*      Partial-period rent
  /api/policies/*       Policy management
  /api/invoices/*       Invoice lifecycle
  /api/organizations/*  Per-organization settings and statements

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Late-fee routes
		r.Route("/latefees", func(r chi.Router) {
			r.Post("/compute", h.ComputeLateFee)
			r.Post("/assess", h.AssessLateFee)
		})

		// Dunning routes
		r.Route("/dunning", func(r chi.Router) {
			r.Post("/process", h.ProcessDunning)
			r.Post("/sweep", h.TriggerSweep)
			r.Get("/sweeps", h.ListSweepRuns)
		})

		// Proration routes
		r.Route("/proration", func(r chi.Router) {
			r.Post("/compute", h.ComputeProration)
		})

		// Policy routes
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
			r.Get("/{id}", h.GetPolicy)
		})

		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", h.CreateInvoice)
			r.Get("/{id}", h.GetInvoice)
			r.Post("/{id}/pay", h.PayInvoice)
			r.Get("/{id}/notices", h.ListInvoiceNotices)
		})

		// Organization routes
		r.Route("/organizations/{id}", func(r chi.Router) {
			r.Get("/dunning-settings", h.GetDunningSettings)
			r.Put("/dunning-settings", h.UpdateDunningSettings)
			r.Get("/statement", h.GetStatement)
		})
	})

	// Health check for load balancers and container orchestration.
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the planning frontend

ROUTE GROUPS:
  /api/v1/plan/*   Every plan operation
  /healthz         Liveness probe

SECURITY NOTE:
  No authentication middleware currently; the service is deployed behind
  the gateway that authenticates salespeople and injects identity.

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

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/plan", func(r chi.Router) {
		// Seeding and editing
		r.Post("/seed", h.SeedBaseline)
		r.Post("/rows", h.UpsertRow)

		// Lifecycle
		r.Get("/stages", h.GetStages)
		r.Get("/status", h.GetStatus)
		r.Post("/confirm", h.ConfirmCustomer)

		// Rollups
		r.Get("/totals", h.GetTotals)
		r.Get("/totals/confirmed", h.GetConfirmedTotals)
		r.Get("/totals/all", h.GetPlanTotals)
		r.Get("/breakdown", h.GetBreakdown)

		// Customer views
		r.Get("/customers/{customerSeq}/monthly", h.GetCustomerMonthly)
		r.Get("/customers/{customerSeq}/rows", h.GetCustomerMonthlyRows)
		r.Get("/customer-counts", h.GetCustomerCounts)
		r.Get("/customer-counts/overall", h.GetOverallCustomerCounts)

		// Remarks
		r.Get("/remark", h.GetRemark)
		r.Put("/remark", h.SetRemark)
	})

	return r
}

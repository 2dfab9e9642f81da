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
  4. CORS:       Cross-origin requests for admin UI

ROUTE GROUPS:
  /api/employees/*   Roster, rate history, overrides, timesheets
  /api/deductions/*  Deduction catalog
  /api/runs/*        Run generation, lifecycle, GL posting, pay stubs
  /api/accounts      Chart of accounts
  /api/ledger/*      Journal entries
  /api/scenarios/*   Demo data loaders (development only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)

			r.Get("/{id}/rates", h.ListRates)
			r.Post("/{id}/rates", h.CreateRate)
			r.Get("/{id}/rates/effective", h.GetEffectiveRate)

			r.Get("/{id}/overrides", h.ListOverrides)
			r.Put("/{id}/overrides/{deductionID}", h.SetOverride)

			r.Get("/{id}/time", h.ListTime)
			r.Post("/{id}/time", h.RecordTime)
		})

		// Deduction catalog routes
		r.Route("/deductions", func(r chi.Router) {
			r.Get("/", h.ListDeductions)
			r.Post("/", h.CreateDeduction)
		})

		// Payroll run routes
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Post("/", h.GenerateRun)
			r.Get("/{id}", h.GetRun)
			r.Post("/{id}/process", h.ProcessRun)
			r.Post("/{id}/cancel", h.CancelRun)
			r.Post("/{id}/post", h.PostRun)
			r.Get("/{id}/paystubs/{employeeID}", h.GetPayStub)
		})

		// Ledger routes
		r.Get("/accounts", h.ListAccounts)
		r.Route("/ledger", func(r chi.Router) {
			r.Get("/entries", h.ListEntries)
		})

		// Demo scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

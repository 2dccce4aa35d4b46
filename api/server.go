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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/tandas/*      Tanda, participant and payment management
  /api/register/*    Public registration via shared links
  /api/scenarios/*   Demo data loaders (development only)

SECURITY NOTE:
  No authentication middleware currently. The board and register
  endpoints are meant to be public; the rest should sit behind a proxy
  in production.

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/tandas", func(r chi.Router) {
			r.Get("/", h.ListTandas)
			r.Post("/", h.CreateTanda)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetTanda)
				r.Put("/", h.UpdateTanda)
				r.Delete("/", h.DeleteTanda)

				r.Route("/participants", func(r chi.Router) {
					r.Get("/", h.ListParticipants)
					r.Post("/", h.CreateParticipant)
					r.Put("/{pid}", h.UpdateParticipant)
					r.Delete("/{pid}", h.DeleteParticipant)
				})

				r.Route("/payments", func(r chi.Router) {
					r.Post("/toggle", h.TogglePayment)
					r.Put("/", h.RecordPayment)
					r.Get("/matrix", h.PaymentMatrix)
				})

				r.Get("/stats", h.GetStats)
				r.Get("/status", h.GetStatus)
				r.Get("/rotation", h.GetRotation)
				r.Get("/board", h.GetBoard)

				r.Post("/links", h.CreateLink)
				r.Post("/close-registration", h.CloseRegistration)
			})
		})

		// Public registration through shared links.
		r.Route("/register/{token}", func(r chi.Router) {
			r.Get("/", h.GetRegistration)
			r.Post("/", h.Register)
		})

		// Demo scenarios (development only).
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

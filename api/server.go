/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. Logger:     Request logging
  4. Recover:    Panic recovery, renders the 500 page
  5. CORS:       Cross-origin requests for API clients

ROUTE GROUPS:
  /, /showSummary, /book/*, /points, /logout    HTML pages
  /purchasePlaces, /api/purchases               Purchases (rate limited)
  /api/points, /api/competitions                Read-only JSON
  anything else                                 404 page

SECURITY NOTE:
  No authentication. A secretary is identified by email alone, as in the
  original portal.

SEE ALSO:
  - handlers.go: Handler implementations
  - ratelimit.go: Per-IP purchase limiter
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds the router settings that come from configuration.
type RouterConfig struct {
	CORSOrigins []string

	// Limiter throttles purchase endpoints. Nil disables throttling.
	Limiter *RateLimiter
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(h.Recover)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	// Pages
	r.Get("/", h.Index)
	r.Post("/showSummary", h.ShowSummary)
	r.Get("/book/{competition}/{club}", h.Book)
	r.Get("/points", h.Points)
	r.Get("/logout", h.Logout)

	// Read-only API
	r.Get("/api/points", h.APIPoints)
	r.Get("/api/competitions", h.APICompetitions)

	// Purchases
	r.Group(func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(cfg.Limiter.Limit)
		}
		r.Post("/purchasePlaces", h.PurchasePlaces)
		r.Post("/api/purchases", h.APIPurchase)
	})

	r.NotFound(h.NotFound)

	return r
}

// Recover turns a panic into the 500 page.
func (h *Handler) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Printf("[API] panic serving %s %s (request %s): %v\n%s",
				r.Method, r.URL.Path, middleware.GetReqID(r.Context()), rec, debug.Stack())
			h.InternalError(w, r)
		}()
		next.ServeHTTP(w, r)
	})
}

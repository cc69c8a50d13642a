package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threadline-dev/threadline/backend/internal/setup"
	mw "github.com/threadline-dev/threadline/shared/middleware"
	"github.com/threadline-dev/threadline/shared/middleware/metrics"
	rl "github.com/threadline-dev/threadline/shared/middleware/ratelimiter"
	"github.com/threadline-dev/threadline/shared/utils"
)

// Limiters are kept on the router so the caller can stop their sweeps on shutdown.
type Limiters struct {
	all []*rl.UserRateLimiter
}

func (l *Limiters) new(rate, capacity float64) *rl.UserRateLimiter {
	limiter := rl.New(rate, capacity, time.Hour)
	l.all = append(l.all, limiter)
	return limiter
}

func (l *Limiters) Stop() {
	for _, limiter := range l.all {
		limiter.Stop()
	}
}

// New builds the API router.
// IMPORTANT! ratelimiters set with .Use limit requests for all endpoints of that group combined
func New(deps *setup.Dependencies) (http.Handler, *Limiters) {
	limiters := &Limiters{}
	h := deps.Handler
	authMw := deps.AuthMiddleware

	clientIP := mw.GetIP
	if deps.Config.Public.TrustProxy {
		clientIP = utils.GetIP
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.Compress(5, "application/json"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Public.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.SecurityHeaders(deps.Config.Public.HTTPS, mw.APIContentSecurityPolicy))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.GlobalRateLimit(limiters.new(1000, 1000))) // 1000 global RPS

		// Reads are public; cached views are shared by everyone.
		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit(limiters.new(20, 40), clientIP)) // 20 RPS per IP
			if deps.ViewCache != nil {
				r.Use(deps.ViewCache.Middleware)
			}
			r.Get("/convos", h.ListConvos)
			r.Get("/convos/{id}", h.GetConvo)
			r.Get("/users/{id}", h.GetUser)
			r.Get("/users/{id}/convos", h.UserConvos)
			r.Get("/communities/{id}", h.GetCommunity)
			r.Get("/communities/{id}/convos", h.CommunityConvos)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMw.NeedAuth())
			r.Use(mw.RateLimit(limiters.new(10, 20), mw.GetUserIDFromContext)) // 10 RPS per user

			// posting: 1 per second per user
			r.With(mw.RateLimit(limiters.new(1, 3), mw.GetUserIDFromContext)).Post("/convos", h.CreateConvo)
			r.With(mw.RateLimit(limiters.new(1, 3), mw.GetUserIDFromContext)).Post("/convos/{id}/replies", h.AddReply)
			r.Delete("/convos/{id}", h.DeleteConvo)
			r.Put("/users/me", h.Onboard)
			// community creation: burst of 3, then 1 per minute per user
			r.With(mw.RateLimit(limiters.new(1.0/60, 3), mw.GetUserIDFromContext)).Post("/communities", h.CreateCommunity)
		})
	})

	return r, limiters
}

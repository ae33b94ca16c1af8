// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitnessoverlays/fitnessoverlays/internal/auth"
	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
)

// Router wires middleware, auth and data routes into one http.Handler.
type Router struct {
	cfg      *config.Config
	handler  *Handler
	sessions *auth.SessionManager
	flow     *auth.FlowHandler
}

// NewRouter creates the HTTP router.
func NewRouter(cfg *config.Config, handler *Handler, sessions *auth.SessionManager, flow *auth.FlowHandler) *Router {
	return &Router{cfg: cfg, handler: handler, sessions: sessions, flow: flow}
}

// Setup builds the route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.corsMiddleware())

	// Auth routes get the strict limiter; credential-issuing endpoints are
	// the ones worth brute-forcing.
	r.Route("/auth", func(r chi.Router) {
		r.Use(router.rateLimit(router.cfg.Security.RateLimitAuthRequests))
		r.Get("/login", router.flow.Login)
		r.Get("/callback", router.flow.Callback)
		r.Post("/logout", router.flow.Logout)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(securityHeadersMiddleware)
		r.Use(prometheusMiddleware)
		r.Use(router.rateLimit(router.cfg.Security.RateLimitRequests))

		r.Get("/health", router.handler.Health)

		r.Group(func(r chi.Router) {
			r.Use(router.sessions.Middleware)

			r.Get("/me", router.handler.Me)
			r.Get("/athlete", router.handler.Athlete)
			r.Get("/activities", router.handler.Activities)
			r.Get("/activities/{id}", router.handler.Activity)
			r.Post("/sync", router.handler.Sync)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimit returns a per-IP fixed-window limiter, or a no-op when rate
// limiting is disabled for tests and local development.
func (router *Router) rateLimit(requests int) func(http.Handler) http.Handler {
	if router.cfg.Security.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}

	window := router.cfg.Security.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	return httprate.LimitByIP(requests, window)
}

func (router *Router) corsMiddleware() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   router.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

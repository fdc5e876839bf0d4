// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/curatus/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler shape.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// RouterOptions carries the edge-facing knobs for the route tree.
// Empty CORS origins leave browsers same-origin only, and a zero
// request budget disables rate limiting entirely.
type RouterOptions struct {
	CORSOrigins       []string
	RateLimitReqs     int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// NewRouter builds the full route tree around the handler set.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           86400,
		}))
	}
	if !opts.RateLimitDisabled && opts.RateLimitReqs > 0 {
		window := opts.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.Limit(
			opts.RateLimitReqs,
			window,
			httprate.WithKeyFuncs(httprate.KeyByRealIP),
		))
	}

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(middleware.Compression))

		r.Route("/lists", func(r chi.Router) {
			r.Post("/chat", h.GenerateChatList)
			r.Get("/{listID}/suggestions", h.Suggestions)
		})

		r.Get("/search", h.Search)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/profile", h.Profile)
			r.Get("/preference", h.UserPreference)
			r.Route("/phases", func(r chi.Router) {
				r.Post("/detect", h.DetectPhases)
				r.Get("/current", h.CurrentPhase)
				r.Get("/next", h.PredictNextPhase)
			})
		})

		r.Route("/pairwise/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.SessionStatus)
				r.Get("/status", h.SessionStatus)
				r.Get("/next", h.NextPair)
				r.Post("/judgments", h.SubmitJudgment)
				r.Post("/abandon", h.AbandonSession)
			})
		})
	})

	return r
}

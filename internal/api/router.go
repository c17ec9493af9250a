// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the control API route tree.
//
// Probes and metrics sit outside /api/v1 so monitoring keeps working when
// auth is enabled or the rate limit is exhausted.
func NewRouter(handler *Handler, mw *Middleware) *chi.Mux {
	r := chi.NewRouter()

	r.Use(mw.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(mw.Recoverer())
	r.Use(mw.SecurityHeaders())
	r.Use(mw.CORS())

	r.Get("/healthz", handler.Health)
	r.Get("/readyz", handler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(mw.Metrics())
		r.Use(mw.Auth())

		r.Get("/status", handler.Status)

		r.Route("/device", func(r chi.Router) {
			r.Post("/discover", handler.Discover)
			r.Post("/pair", handler.Pair)
			r.Post("/forget", handler.Forget)
		})

		r.Get("/tracking", handler.Tracking)
		r.Post("/tracking/stop", handler.TrackingStop)
		r.Get("/mappings", handler.Mappings)
		r.Get("/buffer", handler.Buffer)
		r.Get("/history", handler.History)

		r.Get("/events", handler.Events)
	})

	return r
}

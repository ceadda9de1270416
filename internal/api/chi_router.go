// Fieldsync - Offline-First Field Health Data Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/fieldsync/internal/middleware"
)

// RemoteSyncPath is where the remote merge endpoint is mounted.
const RemoteSyncPath = "/api/v1/remote/sync"

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware

	// remote, when set, is mounted at RemoteSyncPath.
	remote http.Handler
}

// NewRouter creates a Router. A nil mw uses the default middleware config.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
	}
}

// MountRemote serves remote (see remote.NewHandler) so that other devices
// can use this node as their merge store.
func (router *Router) MountRemote(remote http.Handler) {
	router.remote = remote
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(chimiddleware.Compress(5, "application/json"))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/sync/status", router.handler.SyncStatus)
		r.With(router.chiMiddleware.RateLimit()).Post("/sync", router.handler.TriggerSync)
		r.Put("/connectivity", router.handler.SetConnectivity)
		r.Get("/ws", router.handler.WebSocket)

		r.Route("/symptom-logs", router.handler.symptomLogRoutes().mount)
		r.Route("/patients", router.handler.patientRoutes().mount)
		r.Route("/enrollments", router.handler.enrollmentRoutes().mount)

		if router.remote != nil {
			r.Mount("/remote/sync", router.remote)
		}
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

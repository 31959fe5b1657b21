// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/groovesync/internal/middleware"
)

// Authenticator wraps handlers that require a signed-in user.
type Authenticator interface {
	Authenticate(next http.Handler) http.Handler
}

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	authenticator Authenticator
	chiMiddleware *ChiMiddleware
}

func NewRouter(handler *Handler, authenticator Authenticator, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, authenticator: authenticator, chiMiddleware: mw}
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.AccessLog)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", router.handler.Health)

		r.Group(func(r chi.Router) {
			r.Use(router.authenticator.Authenticate)

			// The socket route must not sit behind Compress.
			r.Get("/ws", router.handler.WebSocket)

			r.Group(func(r chi.Router) {
				r.Use(chimiddleware.Compress(5, "application/json"))

				r.Get("/sync/last-modified", router.handler.LastModified)
				r.Get("/sync/entity-type/{entityType}/minimum/{minimum}/maximum/{maximum}", router.handler.EntityChanges)
				r.Post("/track/mark-listened", router.handler.MarkListened)

				r.Get("/device", router.handler.ListDevices)
				r.Put("/device", router.handler.UpsertDevice)
				r.Post("/device/party", router.handler.SetPartyMode)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}

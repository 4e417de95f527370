// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

// Package httpapi serves the JSON API: registration, login, and the
// ownership-scoped items CRUD. Every route translates domain error kinds
// into HTTP statuses; authentication failures are 401, ownership
// failures are 403.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stockroom/stockroom/internal/auth"
	"github.com/stockroom/stockroom/internal/item"
	"github.com/stockroom/stockroom/internal/observability"
)

// Deps carries the collaborators the API serves.
type Deps struct {
	Registrar     *auth.Registrar
	Authenticator *auth.Authenticator
	Guard         *auth.Guard
	Items         *item.Service
	Logger        *slog.Logger
	Metrics       *observability.Metrics // optional
	Version       string
}

// API holds the handlers and their collaborators.
type API struct {
	registrar     *auth.Registrar
	authenticator *auth.Authenticator
	guard         *auth.Guard
	items         *item.Service
	logger        *slog.Logger
	metrics       *observability.Metrics
	version       string
	now           func() time.Time
}

// NewAPI creates the API. A nil logger falls back to slog.Default; a nil
// Metrics disables instrumentation.
func NewAPI(deps Deps) *API {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		registrar:     deps.Registrar,
		authenticator: deps.Authenticator,
		guard:         deps.Guard,
		items:         deps.Items,
		logger:        logger,
		metrics:       deps.Metrics,
		version:       deps.Version,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Router builds the route tree.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(a.logRequests)
	r.Use(secureHeaders)
	r.Use(middleware.Recoverer)
	r.Use(a.measure)

	r.Get("/", a.handleRoot)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", a.handleRegister)
			r.Post("/token", a.handleToken)

			r.Group(func(r chi.Router) {
				r.Use(a.requireAuth)
				r.Get("/me", a.handleMe)
			})
		})

		r.Route("/items", func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Get("/", a.handleListItems)
			r.Post("/", a.handleCreateItem)
			r.Get("/my-items", a.handleMyItems)

			r.Route("/{itemID}", func(r chi.Router) {
				r.Get("/", a.handleGetItem)
				r.Put("/", a.handleUpdateItem)
				r.Delete("/", a.handleDeleteItem)
			})
		})
	})

	return r
}

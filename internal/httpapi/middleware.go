// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/stockroom/stockroom/internal/auth"
	"github.com/stockroom/stockroom/internal/logging"
)

// errNoToken is the uniform failure for requests with no bearer
// credential, the same kind as every other token failure.
var errNoToken = oops.Code("AUTH_UNAUTHORIZED").
	With("reason", "missing_token").
	Errorf("not authenticated")

type userKey struct{}

// UserFrom returns the authenticated identity stored in ctx by the auth
// middleware, or nil outside an authenticated request.
func UserFrom(ctx context.Context) *auth.User {
	user, _ := ctx.Value(userKey{}).(*auth.User)
	return user
}

// requestContext copies the chi request id into the logging context so
// every record emitted while serving the request carries request_id.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// secureHeaders adds the standard hardening headers to every response.
// HSTS is only meaningful over TLS.
func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests emits one structured record per served request.
func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		a.logger.InfoContext(r.Context(), "request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// measure records request count and duration against the matched route
// pattern, keeping label cardinality bounded.
func (a *API) measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		a.metrics.RecordRequest(r.Method, route, ww.Status(), time.Since(start))
	})
}

// requireAuth resolves the bearer token and stores the identity in the
// request context. Missing, malformed and invalid tokens all produce the
// same 401; the finer reason stays in the server log.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			a.recordResolution("failure")
			writeError(w, errNoToken)
			return
		}

		user, err := a.guard.Resolve(r.Context(), token, a.now())
		if err != nil {
			a.recordResolution("failure")
			a.logger.WarnContext(r.Context(), "token resolution failed", "error", err)
			writeError(w, err)
			return
		}

		a.recordResolution("success")
		ctx := context.WithValue(r.Context(), userKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (a *API) recordResolution(outcome string) {
	if a.metrics != nil {
		a.metrics.RecordTokenResolution(outcome)
	}
}

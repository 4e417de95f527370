// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/stockroom/stockroom/pkg/errutil"
)

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON encodes v as the response body. Encoding failures are logged,
// not surfaced; the status line has already been written.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError translates an error into the envelope for its kind. Kinds
// map to statuses by their oops code; anything unrecognized is an
// internal error with a generic message so operational details never
// reach clients.
func writeError(w http.ResponseWriter, err error) {
	code := errutil.Code(err)
	status := statusForCode(code)

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	if status == http.StatusInternalServerError {
		writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// statusForCode maps error kinds to HTTP statuses. The two authentication
// kinds collapse to 401 while the ownership kind is a distinct 403, so
// not-authenticated and not-entitled stay externally distinguishable.
func statusForCode(code string) int {
	switch code {
	case "AUTH_INVALID_CREDENTIALS", "AUTH_UNAUTHORIZED":
		return http.StatusUnauthorized
	case "AUTH_FORBIDDEN":
		return http.StatusForbidden
	case "USER_USERNAME_TAKEN", "USER_EMAIL_TAKEN":
		return http.StatusConflict
	case "USER_NOT_FOUND", "ITEM_NOT_FOUND":
		return http.StatusNotFound
	case "AUTH_INVALID_USERNAME", "AUTH_INVALID_EMAIL", "AUTH_INVALID_PASSWORD",
		"AUTH_INVALID_FULL_NAME", "ITEM_INVALID_TITLE", "ITEM_INVALID_PRICE",
		"REQUEST_INVALID":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

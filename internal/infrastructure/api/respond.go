package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"garagem-shopify-layer/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusForError maps service errors to a status code and a stable caller
// message. Diagnostic detail (exchange bodies, upstream GraphQL errors) never
// leaves the logs.
func statusForError(err error) (int, string) {
	var exchangeErr *domain.TokenExchangeError
	switch {
	case errors.Is(err, domain.ErrNotInstalled):
		return http.StatusUnauthorized, "Shop not installed (missing token). Run /auth?shop=..."
	case errors.Is(err, domain.ErrStateNotFound):
		return http.StatusUnauthorized, "Invalid state"
	case errors.As(err, &exchangeErr):
		return http.StatusInternalServerError, "Failed to complete installation"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

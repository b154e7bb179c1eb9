package api

import (
	"net/http"

	"garagem-shopify-layer/internal/application"
	"garagem-shopify-layer/internal/infrastructure/metrics"
	"garagem-shopify-layer/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
)

// AuthAPI serves the OAuth installation endpoints.
type AuthAPI struct {
	auth     *application.AuthService
	verifier *shopify.Verifier
	logger   zerolog.Logger
}

// NewAuthAPI creates the OAuth handler set.
func NewAuthAPI(auth *application.AuthService, verifier *shopify.Verifier, logger zerolog.Logger) *AuthAPI {
	return &AuthAPI{
		auth:     auth,
		verifier: verifier,
		logger:   logger,
	}
}

// Install handles GET /auth?shop=<domain>: issues a state nonce and redirects
// to the platform authorize URL.
func (a *AuthAPI) Install(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		writeError(w, http.StatusBadRequest, "Missing shop")
		return
	}

	authURL, err := a.auth.BeginInstall(r.Context(), shop)
	if err != nil {
		a.logger.Error().Err(err).Str("shop", shop).Msg("Failed to start installation")
		status, msg := statusForError(err)
		writeError(w, status, msg)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /auth-callback: verifies the redirect HMAC, consumes
// the state nonce and completes the token exchange.
func (a *AuthAPI) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	shop := query.Get("shop")
	code := query.Get("code")
	state := query.Get("state")

	if shop == "" || code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "Missing params")
		return
	}

	if !a.verifier.VerifyAuthHMAC(query) {
		metrics.SignatureFailuresTotal.WithLabelValues("hmac").Inc()
		a.logger.Warn().Str("shop", shop).Msg("OAuth callback HMAC verification failed")
		writeError(w, http.StatusUnauthorized, "Invalid hmac")
		return
	}

	if err := a.auth.CompleteInstall(r.Context(), shop, code, state); err != nil {
		a.logger.Error().Err(err).Str("shop", shop).Msg("Failed to complete installation")
		status, msg := statusForError(err)
		writeError(w, status, msg)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("App installed. You can close this tab."))
}

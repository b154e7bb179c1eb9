package api

import (
	"encoding/json"
	"io"
	"net/http"

	"garagem-shopify-layer/internal/application"
	"garagem-shopify-layer/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
)

// WebhookAPI receives Shopify webhooks. The only subscribed topic is
// app/uninstalled, which removes the shop session so the stored token is not
// treated as live after a merchant uninstalls.
type WebhookAPI struct {
	auth     *application.AuthService
	verifier *shopify.Verifier
	logger   zerolog.Logger
}

// NewWebhookAPI creates the webhook handler.
func NewWebhookAPI(auth *application.AuthService, verifier *shopify.Verifier, logger zerolog.Logger) *WebhookAPI {
	return &WebhookAPI{
		auth:     auth,
		verifier: verifier,
		logger:   logger,
	}
}

// Handle processes POST /webhooks/shopify.
func (h *WebhookAPI) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	if !h.verifier.VerifyWebhook(payload, r.Header.Get("X-Shopify-Hmac-SHA256")) {
		h.logger.Warn().Msg("Webhook signature verification failed")
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	topic := r.Header.Get("X-Shopify-Topic")
	if topic == "" {
		writeError(w, http.StatusBadRequest, "Missing X-Shopify-Topic header")
		return
	}

	shop := r.Header.Get("X-Shopify-Shop-Domain")
	if shop == "" {
		// Fallback: uninstall payloads carry the shop domain in the body.
		var data map[string]any
		if err := json.Unmarshal(payload, &data); err == nil {
			if d, ok := data["domain"].(string); ok {
				shop = d
			} else if d, ok := data["myshopify_domain"].(string); ok {
				shop = d
			}
		}
	}

	if topic == "app/uninstalled" && shop != "" {
		if err := h.auth.Uninstall(r.Context(), shop); err != nil {
			h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to process uninstall webhook")
			// 500 triggers a redelivery from Shopify.
			writeError(w, http.StatusInternalServerError, "Failed to process webhook event")
			return
		}
	} else {
		h.logger.Info().Str("topic", topic).Str("shop", shop).Msg("Ignoring unhandled webhook topic")
	}

	writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
}

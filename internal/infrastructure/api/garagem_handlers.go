package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"garagem-shopify-layer/internal/application"
	"garagem-shopify-layer/internal/infrastructure/metrics"
	"garagem-shopify-layer/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
)

// GaragemAPI serves the App Proxy favorites endpoints.
type GaragemAPI struct {
	garagem  *application.GaragemService
	verifier *shopify.Verifier
	logger   zerolog.Logger
}

// NewGaragemAPI creates the favorites handler set.
func NewGaragemAPI(garagem *application.GaragemService, verifier *shopify.Verifier, logger zerolog.Logger) *GaragemAPI {
	return &GaragemAPI{
		garagem:  garagem,
		verifier: verifier,
		logger:   logger,
	}
}

type listResponse struct {
	Success   bool     `json:"success"`
	Favorites []string `json:"favorites"`
}

type toggleRequest struct {
	CollectionGid string `json:"collectionGid"`
}

type toggleResponse struct {
	Success    bool     `json:"success"`
	Favorites  []string `json:"favorites"`
	IsFavorite bool     `json:"isFavorite"`
}

// List handles GET /garagem/list: returns the customer's favorite set.
func (g *GaragemAPI) List(w http.ResponseWriter, r *http.Request) {
	// Anti-cache: a stale favorites list makes the storefront heart state
	// flicker after refresh.
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()
	shop := g.shopFrom(r)
	customerID := strings.TrimSpace(query.Get("logged_in_customer_id"))

	if shop == "" || customerID == "" {
		writeError(w, http.StatusBadRequest, "Missing shop/customerId")
		return
	}

	if !g.verifier.VerifyProxySignature(query) {
		metrics.SignatureFailuresTotal.WithLabelValues("proxy").Inc()
		g.logger.Warn().Str("shop", shop).Msg("App Proxy signature verification failed")
		writeError(w, http.StatusUnauthorized, "Invalid proxy signature")
		return
	}

	favorites, err := g.garagem.List(r.Context(), shop, customerID)
	if err != nil {
		status, msg := statusForError(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Success: true, Favorites: favorites})
}

// Toggle handles POST /garagem/toggle: flips membership of the collection in
// the customer's favorite set.
func (g *GaragemAPI) Toggle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()
	shop := g.shopFrom(r)
	customerID := strings.TrimSpace(query.Get("logged_in_customer_id"))

	var body toggleRequest
	if r.Body != nil {
		// A missing or invalid body falls through to the missing-data check.
		json.NewDecoder(r.Body).Decode(&body)
	}
	collectionGid := strings.TrimSpace(body.CollectionGid)

	if shop == "" || customerID == "" || collectionGid == "" {
		writeError(w, http.StatusBadRequest, "Missing data")
		return
	}

	if !g.verifier.VerifyProxySignature(query) {
		metrics.SignatureFailuresTotal.WithLabelValues("proxy").Inc()
		g.logger.Warn().Str("shop", shop).Msg("App Proxy signature verification failed")
		writeError(w, http.StatusUnauthorized, "Invalid proxy signature")
		return
	}

	favorites, isFavorite, err := g.garagem.Toggle(r.Context(), shop, customerID, collectionGid)
	if err != nil {
		status, msg := statusForError(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, toggleResponse{
		Success:    true,
		Favorites:  favorites,
		IsFavorite: isFavorite,
	})
}

// shopFrom resolves the shop domain from the query, falling back to the App
// Proxy forwarding header.
func (g *GaragemAPI) shopFrom(r *http.Request) string {
	shop := strings.TrimSpace(r.URL.Query().Get("shop"))
	if shop == "" {
		shop = strings.TrimSpace(r.Header.Get("X-Shopify-Shop-Domain"))
	}
	return shop
}

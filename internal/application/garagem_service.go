package application

import (
	"context"
	"encoding/json"
	"fmt"

	"garagem-shopify-layer/internal/config"
	"garagem-shopify-layer/internal/domain"
	"garagem-shopify-layer/internal/infrastructure/metrics"
	"garagem-shopify-layer/internal/ports"

	"github.com/rs/zerolog"
)

// GaragemService reads and mutates the favorite set stored in the customer
// metafield. All mutations are read-modify-write; there is no isolation
// between concurrent toggles for the same customer, so the last write wins.
type GaragemService struct {
	shopRepo      ports.ShopRepository
	client        ports.AdminClient
	encryptionSvc ports.EncryptionService
	cfg           *config.Config
	logger        zerolog.Logger
}

// NewGaragemService creates a new favorites service.
func NewGaragemService(
	shopRepo ports.ShopRepository,
	client ports.AdminClient,
	encryptionSvc ports.EncryptionService,
	cfg *config.Config,
	logger zerolog.Logger,
) *GaragemService {
	return &GaragemService{
		shopRepo:      shopRepo,
		client:        client,
		encryptionSvc: encryptionSvc,
		cfg:           cfg,
		logger:        logger,
	}
}

// List returns the customer's normalized favorite set. Absent or malformed
// remote data reads as an empty set.
func (s *GaragemService) List(ctx context.Context, shop, customerID string) ([]string, error) {
	token, err := s.accessToken(ctx, shop)
	if err != nil {
		return nil, err
	}
	favorites, _, err := s.readFavorites(ctx, shop, token, customerID)
	return favorites, err
}

// Toggle flips membership of collectionGid in the customer's favorite set
// and writes the result back. Returns the updated set and whether the
// collection is now a favorite.
func (s *GaragemService) Toggle(ctx context.Context, shop, customerID, collectionGid string) ([]string, bool, error) {
	token, err := s.accessToken(ctx, shop)
	if err != nil {
		return nil, false, err
	}

	current, _, err := s.readFavorites(ctx, shop, token, customerID)
	if err != nil {
		return nil, false, err
	}

	updated, isFavorite := domain.ToggleFavorite(current, collectionGid)

	value, err := json.Marshal(updated)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode favorites: %w", err)
	}

	field := ports.MetafieldInput{
		Namespace:  s.cfg.MetafieldNamespace,
		Key:        s.cfg.MetafieldKey,
		CustomerID: customerID,
	}
	if err := s.client.SetCustomerMetafield(ctx, shop, token, field, string(value)); err != nil {
		s.logger.Error().Err(err).
			Str("shop", shop).
			Str("customer_id", customerID).
			Msg("Failed to write favorites metafield")
		return nil, false, err
	}

	action := "removed"
	if isFavorite {
		action = "added"
	}
	metrics.TogglesTotal.WithLabelValues(action).Inc()
	s.logger.Info().
		Str("shop", shop).
		Str("customer_id", customerID).
		Str("collection", collectionGid).
		Str("action", action).
		Msg("Favorite toggled")

	return updated, isFavorite, nil
}

// accessToken looks up and decrypts the shop's stored token. A missing
// session is the normal not-installed condition.
func (s *GaragemService) accessToken(ctx context.Context, shop string) (string, error) {
	session, err := s.shopRepo.GetShop(ctx, shop)
	if err != nil {
		return "", fmt.Errorf("failed to get shop session: %w", err)
	}
	if session == nil {
		return "", domain.ErrNotInstalled
	}

	token, err := s.encryptionSvc.Decrypt(session.AccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt access token: %w", err)
	}
	return token, nil
}

func (s *GaragemService) readFavorites(ctx context.Context, shop, token, customerID string) ([]string, domain.FavoriteState, error) {
	field := ports.MetafieldInput{
		Namespace:  s.cfg.MetafieldNamespace,
		Key:        s.cfg.MetafieldKey,
		CustomerID: customerID,
	}

	raw, err := s.client.GetCustomerMetafield(ctx, shop, token, field)
	if err != nil {
		return nil, "", err
	}

	favorites, state := domain.ParseFavorites(raw)
	metrics.MetafieldReadsTotal.WithLabelValues(string(state)).Inc()
	if state == domain.FavoritesMalformed {
		// Recovered as an empty set; the raw value stays in the logs.
		s.logger.Warn().
			Str("shop", shop).
			Str("customer_id", customerID).
			Str("raw_value", raw).
			Msg("Favorites metafield is not a JSON array, treating as empty")
	}
	return favorites, state, nil
}

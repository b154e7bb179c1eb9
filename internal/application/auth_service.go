package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"garagem-shopify-layer/internal/config"
	"garagem-shopify-layer/internal/domain"
	"garagem-shopify-layer/internal/infrastructure/metrics"
	"garagem-shopify-layer/internal/ports"

	"github.com/rs/zerolog"
)

// AuthService implements the OAuth installation flow: state issuance at
// kickoff, and state consumption plus token exchange at callback.
type AuthService struct {
	shopRepo      ports.ShopRepository
	stateStore    ports.StateStore
	client        ports.AdminClient
	encryptionSvc ports.EncryptionService
	cfg           *config.Config
	logger        zerolog.Logger
}

// NewAuthService creates a new OAuth installation service.
func NewAuthService(
	shopRepo ports.ShopRepository,
	stateStore ports.StateStore,
	client ports.AdminClient,
	encryptionSvc ports.EncryptionService,
	cfg *config.Config,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		shopRepo:      shopRepo,
		stateStore:    stateStore,
		client:        client,
		encryptionSvc: encryptionSvc,
		cfg:           cfg,
		logger:        logger,
	}
}

// BeginInstall issues a fresh state nonce for the shop and returns the
// platform authorize URL to redirect to. No HMAC check happens at kickoff;
// the request only needs a shop and a state.
func (s *AuthService) BeginInstall(ctx context.Context, shop string) (string, error) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	if err := s.stateStore.Create(ctx, &domain.OAuthState{
		State:     state,
		Shop:      shop,
		CreatedAt: time.Now(),
	}); err != nil {
		return "", fmt.Errorf("failed to create oauth state: %w", err)
	}

	s.logger.Info().Str("shop", shop).Msg("OAuth installation started")
	return s.client.AuthorizeURL(shop, state), nil
}

// CompleteInstall consumes the state nonce, exchanges the authorization code
// for an access token and persists the shop session (upsert). The nonce must
// resolve to the same shop the callback names.
func (s *AuthService) CompleteInstall(ctx context.Context, shop, code, state string) error {
	expectedShop, err := s.stateStore.Consume(ctx, state)
	if err != nil {
		return err
	}
	if expectedShop != shop {
		s.logger.Warn().
			Str("shop", shop).
			Str("expected_shop", expectedShop).
			Msg("OAuth state resolved to a different shop")
		return domain.ErrStateNotFound
	}

	token, err := s.client.ExchangeToken(ctx, shop, code)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
		return err
	}

	encryptedToken, err := s.encryptionSvc.Encrypt(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	session := &domain.ShopSession{
		Domain:      shop,
		AccessToken: encryptedToken,
		Scopes:      s.cfg.Scopes,
	}
	if err := s.shopRepo.SaveShop(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to save shop session")
		return fmt.Errorf("failed to save shop session: %w", err)
	}

	metrics.InstallsTotal.Inc()
	s.logger.Info().Str("shop", shop).Str("scopes", s.cfg.Scopes).Msg("App installed")
	return nil
}

// Uninstall removes the shop session. Called from the app/uninstalled
// webhook; the stored token is invalid from that point on.
func (s *AuthService) Uninstall(ctx context.Context, shop string) error {
	if err := s.shopRepo.DeleteShop(ctx, shop); err != nil {
		return fmt.Errorf("failed to remove shop session: %w", err)
	}
	s.logger.Info().Str("shop", shop).Msg("App uninstalled, session removed")
	return nil
}

package ports

import (
	"context"

	"garagem-shopify-layer/internal/domain"
)

// ShopRepository defines the interface for shop session persistence.
type ShopRepository interface {
	// SaveShop creates or replaces the session for a shop domain.
	SaveShop(ctx context.Context, session *domain.ShopSession) error

	// GetShop retrieves the session for a shop domain. A missing session is
	// a normal condition and returns (nil, nil).
	GetShop(ctx context.Context, shopDomain string) (*domain.ShopSession, error)

	// DeleteShop removes the session for a shop domain.
	DeleteShop(ctx context.Context, shopDomain string) error
}

// StateStore defines the interface for one-time OAuth state nonces.
type StateStore interface {
	// Create inserts a pending state. A duplicate nonce is an error.
	Create(ctx context.Context, state *domain.OAuthState) error

	// Consume atomically looks up and deletes a state, returning the shop it
	// was issued for. A missing (or already consumed, or expired) state
	// returns ("", domain.ErrStateNotFound). No two callers can both consume the
	// same nonce.
	Consume(ctx context.Context, state string) (string, error)
}

// EncryptionService defines the interface for encrypting tokens at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

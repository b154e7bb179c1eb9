package ports

import "context"

// MetafieldInput identifies the customer metafield holding the favorite set.
type MetafieldInput struct {
	Namespace  string
	Key        string
	CustomerID string
}

// AdminClient defines the interface for Shopify Admin API operations.
type AdminClient interface {
	// AuthorizeURL builds the OAuth authorization URL for a shop.
	AuthorizeURL(shop string, state string) string

	// ExchangeToken exchanges an authorization code for an access token.
	// One-shot: failures are never retried here.
	ExchangeToken(ctx context.Context, shop string, code string) (string, error)

	// GetCustomerMetafield returns the raw value of the customer metafield,
	// or "" when the metafield does not exist.
	GetCustomerMetafield(ctx context.Context, shop, accessToken string, field MetafieldInput) (string, error)

	// SetCustomerMetafield writes the value via an upsert-style metafieldsSet.
	SetCustomerMetafield(ctx context.Context, shop, accessToken string, field MetafieldInput, value string) error
}

package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"garagem-shopify-layer/internal/config"
	"garagem-shopify-layer/internal/domain"
	"garagem-shopify-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// Every outbound call to Shopify is bounded; a hung upstream must not hold a
// request past this.
const requestTimeout = 10 * time.Second

type client struct {
	cfg        *config.Config
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a Shopify Admin API client adapter.
func NewClient(cfg *config.Config, logger zerolog.Logger) ports.AdminClient {
	app := goshopify.App{
		ApiKey:      cfg.APIKey,
		ApiSecret:   cfg.APISecret,
		RedirectUrl: cfg.AppURL + "/auth-callback",
		Scope:       cfg.Scopes,
	}
	return &client{
		cfg:        cfg,
		app:        app,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// AuthorizeURL builds the OAuth authorization URL for a shop. Shopify expects
// scopes comma-separated without spaces.
func (c *client) AuthorizeURL(shop string, state string) string {
	return fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		c.cfg.APIKey,
		url.QueryEscape(c.cfg.Scopes),
		url.QueryEscape(c.app.RedirectUrl),
		url.QueryEscape(state),
	)
}

// ExchangeToken exchanges the authorization code for an access token with a
// direct call to Shopify's token endpoint, so the redirect_uri matches the
// one used during authorization. Any non-success response, or a response
// lacking a token, is a hard failure carrying the raw body; never retried.
func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	if c.app.RedirectUrl == "" {
		// Fallback to the go-shopify library when no redirect URI is configured.
		token, err := c.app.GetAccessToken(ctx, shop, code)
		if err != nil {
			return "", fmt.Errorf("failed to exchange token: %w", err)
		}
		return token, nil
	}

	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)

	payload, err := json.Marshal(map[string]string{
		"client_id":     c.cfg.APIKey,
		"client_secret": c.cfg.APISecret,
		"code":          code,
		"redirect_uri":  c.app.RedirectUrl,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &domain.TokenExchangeError{Status: resp.StatusCode, Body: string(body)}
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return "", &domain.TokenExchangeError{Status: resp.StatusCode, Body: string(body)}
	}
	if tokenResponse.AccessToken == "" {
		return "", &domain.TokenExchangeError{Status: resp.StatusCode, Body: string(body)}
	}

	return tokenResponse.AccessToken, nil
}

// graphql issues one Admin GraphQL call and decodes the data envelope.
// Top-level GraphQL errors are an upstream failure.
func (c *client) graphql(ctx context.Context, shop, accessToken, query string, variables map[string]any, out any) error {
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, c.cfg.APIVersion)

	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("failed to encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read graphql response: %w", err)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode graphql response: status %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || len(envelope.Errors) > 0 {
		c.logger.Error().
			Str("shop", shop).
			Int("status", resp.StatusCode).
			RawJSON("body", body).
			Msg("Admin GraphQL call failed")
		return fmt.Errorf("graphql call failed: status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode graphql data: %w", err)
		}
	}
	return nil
}

const customerMetafieldQuery = `
query($id: ID!, $namespace: String!, $key: String!) {
  customer(id: $id) {
    metafield(namespace: $namespace, key: $key) { value }
  }
}`

// GetCustomerMetafield returns the raw metafield value, or "" when the
// customer or metafield does not exist.
func (c *client) GetCustomerMetafield(ctx context.Context, shop, accessToken string, field ports.MetafieldInput) (string, error) {
	var data struct {
		Customer *struct {
			Metafield *struct {
				Value string `json:"value"`
			} `json:"metafield"`
		} `json:"customer"`
	}

	vars := map[string]any{
		"id":        customerGID(field.CustomerID),
		"namespace": field.Namespace,
		"key":       field.Key,
	}
	if err := c.graphql(ctx, shop, accessToken, customerMetafieldQuery, vars, &data); err != nil {
		return "", err
	}

	if data.Customer == nil || data.Customer.Metafield == nil {
		return "", nil
	}
	return data.Customer.Metafield.Value, nil
}

const metafieldsSetMutation = `
mutation metafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    userErrors { field message }
  }
}`

// SetCustomerMetafield writes the value with an upsert-style metafieldsSet.
// Field-level validation errors from the API surface as a write failure.
func (c *client) SetCustomerMetafield(ctx context.Context, shop, accessToken string, field ports.MetafieldInput, value string) error {
	var data struct {
		MetafieldsSet struct {
			UserErrors []domain.FieldError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}

	vars := map[string]any{
		"metafields": []map[string]any{
			{
				"ownerId":   customerGID(field.CustomerID),
				"namespace": field.Namespace,
				"key":       field.Key,
				"type":      "json",
				"value":     value,
			},
		},
	}
	if err := c.graphql(ctx, shop, accessToken, metafieldsSetMutation, vars, &data); err != nil {
		return err
	}

	if len(data.MetafieldsSet.UserErrors) > 0 {
		return &domain.MetafieldWriteError{Errors: data.MetafieldsSet.UserErrors}
	}
	return nil
}

func customerGID(customerID string) string {
	return "gid://shopify/Customer/" + customerID
}

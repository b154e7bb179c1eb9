package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"garagem-shopify-layer/internal/config"
	"garagem-shopify-layer/internal/domain"
	"garagem-shopify-layer/internal/ports"
)

func testConfig() *config.Config {
	return &config.Config{
		APIKey:             "key",
		APISecret:          "secret",
		AppURL:             "https://garagem.example.com",
		Scopes:             "read_customers,write_customers",
		APIVersion:         "2026-01",
		MetafieldNamespace: "custom",
		MetafieldKey:       "garagem",
	}
}

type fakeShopRepo struct {
	sessions map[string]*domain.ShopSession
	getErr   error
}

func newFakeShopRepo() *fakeShopRepo {
	return &fakeShopRepo{sessions: make(map[string]*domain.ShopSession)}
}

func (r *fakeShopRepo) SaveShop(_ context.Context, session *domain.ShopSession) error {
	copied := *session
	r.sessions[session.Domain] = &copied
	return nil
}

func (r *fakeShopRepo) GetShop(_ context.Context, shopDomain string) (*domain.ShopSession, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	session, ok := r.sessions[shopDomain]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (r *fakeShopRepo) DeleteShop(_ context.Context, shopDomain string) error {
	delete(r.sessions, shopDomain)
	return nil
}

type fakeStateStore struct {
	states map[string]string
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]string)}
}

func (s *fakeStateStore) Create(_ context.Context, state *domain.OAuthState) error {
	if _, ok := s.states[state.State]; ok {
		return domain.ErrDuplicateState
	}
	s.states[state.State] = state.Shop
	return nil
}

func (s *fakeStateStore) Consume(_ context.Context, state string) (string, error) {
	shop, ok := s.states[state]
	if !ok {
		return "", domain.ErrStateNotFound
	}
	delete(s.states, state)
	return shop, nil
}

type fakeEncryption struct{}

func (fakeEncryption) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (fakeEncryption) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errors.New("not encrypted")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

type fakeAdminClient struct {
	token       string
	exchangeErr error

	metafields map[string]string
	getErr     error
	setErr     error

	exchangedShop string
	exchangedCode string
	lastWrite     string
}

func newFakeAdminClient() *fakeAdminClient {
	return &fakeAdminClient{
		token:      "shpat_test",
		metafields: make(map[string]string),
	}
}

func (c *fakeAdminClient) AuthorizeURL(shop string, state string) string {
	return fmt.Sprintf("https://%s/admin/oauth/authorize?client_id=key&state=%s", shop, state)
}

func (c *fakeAdminClient) ExchangeToken(_ context.Context, shop string, code string) (string, error) {
	if c.exchangeErr != nil {
		return "", c.exchangeErr
	}
	c.exchangedShop = shop
	c.exchangedCode = code
	return c.token, nil
}

func (c *fakeAdminClient) GetCustomerMetafield(_ context.Context, _, _ string, field ports.MetafieldInput) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.metafields[field.CustomerID], nil
}

func (c *fakeAdminClient) SetCustomerMetafield(_ context.Context, _, _ string, field ports.MetafieldInput, value string) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.metafields[field.CustomerID] = value
	c.lastWrite = value
	return nil
}

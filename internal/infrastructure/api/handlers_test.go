package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"garagem-shopify-layer/internal/application"
	"garagem-shopify-layer/internal/config"
	"garagem-shopify-layer/internal/domain"
	"garagem-shopify-layer/internal/infrastructure/shopify"
	"garagem-shopify-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "secret"

func testConfig() *config.Config {
	return &config.Config{
		APIKey:             "key",
		APISecret:          testSecret,
		AppURL:             "https://garagem.example.com",
		Scopes:             "read_customers,write_customers",
		APIVersion:         "2026-01",
		MetafieldNamespace: "custom",
		MetafieldKey:       "garagem",
	}
}

// --- fakes ---

type fakeShopRepo struct {
	sessions map[string]*domain.ShopSession
}

func (r *fakeShopRepo) SaveShop(_ context.Context, s *domain.ShopSession) error {
	r.sessions[s.Domain] = s
	return nil
}

func (r *fakeShopRepo) GetShop(_ context.Context, shopDomain string) (*domain.ShopSession, error) {
	return r.sessions[shopDomain], nil
}

func (r *fakeShopRepo) DeleteShop(_ context.Context, shopDomain string) error {
	delete(r.sessions, shopDomain)
	return nil
}

type fakeStateStore struct {
	states map[string]string
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

func (fakeEncryption) Encrypt(plaintext string) (string, error) { return "enc:" + plaintext, nil }

func (fakeEncryption) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errors.New("not encrypted")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

type fakeAdminClient struct {
	metafields map[string]string
	getErr     error
}

func (c *fakeAdminClient) AuthorizeURL(shop string, state string) string {
	return fmt.Sprintf("https://%s/admin/oauth/authorize?client_id=key&state=%s", shop, state)
}

func (c *fakeAdminClient) ExchangeToken(_ context.Context, _, _ string) (string, error) {
	return "shpat_test", nil
}

func (c *fakeAdminClient) GetCustomerMetafield(_ context.Context, _, _ string, field ports.MetafieldInput) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.metafields[field.CustomerID], nil
}

func (c *fakeAdminClient) SetCustomerMetafield(_ context.Context, _, _ string, field ports.MetafieldInput, value string) error {
	c.metafields[field.CustomerID] = value
	return nil
}

// --- harness ---

type testEnv struct {
	router *chi.Mux
	repo   *fakeShopRepo
	states *fakeStateStore
	client *fakeAdminClient
}

func newTestEnv() *testEnv {
	cfg := testConfig()
	logger := zerolog.Nop()
	repo := &fakeShopRepo{sessions: make(map[string]*domain.ShopSession)}
	states := &fakeStateStore{states: make(map[string]string)}
	client := &fakeAdminClient{metafields: make(map[string]string)}
	verifier := shopify.NewVerifier(cfg.APISecret)

	authService := application.NewAuthService(repo, states, client, fakeEncryption{}, cfg, logger)
	garagemService := application.NewGaragemService(repo, client, fakeEncryption{}, cfg, logger)

	authAPI := NewAuthAPI(authService, verifier, logger)
	garagemAPI := NewGaragemAPI(garagemService, verifier, logger)
	webhookAPI := NewWebhookAPI(authService, verifier, logger)

	r := chi.NewRouter()
	r.Get("/auth", authAPI.Install)
	r.Get("/auth-callback", authAPI.Callback)
	r.Get("/garagem/list", garagemAPI.List)
	r.Post("/garagem/toggle", garagemAPI.Toggle)
	r.Post("/webhooks/shopify", webhookAPI.Handle)

	return &testEnv{router: r, repo: repo, states: states, client: client}
}

func (e *testEnv) install(shop string) {
	e.repo.sessions[shop] = &domain.ShopSession{Domain: shop, AccessToken: "enc:shpat_test"}
}

// signProxyQuery adds a valid App Proxy signature over the query values.
func signProxyQuery(query url.Values) {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k + "=" + query[k][0])
	}

	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(sb.String()))
	query.Set("signature", hex.EncodeToString(mac.Sum(nil)))
}

// signAuthQuery adds a valid OAuth redirect hmac over the query values.
func signAuthQuery(query url.Values) {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+strings.Join(query[k], ","))
	}

	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	query.Set("hmac", hex.EncodeToString(mac.Sum(nil)))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- tests ---

func TestInstallEndpoint(t *testing.T) {
	t.Run("missing shop is a 400 with an error body and no redirect", func(t *testing.T) {
		env := newTestEnv()
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, rec.Header().Get("Location"))
		assert.Contains(t, decodeBody(t, rec), "error")
		assert.Empty(t, env.states.states)
	})

	t.Run("redirects to the authorize URL with a fresh state", func(t *testing.T) {
		env := newTestEnv()
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth?shop=a.myshopify.com", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		location := rec.Header().Get("Location")
		assert.Contains(t, location, "https://a.myshopify.com/admin/oauth/authorize")
		require.Len(t, env.states.states, 1)
		for state := range env.states.states {
			assert.Contains(t, location, state)
		}
	})
}

func TestCallbackEndpoint(t *testing.T) {
	t.Run("completes the installation", func(t *testing.T) {
		env := newTestEnv()
		env.states.states["nonce1"] = "a.myshopify.com"

		query := url.Values{
			"shop":  {"a.myshopify.com"},
			"code":  {"code123"},
			"state": {"nonce1"},
		}
		signAuthQuery(query)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth-callback?"+query.Encode(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, env.repo.sessions["a.myshopify.com"])
		assert.Equal(t, "enc:shpat_test", env.repo.sessions["a.myshopify.com"].AccessToken)
	})

	t.Run("missing params is a 400", func(t *testing.T) {
		env := newTestEnv()
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth-callback?shop=a.myshopify.com", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid hmac is a 401", func(t *testing.T) {
		env := newTestEnv()
		env.states.states["nonce1"] = "a.myshopify.com"

		query := url.Values{
			"shop":  {"a.myshopify.com"},
			"code":  {"code123"},
			"state": {"nonce1"},
			"hmac":  {"deadbeef"},
		}

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth-callback?"+query.Encode(), nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, env.repo.sessions)
	})

	t.Run("tampered shop after signing is a 401", func(t *testing.T) {
		env := newTestEnv()
		env.states.states["nonce1"] = "a.myshopify.com"

		query := url.Values{
			"shop":  {"a.myshopify.com"},
			"code":  {"code123"},
			"state": {"nonce1"},
		}
		signAuthQuery(query)
		query.Set("shop", "evil.myshopify.com")

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth-callback?"+query.Encode(), nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown state is a 401", func(t *testing.T) {
		env := newTestEnv()

		query := url.Values{
			"shop":  {"a.myshopify.com"},
			"code":  {"code123"},
			"state": {"nonce-unknown"},
		}
		signAuthQuery(query)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth-callback?"+query.Encode(), nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListEndpoint(t *testing.T) {
	t.Run("missing params is a 400", func(t *testing.T) {
		env := newTestEnv()
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/garagem/list?shop=a.myshopify.com", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid signature is a 401", func(t *testing.T) {
		env := newTestEnv()
		env.install("a.myshopify.com")

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/garagem/list?shop=a.myshopify.com&logged_in_customer_id=123&signature=bad", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("not installed is a 401", func(t *testing.T) {
		env := newTestEnv()
		query := url.Values{
			"shop":                  {"a.myshopify.com"},
			"logged_in_customer_id": {"123"},
		}
		signProxyQuery(query)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/garagem/list?"+query.Encode(), nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "not installed")
	})

	t.Run("returns favorites with no-store", func(t *testing.T) {
		env := newTestEnv()
		env.install("a.myshopify.com")
		env.client.metafields["123"] = `["gid://shopify/Collection/9"]`

		query := url.Values{
			"shop":                  {"a.myshopify.com"},
			"logged_in_customer_id": {"123"},
		}
		signProxyQuery(query)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/garagem/list?"+query.Encode(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, []any{"gid://shopify/Collection/9"}, body["favorites"])
	})

	t.Run("malformed remote value lists as empty", func(t *testing.T) {
		env := newTestEnv()
		env.install("a.myshopify.com")
		env.client.metafields["123"] = "not json"

		query := url.Values{
			"shop":                  {"a.myshopify.com"},
			"logged_in_customer_id": {"123"},
		}
		signProxyQuery(query)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/garagem/list?"+query.Encode(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{}, decodeBody(t, rec)["favorites"])
	})

	t.Run("upstream failure is a 500 with a generic message", func(t *testing.T) {
		env := newTestEnv()
		env.install("a.myshopify.com")
		env.client.getErr = errors.New("graphql call failed: status 500")

		query := url.Values{
			"shop":                  {"a.myshopify.com"},
			"logged_in_customer_id": {"123"},
		}
		signProxyQuery(query)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/garagem/list?"+query.Encode(), nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Server error", decodeBody(t, rec)["error"])
	})
}

func TestToggleEndpoint(t *testing.T) {
	toggle := func(t *testing.T, env *testEnv, gid string) *httptest.ResponseRecorder {
		t.Helper()
		query := url.Values{
			"shop":                  {"a.myshopify.com"},
			"logged_in_customer_id": {"123"},
		}
		signProxyQuery(query)

		req := httptest.NewRequest(http.MethodPost, "/garagem/toggle?"+query.Encode(),
			strings.NewReader(fmt.Sprintf(`{"collectionGid":%q}`, gid)))
		req.Header.Set("Content-Type", "application/json")

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("end to end add then remove", func(t *testing.T) {
		env := newTestEnv()
		env.install("a.myshopify.com")
		const gid = "gid://shopify/Collection/9"

		rec := toggle(t, env, gid)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, true, body["isFavorite"])
		assert.Equal(t, []any{gid}, body["favorites"])

		rec = toggle(t, env, gid)
		require.Equal(t, http.StatusOK, rec.Code)
		body = decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, false, body["isFavorite"])
		assert.Equal(t, []any{}, body["favorites"])
	})

	t.Run("missing body is a 400", func(t *testing.T) {
		env := newTestEnv()
		env.install("a.myshopify.com")

		query := url.Values{
			"shop":                  {"a.myshopify.com"},
			"logged_in_customer_id": {"123"},
		}
		signProxyQuery(query)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/garagem/toggle?"+query.Encode(), nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid signature is a 401", func(t *testing.T) {
		env := newTestEnv()
		env.install("a.myshopify.com")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost,
			"/garagem/toggle?shop=a.myshopify.com&logged_in_customer_id=123&signature=bad",
			strings.NewReader(`{"collectionGid":"gid://shopify/Collection/9"}`))
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong method is a 405", func(t *testing.T) {
		env := newTestEnv()
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/garagem/toggle", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestWebhookEndpoint(t *testing.T) {
	signWebhook := func(body []byte) string {
		mac := hmac.New(sha256.New, []byte(testSecret))
		mac.Write(body)
		return base64.StdEncoding.EncodeToString(mac.Sum(nil))
	}

	t.Run("app uninstalled removes the session", func(t *testing.T) {
		env := newTestEnv()
		env.install("a.myshopify.com")

		body := []byte(`{"domain":"a.myshopify.com"}`)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(string(body)))
		req.Header.Set("X-Shopify-Topic", "app/uninstalled")
		req.Header.Set("X-Shopify-Shop-Domain", "a.myshopify.com")
		req.Header.Set("X-Shopify-Hmac-SHA256", signWebhook(body))

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, env.repo.sessions["a.myshopify.com"])
	})

	t.Run("bad signature is a 401", func(t *testing.T) {
		env := newTestEnv()
		env.install("a.myshopify.com")

		body := []byte(`{"domain":"a.myshopify.com"}`)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(string(body)))
		req.Header.Set("X-Shopify-Topic", "app/uninstalled")
		req.Header.Set("X-Shopify-Hmac-SHA256", "bm9wZQ==")

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotNil(t, env.repo.sessions["a.myshopify.com"])
	})
}

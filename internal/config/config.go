package config

import (
	"fmt"
	"os"
)

// Config holds all environment-provided settings. It is built once in main
// and passed by reference into each component; business logic never reads the
// process environment directly.
type Config struct {
	// Shopify app credentials.
	APIKey    string
	APISecret string

	// AppURL is the public base URL of this service, used to construct the
	// OAuth callback redirect.
	AppURL string

	// Scopes requested during installation, comma-separated.
	Scopes string

	// APIVersion pins the Admin API version for GraphQL calls.
	APIVersion string

	// Metafield namespace/key holding the favorite set.
	MetafieldNamespace string
	MetafieldKey       string

	MongoURI      string
	MongoDatabase string
	RedisURL      string

	// EncryptionKey encrypts access tokens at rest (64 hex chars, AES-256).
	EncryptionKey string

	Port string
}

// Load reads configuration from the environment. Missing required values are
// an error so the process fails at startup, not on the first request.
func Load() (*Config, error) {
	cfg := &Config{
		APIKey:             os.Getenv("SHOPIFY_API_KEY"),
		APISecret:          os.Getenv("SHOPIFY_API_SECRET"),
		AppURL:             os.Getenv("SHOPIFY_APP_URL"),
		Scopes:             getEnv("SCOPES", "read_customers,write_customers"),
		APIVersion:         getEnv("SHOPIFY_ADMIN_API_VERSION", "2026-01"),
		MetafieldNamespace: getEnv("GARAGEM_METAFIELD_NAMESPACE", "custom"),
		MetafieldKey:       getEnv("GARAGEM_METAFIELD_KEY", "garagem"),
		MongoURI:           getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "garagem"),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		EncryptionKey:      os.Getenv("ENCRYPTION_KEY"),
		Port:               getEnv("PORT", "8080"),
	}

	if cfg.APIKey == "" || cfg.APISecret == "" || cfg.AppURL == "" {
		return nil, fmt.Errorf("missing SHOPIFY_API_KEY/SHOPIFY_API_SECRET/SHOPIFY_APP_URL")
	}
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY environment variable is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

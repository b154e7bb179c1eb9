package main

import (
	"context"
	"net/http"
	"os"

	"garagem-shopify-layer/internal/application"
	"garagem-shopify-layer/internal/config"
	apiinfra "garagem-shopify-layer/internal/infrastructure/api"
	"garagem-shopify-layer/internal/infrastructure/encryption"
	"garagem-shopify-layer/internal/infrastructure/repository"
	shopifyinfra "garagem-shopify-layer/internal/infrastructure/shopify"
	"garagem-shopify-layer/internal/infrastructure/statestore"

	securitymiddleware "garagem-shopify-layer/internal/infrastructure/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)

	// Connect to Redis (OAuth state store)
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	shopRepo := repository.NewMongoShopRepository(db)
	stateStore := statestore.NewRedisStateStore(redisClient)
	adminClient := shopifyinfra.NewClient(cfg, logger)
	verifier := shopifyinfra.NewVerifier(cfg.APISecret)

	// Initialize application services
	authService := application.NewAuthService(shopRepo, stateStore, adminClient, encryptionService, cfg, logger)
	garagemService := application.NewGaragemService(shopRepo, adminClient, encryptionService, cfg, logger)

	// Initialize HTTP handlers
	authAPI := apiinfra.NewAuthAPI(authService, verifier, logger)
	garagemAPI := apiinfra.NewGaragemAPI(garagemService, verifier, logger)
	webhookAPI := apiinfra.NewWebhookAPI(authService, verifier, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth installation flow
	r.Get("/auth", authAPI.Install)
	r.Get("/auth-callback", authAPI.Callback)

	// App Proxy favorites endpoints
	r.Get("/garagem/list", garagemAPI.List)
	r.Post("/garagem/toggle", garagemAPI.Toggle)

	// Webhooks (app/uninstalled)
	r.Post("/webhooks/shopify", webhookAPI.Handle)

	logger.Info().Str("port", cfg.Port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

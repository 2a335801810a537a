package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SigNoz/techstore-go-app/internal/api"
	"github.com/SigNoz/techstore-go-app/internal/db"
	"github.com/SigNoz/techstore-go-app/internal/events"
	"github.com/SigNoz/techstore-go-app/internal/metrics"
	"github.com/SigNoz/techstore-go-app/internal/services"
	"github.com/SigNoz/techstore-go-app/internal/session"
	"github.com/SigNoz/techstore-go-app/pkg/config"
	"github.com/SigNoz/techstore-go-app/pkg/logger"
	"github.com/SigNoz/techstore-go-app/pkg/tracing"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	logger.Init(cfg.OTELServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	ctx := context.Background()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Logger.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	// Initialize OpenTelemetry metrics
	appMetrics, meterProvider, promHandler, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error().Err(err).Msg("error shutting down meter provider")
		}
	}()

	// Initialize database
	database, err := db.NewDB(cfg.GetDSN(), meterProvider, cfg.OTELServiceName)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	initSchema(ctx, cfg, database)

	sessions := newSessionStore(ctx, cfg)
	publisher := newPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("error closing order event publisher")
		}
	}()

	// Initialize services
	rnd := services.NewTimeSeededRand()
	userService := services.NewUserService(database, appMetrics)

	app := api.NewApp(cfg, appMetrics, api.Deps{
		Catalog:        services.NewProductService(database, appMetrics, rnd),
		Accounts:       userService,
		Carts:          services.NewCartService(database, appMetrics),
		Wishlists:      services.NewWishlistService(database, appMetrics),
		Orders:         services.NewOrderService(database, appMetrics, publisher),
		Chatbot:        services.NewChatbotService(database, appMetrics, rnd),
		Sessions:       sessions,
		Health:         database,
		MetricsHandler: promHandler,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      otelhttp.NewHandler(app.Handler(), "techstore"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info().
			Str("port", cfg.AppPort).
			Str("otlp_endpoint", cfg.OTELExporterOTLPEndpoint).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Logger.Info().Msg("server exited")
}

// initSchema applies the schema file and seeds the catalog. A missing or
// failing schema is not fatal; the database may already be provisioned.
func initSchema(ctx context.Context, cfg *config.Config, database *db.DB) {
	schemaSQL, err := os.ReadFile(cfg.SchemaPath)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("path", cfg.SchemaPath).Msg("could not read schema, assuming it exists")
	} else if err := database.InitSchema(ctx, string(schemaSQL)); err != nil {
		logger.Logger.Warn().Err(err).Msg("could not initialize schema, assuming it exists")
	}

	if !cfg.SeedData {
		return
	}
	if err := db.Seed(ctx, database); err != nil {
		logger.Logger.Error().Err(err).Msg("failed to seed sample data")
	}
}

// newSessionStore prefers Redis so sessions survive restarts and are shared
// between replicas. Without Redis, sessions live in process memory.
func newSessionStore(ctx context.Context, cfg *config.Config) session.Store {
	if cfg.RedisAddr == "" {
		logger.Logger.Info().Msg("using in-memory session store")
		return session.NewMemoryStore(cfg.SessionTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, using in-memory session store")
		_ = client.Close()
		return session.NewMemoryStore(cfg.SessionTTL)
	}

	logger.Logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis session store")
	return session.NewRedisStore(client, cfg.SessionTTL)
}

func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopPublisher{}
	}

	publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
	if err != nil {
		logger.Logger.Warn().Err(err).Strs("brokers", cfg.KafkaBrokers).Msg("kafka unavailable, order events disabled")
		return events.NopPublisher{}
	}
	logger.Logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaOrderTopic).Msg("publishing order events to kafka")
	return publisher
}

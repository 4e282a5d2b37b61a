package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/radityaw/treasury-agent/internal/application/services"
	"github.com/radityaw/treasury-agent/internal/config"
	"github.com/radityaw/treasury-agent/internal/infrastructure/cache"
	"github.com/radityaw/treasury-agent/internal/infrastructure/database"
	"github.com/radityaw/treasury-agent/internal/infrastructure/ethereum"
	"github.com/radityaw/treasury-agent/internal/presentation/handlers"
	"github.com/radityaw/treasury-agent/internal/presentation/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log.Level)
	defer logger.Sync()

	logger.Info("Starting treasury-agent API",
		zap.Int("port", cfg.API.Port),
	)

	registry, err := cfg.Router.ParseTokens()
	if err != nil {
		logger.Fatal("Invalid token configuration", zap.Error(err))
	}

	hubs := make([]string, 0, len(cfg.Router.HubSymbols))
	for _, symbol := range cfg.Router.HubSymbols {
		token, ok := registry.BySymbol(symbol)
		if !ok {
			logger.Fatal("Hub token not in configured token set", zap.String("symbol", symbol))
		}
		hubs = append(hubs, token.Address)
	}

	// Connect to database
	db, err := database.NewPostgresDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Connect to Ethereum node for quote reads
	ethClient, err := ethereum.NewClient(cfg.Ethereum, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Ethereum node", zap.Error(err))
	}
	defer ethClient.Close()

	routerClient, err := ethereum.NewRouterClient(ethClient, cfg.Router.Address, logger)
	if err != nil {
		logger.Fatal("Failed to create router client", zap.Error(err))
	}

	// Connect to Redis cache (optional)
	var redisCache *cache.RedisCache
	redisCache, err = cache.NewRedisCache(cfg.Redis, cfg.API.CacheTTL, logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	// Create repositories and services
	positionRepo := database.NewPositionRepo(db.DB())

	resolver := services.NewRouteResolver(routerClient, hubs, cfg.Router.PoolCacheTTL, logger)
	quotes := services.NewQuoteService(resolver, routerClient, logger)
	positionService := services.NewPositionService(positionRepo, quotes, registry, redisCache, logger)

	// Create handlers
	positionHandler := handlers.NewPositionHandler(positionService, logger)
	quoteHandler := handlers.NewQuoteHandler(positionService, logger)

	var cacheChecker handlers.HealthChecker
	if redisCache != nil {
		cacheChecker = redisCache
	}
	healthHandler := handlers.NewHealthHandler(db, cacheChecker)

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RateLimiter(cfg.API.RateLimitRPS))

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		positionHandler.RegisterRoutes(r)
		quoteHandler.RegisterRoutes(r)
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Run server in goroutine
	go func() {
		logger.Info("API server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	return logger
}

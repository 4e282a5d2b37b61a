package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/radityaw/treasury-agent/internal/application/services"
	"github.com/radityaw/treasury-agent/internal/config"
	"github.com/radityaw/treasury-agent/internal/infrastructure/database"
	"github.com/radityaw/treasury-agent/internal/infrastructure/ethereum"
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

	logger.Info("Starting treasury agent",
		zap.Strings("wallets", cfg.Monitor.Wallets),
		zap.String("rpc_url", cfg.Ethereum.RPCURL),
		zap.String("router", cfg.Router.Address),
	)

	registry, err := cfg.Router.ParseTokens()
	if err != nil {
		logger.Fatal("Invalid token configuration", zap.Error(err))
	}

	primary, ok := registry.BySymbol(cfg.Router.PrimarySymbol)
	if !ok {
		logger.Fatal("Primary token not in configured token set",
			zap.String("symbol", cfg.Router.PrimarySymbol),
		)
	}

	hubs := make([]string, 0, len(cfg.Router.HubSymbols))
	for _, symbol := range cfg.Router.HubSymbols {
		token, ok := registry.BySymbol(symbol)
		if !ok {
			logger.Fatal("Hub token not in configured token set", zap.String("symbol", symbol))
		}
		hubs = append(hubs, token.Address)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.NewPostgresDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Connect to Ethereum node
	ethClient, err := ethereum.NewClient(cfg.Ethereum, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Ethereum node", zap.Error(err))
	}
	defer ethClient.Close()

	routerClient, err := ethereum.NewRouterClient(ethClient, cfg.Router.Address, logger)
	if err != nil {
		logger.Fatal("Failed to create router client", zap.Error(err))
	}

	// Create repositories
	positionRepo := database.NewPositionRepo(db.DB())
	timelineRepo := database.NewTimelineRepo(db.DB())

	// Create the trade pipeline
	resolver := services.NewRouteResolver(routerClient, hubs, cfg.Router.PoolCacheTTL, logger)
	quotes := services.NewQuoteService(resolver, routerClient, logger)
	planner := services.NewPlanBuilder(routerClient, cfg.Router.SlippageBps)
	ledger := services.NewLedgerService(positionRepo, logger)

	tradeService := services.NewTradeService(
		quotes,
		planner,
		services.NewGuardrail(),
		ledger,
		positionRepo,
		timelineRepo,
		routerClient,
		registry,
		cfg.Guardrail.Limits(),
		primary,
		logger,
	)

	// Create the funding monitor; detected convertible deposits flow
	// into the trade pipeline
	monitor := services.NewMonitorService(
		routerClient,
		registry,
		timelineRepo,
		tradeService,
		cfg.Monitor,
		logger,
	)

	monitor.Start(ctx)

	// Start metrics server
	go startMetricsServer(cfg.Monitor.MetricsPort, logger)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, stopping agent...")

	// Graceful shutdown
	monitor.Stop()

	logger.Info("Agent stopped")
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

func startMetricsServer(port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", zap.String("addr", addr))

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Metrics server error", zap.Error(err))
	}
}

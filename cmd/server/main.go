package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channel-hub/auth"
	"channel-hub/ingress/httpapi"
	"channel-hub/ingress/ws"
	"channel-hub/internal"
	"channel-hub/moderation"
	"channel-hub/observability"
	"channel-hub/repositories"
	"channel-hub/runtime"
	"channel-hub/runtime/workers"
	"channel-hub/search"
	"channel-hub/services"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes
// error reporting. All deferred cleanups execute before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := internal.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Core components
	monitoring := observability.NewManager()
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(logger, registry, monitoring, config.BufferSize, config.DeliveryTimeout)
	store := repositories.NewStore(db, logger)
	userRepository := repositories.NewUserRepository(db)
	presence := runtime.NewPresenceManager(logger, registry, router, store, monitoring)
	typing := runtime.NewTypingTracker(registry, router)

	blocklist, err := moderation.LoadBlocklist()
	if err != nil {
		return exitConfig, fmt.Errorf("blocklist loading failed: %w", err)
	}
	profanity, err := moderation.NewProfanityFilter(blocklist.Words, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("profanity filter setup failed: %w", err)
	}
	pipeline := moderation.NewPipeline(logger, moderation.Config{
		ProfanityEnabled: config.ProfanityFilterEnabled,
		HistoryEnabled:   config.HistoryFilterEnabled,
	}, profanity, moderation.NewHistoryFilter(store, logger), monitoring)

	index := search.NewIndex(blugeWriter, logger)
	router.AddSinks(index, observability.EventRecorder{Manager: monitoring})

	lifecycle := services.NewLifecycle(logger, store, store, pipeline)
	chatService := services.NewChatService(logger, store, store, registry, router, typing, lifecycle, index)
	tokenManager := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, tokenManager)

	// 4. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)

	// 5. Background workers under supervision
	sup := workers.NewSupervisor(logger)
	sup.Add(router, workers.NewTelemetryWorker(logger, monitoring, config.MetricInterval))
	go func() {
		logger.Info("Starting supervisor...")
		sup.Run(ctx)
	}()

	// 6. HTTP & WebSocket server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	httpHandler := httpapi.NewHandler(logger, chatService, authService, monitoring)
	httpHandler.RegisterRoutes(e, httpapi.AuthMiddleware(authService))
	wsHandler := ws.NewHandler(logger, authService, presence, chatService,
		config.ConnectionBufferSize, config.ClientEventRate, config.ClientEventBurst)
	wsHandler.RegisterRoutes(e)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	sup.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

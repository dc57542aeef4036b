package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/prudhvinik1/beacontrace/internal/api"
	"github.com/prudhvinik1/beacontrace/internal/bus"
	"github.com/prudhvinik1/beacontrace/internal/config"
	"github.com/prudhvinik1/beacontrace/internal/database"
	"github.com/prudhvinik1/beacontrace/internal/logging"
	"github.com/prudhvinik1/beacontrace/internal/repositories"
	"github.com/prudhvinik1/beacontrace/internal/services"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	godotenv.Load()

	logger := logging.New("beacontrace-server")
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	version, err := database.Migrate(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database schema ready", zap.Uint("version", version))

	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to create postgres pool", zap.Error(err))
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to create redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// Repositories
	accountRepo := repositories.NewPostgresAccountRepository(postgresPool)
	deviceRepo := repositories.NewPostgresDeviceRepository(postgresPool)
	sightingRepo := repositories.NewPostgresSightingRepository(postgresPool)
	transferRepo := repositories.NewPostgresTransferRepository(postgresPool)
	sessionRepo := repositories.NewRedisSessionRepository(redisClient)
	codeRepo := repositories.NewRedisVerificationCodeRepository(redisClient)
	chatRepo := repositories.NewRedisChatRepository(redisClient)

	// Services
	events := bus.New()
	notifier := services.NewLogNotifier(logger)
	authService := services.NewAuthService(accountRepo, sessionRepo, cfg.JWTSecret, cfg.JWTExpiry)
	registryService := services.NewRegistryService(accountRepo, deviceRepo, transferRepo, codeRepo, notifier, cfg.VerificationCodeTTL, logger)
	locationService := services.NewLocationService(sightingRepo, events, logger)
	relayService := services.NewRelayService(chatRepo, events, logger)

	// Retention pruner
	go locationService.RunPruner(ctx, cfg.PruneInterval, cfg.RetentionHorizon)

	handler := api.NewHandler(authService, registryService, locationService, relayService, events, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: handler.Router(),
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", zap.String("port", cfg.ServerPort))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped gracefully")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/prudhvinik1/beacontrace/internal/config"
	"github.com/prudhvinik1/beacontrace/internal/logging"
	"github.com/prudhvinik1/beacontrace/internal/scanner"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	logger := logging.New("beacontrace-scanner")
	defer logger.Sync()

	cfg, err := config.LoadScannerConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	detector := scanner.NewSpoolDetector(cfg.SpoolPath)
	locator := scanner.StaticLocator{
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		Accuracy:  cfg.Accuracy,
	}
	submitter := scanner.NewIngestClient(cfg.ServerURL)

	sc := scanner.New(detector, locator, submitter, cfg.ScanInterval, cfg.DetectTimeout, logger)
	if err := sc.Start(ctx); err != nil {
		logger.Fatal("failed to start scanner", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	sc.Stop()
	logger.Info("scanner stopped gracefully")
}

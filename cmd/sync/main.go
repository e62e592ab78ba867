package main

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Pkirch1211/mt-shopify-sync/internal/config"
	"github.com/Pkirch1211/mt-shopify-sync/internal/markettime"
	"github.com/Pkirch1211/mt-shopify-sync/internal/report"
	"github.com/Pkirch1211/mt-shopify-sync/internal/shopify"
	"github.com/Pkirch1211/mt-shopify-sync/internal/sync"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("Starting MarketTime to Shopify sync",
		zap.String("environment", cfg.Environment),
		zap.String("shop_domain", cfg.Shopify.ShopDomain),
		zap.String("api_version", cfg.Shopify.APIVersion),
	)

	mtClient := markettime.NewClient(cfg.MarketTime, cfg.Sync.RetryCount, logger)
	shopifyClient := shopify.NewClient(cfg.Shopify, logger)

	detector := sync.NewDetector(shopifyClient, shopifyClient, cfg.Sync, logger)
	resolver := sync.NewResolver(shopifyClient, shopifyClient, logger)
	drafts := sync.NewDraftService(shopifyClient, logger)
	runner := sync.NewRunner(mtClient, detector, resolver, drafts, cfg.Sync, logger)

	summary, err := runner.Run(context.Background())
	if err != nil {
		logger.Fatal("Sync run failed", zap.Error(err))
	}

	csvPath, err := report.Write(cfg.ExportDir, summary.Rows)
	if err != nil {
		logger.Error("Failed to write CSV report", zap.Error(err))
	}

	logger.Info("Sync run complete",
		zap.Int("open_orders", summary.OpenOrders),
		zap.Int("created", summary.Created),
		zap.Int("skipped", summary.Skipped),
		zap.String("csv_path", csvPath),
	)
}

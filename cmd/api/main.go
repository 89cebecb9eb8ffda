package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/config"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/handler"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/httpserver"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/mail"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/parser"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/reconcile"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/repository"
	syncservice "github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/service/sync"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/db"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/logger"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/mq"
	redisclient "github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/redis"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting sync API service...")

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("MQ publisher initialization failed", zap.Error(err))
	}
	defer publisher.Close()

	mailClient, err := mail.NewGmailClient(cfg.Gmail, log)
	if err != nil {
		log.Fatal("Gmail client initialization failed", zap.Error(err))
	}

	orderRepo := repository.NewOrderRepository(dbConn)
	inventoryRepo := repository.NewInventoryRepository(dbConn)
	productRepo := repository.NewProductRepository(dbConn)
	processingRepo := repository.NewProcessingRepository(dbConn)

	registry := parser.NewDefaultRegistry()
	matcher := reconcile.NewMatcher(orderRepo, inventoryRepo, productRepo, log)
	locker := util.NewSyncLocker(rdb, time.Duration(cfg.Sync.LockTTLSeconds)*time.Second, log)

	syncService := syncservice.NewService(
		mailClient,
		registry,
		matcher,
		processingRepo,
		locker,
		publisher,
		log,
		syncservice.Config{
			QueryWindowDays: cfg.Sync.QueryWindowDays,
			MaxResults:      cfg.Sync.MaxResults,
			EmailTimeout:    time.Duration(cfg.Sync.EmailTimeoutSeconds) * time.Second,
		},
	)

	syncHandler := handler.NewSyncHandler(syncService, processingRepo)
	router := httpserver.NewRouter(syncHandler, cfg.JWT.Secret)

	log.Info("API listening", zap.String("port", cfg.Server.Port))
	if err := router.Run(cfg.Server.Port); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

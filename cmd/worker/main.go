package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/config"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/mail"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/mqhandler"
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

	log.Info("Starting sync worker service...")

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

	if err := publisher.EnsureDLQ("sync.requested"); err != nil {
		log.Fatal("DLQ setup failed", zap.Error(err))
	}

	mailClient, err := mail.NewGmailClient(cfg.Gmail, log)
	if err != nil {
		log.Fatal("Gmail client initialization failed", zap.Error(err))
	}

	orderRepo := repository.NewOrderRepository(dbConn)
	inventoryRepo := repository.NewInventoryRepository(dbConn)
	productRepo := repository.NewProductRepository(dbConn)
	processingRepo := repository.NewProcessingRepository(dbConn)
	userRepo := repository.NewUserRepository(dbConn)

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

	syncHandler := mqhandler.NewSyncRequestedHandler(syncService, publisher, log)

	log.Info("Initializing sync consumer", zap.String("queue", "sync.requested.q"))
	consumer, err := mq.NewConsumer(cfg.MQ.URL, "sync.requested.q", "sync.requested", log)
	if err != nil {
		log.Fatal("failed to init sync consumer", zap.Error(err))
	}
	consumer.SetHandler(syncHandler.HandleSyncRequested)
	go func() {
		log.Info("Starting sync consumer")
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("sync consumer failed", zap.Error(err))
		}
	}()
	defer consumer.Close()

	// Scheduled passes: enqueue a sync.requested event per enabled user.
	// Passes already running skip themselves via the per-user lock.
	go runScheduler(userRepo, publisher, log, time.Duration(cfg.Sync.IntervalMinutes)*time.Minute)

	log.Info("Worker is ready to process sync requests")

	select {}
}

func runScheduler(userRepo *repository.UserRepository, publisher *mq.Publisher, log *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		userIDs, err := userRepo.ListSyncEnabledIDs(ctx)
		cancel()
		if err != nil {
			log.Error("Failed to list sync-enabled users", zap.Error(err))
			continue
		}

		enqueued := 0
		for _, userID := range userIDs {
			payload := mqhandler.SyncRequestedPayload{UserID: userID}
			if err := publisher.Publish("sync.requested", payload); err != nil {
				log.Error("Failed to enqueue sync request",
					zap.Int64("user_id", userID),
					zap.Error(err),
				)
				continue
			}
			enqueued++
		}

		log.Info("Scheduled sync pass enqueued",
			zap.Int("users", len(userIDs)),
			zap.Int("enqueued", enqueued),
		)
	}
}

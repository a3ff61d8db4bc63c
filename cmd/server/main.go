package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"nexos/internal/config"
	"nexos/internal/handler"
	"nexos/internal/infrastructure/cache"
	"nexos/internal/infrastructure/database"
	"nexos/internal/infrastructure/lock"
	"nexos/internal/infrastructure/mq"
	"nexos/internal/job"
	"nexos/internal/service"
	"nexos/pkg/idgen"
	"nexos/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("load config failed", logger.Fields{"error": err.Error()})
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	if err := idgen.Init(cfg.Server.WorkerID); err != nil {
		logger.Fatal("init id generator failed", logger.Fields{"error": err.Error()})
	}

	// Open also migrates the schema
	db, err := database.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("open database failed", logger.Fields{"error": err.Error()})
	}

	// cancelled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.NewRedis(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("connect redis failed", logger.Fields{"error": err.Error()})
	}
	defer redisClient.Close()

	producer, err := mq.NewProducer(&cfg.Kafka)
	if err != nil {
		logger.Fatal("connect kafka failed", logger.Fields{"error": err.Error()})
	}
	defer producer.Close()

	locker := lock.NewRedisLocker(redisClient, time.Duration(cfg.Business.LockTTLSeconds)*time.Second, cfg.Business.LockMaxRetries)
	ledger := service.NewLedger(db)
	walletService := service.NewWalletService(db, cfg, ledger)
	auctionService := service.NewAuctionService(db, cfg)
	bidService := service.NewBidService(db, cfg, locker, ledger)
	settlementService := service.NewSettlementService(db, cfg, ledger)

	outboxSender := job.NewOutboxSender(db, cfg, producer)
	go outboxSender.Start(ctx)

	expiryJob := job.NewAuctionExpiryJob(db, cfg, settlementService)
	go expiryJob.Start(ctx)

	auditJob := job.NewLedgerAuditJob(db, cfg)
	go auditJob.Start(ctx)

	h := handler.NewHandler(walletService, auctionService, bidService, settlementService)
	router := handler.SetupRouter(h, []byte(cfg.Auth.JWTSecret))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server listening", logger.Fields{"port": cfg.Server.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", logger.Fields{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", logger.Fields{"error": err.Error()})
	}

	logger.Info("server stopped", nil)
}

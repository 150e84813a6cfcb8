package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/chain"
	"github.com/nft-launchpad/backend/internal/config"
	"github.com/nft-launchpad/backend/internal/db"
	"github.com/nft-launchpad/backend/internal/events"
	"github.com/nft-launchpad/backend/internal/listener"
	"github.com/nft-launchpad/backend/internal/repositories"
	"github.com/nft-launchpad/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.ConnectRedis(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	collectionRepo := repositories.NewCollectionRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	itemRepo := repositories.NewItemRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	publisher := events.NewRedisBus(rdb, log)

	chainClient, err := chain.NewEthClient(ctx, cfg.Networks, log)
	if err != nil {
		log.Fatal("failed to connect chain rpc", zap.Error(err))
	}
	norm, err := chain.NewNormalizer(chain.PaymentEventsABI)
	if err != nil {
		log.Fatal("failed to parse event ABI", zap.Error(err))
	}

	orchestrator := services.NewDeploymentOrchestrator(collectionRepo, itemRepo, chainClient, norm,
		publisher, auditRepo, cfg.MetadataBaseURL, cfg.DeployTimeout, log)
	reconciler := services.NewPaymentReconciler(collectionRepo, paymentRepo, publisher, auditRepo, orchestrator, log)

	// One independent listener per network.
	var wg sync.WaitGroup
	for _, network := range cfg.Networks {
		wg.Add(1)
		go func(net config.NetworkConfig) {
			defer wg.Done()
			listener.New(net, chainClient, norm, paymentRepo, reconciler, log).Run(ctx)
		}(network)
	}
	log.Info("chain listeners started", zap.Int("networks", len(cfg.Networks)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down chain listeners")
	cancel()
	wg.Wait()
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/config"
	"github.com/nft-launchpad/backend/internal/db"
	"github.com/nft-launchpad/backend/internal/events"
	"github.com/nft-launchpad/backend/internal/repositories"
	"github.com/nft-launchpad/backend/internal/services"
)

const expirySweepBatch = 200

// noDeploy satisfies the reconciler's trigger dependency. The expiry sweep
// never starts deployments, so reaching this is a bug worth logging.
type noDeploy struct {
	log *zap.Logger
}

func (t noDeploy) Trigger(collectionID uuid.UUID) {
	t.log.Error("deploy trigger invoked from the expiry worker",
		zap.String("collection_id", collectionID.String()))
}

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
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
	auditRepo := repositories.NewAuditRepo(pool)
	publisher := events.NewRedisBus(rdb, log)

	reconciler := services.NewPaymentReconciler(collectionRepo, paymentRepo, publisher, auditRepo, noDeploy{log: log}, log)

	log.Info("worker started")

	expiryTicker := time.NewTicker(time.Minute)
	defer expiryTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-expiryTicker.C:
			n, err := reconciler.ExpireOverduePayments(ctx, expirySweepBatch)
			if err != nil {
				log.Error("expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("expired overdue payment intents", zap.Int("count", n))
			}
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		}
	}
}

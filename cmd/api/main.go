package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/chain"
	"github.com/nft-launchpad/backend/internal/config"
	"github.com/nft-launchpad/backend/internal/db"
	"github.com/nft-launchpad/backend/internal/events"
	apphttp "github.com/nft-launchpad/backend/internal/http"
	"github.com/nft-launchpad/backend/internal/http/handlers"
	"github.com/nft-launchpad/backend/internal/provider"
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

	if err := db.Migrate(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	rdb, err := db.ConnectRedis(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	collectionRepo := repositories.NewCollectionRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	itemRepo := repositories.NewItemRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	bus := events.NewRedisBus(rdb, log)

	// Chain
	chainClient, err := chain.NewEthClient(ctx, cfg.Networks, log)
	if err != nil {
		log.Fatal("failed to connect chain rpc", zap.Error(err))
	}
	norm, err := chain.NewNormalizer(chain.PaymentEventsABI)
	if err != nil {
		log.Fatal("failed to parse event ABI", zap.Error(err))
	}

	// Services
	orchestrator := services.NewDeploymentOrchestrator(collectionRepo, itemRepo, chainClient, norm,
		bus, auditRepo, cfg.MetadataBaseURL, cfg.DeployTimeout, log)
	reconciler := services.NewPaymentReconciler(collectionRepo, paymentRepo, bus, auditRepo, orchestrator, log)
	paymentService := services.NewPaymentService(collectionRepo, paymentRepo, auditRepo, cfg, log)
	collectionService := services.NewCollectionService(collectionRepo, itemRepo, chainClient, rdb,
		auditRepo, orchestrator, cfg.MintInfoCacheTTL, log)
	processor := provider.NewProcessor(cfg.ProviderWebhookSecret, cfg.ProductTag, reconciler, log)

	// Handlers
	collectionHandler := handlers.NewCollectionHandler(collectionService, auditRepo, log)
	paymentHandler := handlers.NewPaymentHandler(paymentService, log)
	webhookHandler := handlers.NewWebhookHandler(processor, log)
	wsHub := handlers.NewWSHub(bus, log)
	wsHub.Start(ctx)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, collectionHandler, paymentHandler, webhookHandler, wsHub)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

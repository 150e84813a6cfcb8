package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/config"
	"github.com/nft-launchpad/backend/internal/http/handlers"
	"github.com/nft-launchpad/backend/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	collectionHandler *handlers.CollectionHandler,
	paymentHandler *handlers.PaymentHandler,
	webhookHandler *handlers.WebhookHandler,
	wsHub *handlers.WSHub,
) {
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Provider callbacks are never rate limited; dropping a redelivery on a
	// 429 would stall a legitimate payment.
	api.Post("/webhooks/payment-provider", webhookHandler.HandleProviderWebhook)

	api.Use(middleware.RateLimit(rdb, 100, time.Minute))

	api.Post("/collections", collectionHandler.Create)
	api.Get("/collections/:id", collectionHandler.Get)
	api.Get("/collections/:id/mint-info", collectionHandler.MintInfo)

	api.Post("/collections/:id/payments", paymentHandler.CreateDeploymentPayment)
	api.Get("/collections/:id/payments/active", paymentHandler.GetActivePayment)
	api.Get("/payments/:id", paymentHandler.GetPayment)

	// Operator endpoints, shared-token guarded.
	internal := api.Group("/internal", middleware.InternalAuth(cfg.InternalToken))
	internal.Post("/collections/:id/retry-deploy", collectionHandler.RetryDeploy)
	internal.Post("/collections/:id/reset", collectionHandler.ResetToDraft)
	internal.Post("/collections/:id/withdraw", collectionHandler.Withdraw)
	internal.Get("/collections/:id/balance", collectionHandler.Balance)
	internal.Get("/collections/:id/audit", collectionHandler.AuditTrail)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHub.Handle))
}

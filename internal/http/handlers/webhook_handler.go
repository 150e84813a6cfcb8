package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/http/dto"
	"github.com/nft-launchpad/backend/internal/provider"
)

const signatureHeader = "X-Provider-Signature"

type WebhookHandler struct {
	processor *provider.Processor
	log       *zap.Logger
}

func NewWebhookHandler(processor *provider.Processor, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, log: log}
}

// HandleProviderWebhook receives fiat payment callbacks.
//
// Status codes matter here: 401 stops the provider from retrying a forged
// delivery, while 5xx makes it redeliver a legitimately failed one.
// POST /webhooks/payment-provider
func (h *WebhookHandler) HandleProviderWebhook(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get(signatureHeader)

	err := h.processor.Process(c.Context(), body, signature)
	if err == nil {
		return c.JSON(dto.SuccessResponse{OK: true})
	}

	var authErr *apperrors.AuthenticationError
	if errors.As(err, &authErr) {
		h.log.Warn("webhook verification failed", zap.String("reason", authErr.Reason))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: authErr.Reason})
	}

	h.log.Error("webhook processing failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "webhook processing failed"})
}

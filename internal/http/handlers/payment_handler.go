package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/http/dto"
	"github.com/nft-launchpad/backend/internal/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
	log      *zap.Logger
}

func NewPaymentHandler(payments *services.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

// CreateDeploymentPayment opens the deployment fee intent and starts the
// payment window.
// POST /collections/:id/payments
func (h *PaymentHandler) CreateDeploymentPayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid collection id"})
	}

	var req dto.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	intent, err := h.payments.CreateDeploymentPayment(c.Context(), id, req.Method)
	if err != nil {
		h.log.Warn("failed to create payment intent",
			zap.String("collection_id", id.String()), zap.Error(err))
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: intent})
}

// GetActivePayment returns the currently open deployment intent.
// GET /collections/:id/payments/active
func (h *PaymentHandler) GetActivePayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid collection id"})
	}
	intent, err := h.payments.GetDeploymentPayment(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: intent})
}

// GetPayment returns one intent by id.
// GET /payments/:id
func (h *PaymentHandler) GetPayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid payment id"})
	}
	p, err := h.payments.GetPayment(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: p})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/http/dto"
	"github.com/nft-launchpad/backend/internal/models"
	"github.com/nft-launchpad/backend/internal/repositories"
	"github.com/nft-launchpad/backend/internal/services"
)

type CollectionHandler struct {
	collections *services.CollectionService
	audit       *repositories.AuditRepo
	log         *zap.Logger
}

func NewCollectionHandler(collections *services.CollectionService, audit *repositories.AuditRepo, log *zap.Logger) *CollectionHandler {
	return &CollectionHandler{collections: collections, audit: audit, log: log}
}

func collectionID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

// Create registers a draft collection with its single item template.
// POST /collections
func (h *CollectionHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCollectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid organization_id"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "name is required"})
	}

	col := &models.Collection{
		OrganizationID:               orgID,
		Chain:                        req.Chain,
		Name:                         req.Name,
		Description:                  req.Description,
		About:                        req.About,
		RoyaltyAddress:               req.RoyaltyAddress,
		PayoutAddress:                req.PayoutAddress,
		RoyaltyBPS:                   req.RoyaltyBPS,
		AgreeToTerms:                 req.AgreeToTerms,
		UnderstandIrreversibleAction: req.UnderstandIrreversibleAction,
	}
	item := &models.CollectionItem{
		Name:        req.Item.Name,
		Description: req.Item.Description,
		TokenFormat: req.Item.TokenFormat,
		ImageURL:    req.Item.ImageURL,
		Price:       req.Item.Price,
		MaxSupply:   req.Item.MaxSupply,
	}

	if err := h.collections.Create(c.Context(), col, item); err != nil {
		h.log.Error("failed to create collection", zap.Error(err))
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: col})
}

// Get returns the collection with its current status.
// GET /collections/:id
func (h *CollectionHandler) Get(c *fiber.Ctx) error {
	id, err := collectionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid collection id"})
	}
	col, err := h.collections.Get(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: col})
}

// MintInfo serves the public mint projection of a deployed collection.
// GET /collections/:id/mint-info
func (h *CollectionHandler) MintInfo(c *fiber.Ctx) error {
	id, err := collectionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid collection id"})
	}
	info, err := h.collections.MintInfo(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: info})
}

// RetryDeploy re-triggers deployment after a failure. Operator only.
// POST /internal/collections/:id/retry-deploy
func (h *CollectionHandler) RetryDeploy(c *fiber.Ctx) error {
	id, err := collectionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid collection id"})
	}
	if err := h.collections.RetryDeploy(c.Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// ResetToDraft recovers a failed collection back to draft. Operator only.
// POST /internal/collections/:id/reset
func (h *CollectionHandler) ResetToDraft(c *fiber.Ctx) error {
	id, err := collectionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid collection id"})
	}
	if err := h.collections.ResetToDraft(c.Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Balance reads the deployed contract's balance. Operator only.
// GET /internal/collections/:id/balance
func (h *CollectionHandler) Balance(c *fiber.Ctx) error {
	id, err := collectionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid collection id"})
	}
	bal, err := h.collections.Balance(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"balance": bal}})
}

// Withdraw pays out the contract's proceeds. Operator only.
// POST /internal/collections/:id/withdraw
func (h *CollectionHandler) Withdraw(c *fiber.Ctx) error {
	id, err := collectionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid collection id"})
	}
	txHash, err := h.collections.Withdraw(c.Context(), id)
	if err != nil {
		h.log.Error("withdraw failed", zap.String("collection_id", id.String()), zap.Error(err))
		return writeError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"tx_hash": txHash}})
}

// AuditTrail lists the collection's audit entries. Operator only.
// GET /internal/collections/:id/audit
func (h *CollectionHandler) AuditTrail(c *fiber.Ctx) error {
	id, err := collectionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid collection id"})
	}
	entries, err := h.audit.GetByEntity(c.Context(), "collection", id,
		c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/http/dto"
)

// writeError maps the shared error taxonomy onto HTTP responses.
func writeError(c *fiber.Ctx, err error) error {
	var (
		validation *apperrors.ValidationError
		authErr    *apperrors.AuthenticationError
		conflict   *apperrors.ConflictError
		notFound   *apperrors.NotFoundError
		external   *apperrors.ExternalServiceError
	)
	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:  "validation failed",
			Fields: validation.Fields,
		})
	case errors.As(err, &authErr):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: authErr.Reason})
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &external):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "upstream service failed"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nft-launchpad/backend/internal/models"
)

// Store interfaces consumed by the services. The repositories package
// provides the Postgres implementations; tests substitute in-memory fakes.

type CollectionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	Create(ctx context.Context, c *models.Collection) error
	UpdateStatusIf(ctx context.Context, id uuid.UUID, to string, from ...string) (bool, error)
	SetContractAddress(ctx context.Context, id uuid.UUID, addr string) (bool, error)
	SetFeeEstimates(ctx context.Context, id uuid.UUID, crypto, fiat string, expiresAt time.Time) error
	ResetToDraft(ctx context.Context, id uuid.UUID, from ...string) (bool, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.FeePayment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FeePayment, error)
	GetActive(ctx context.Context, collectionID uuid.UUID, purpose string) (*models.FeePayment, error)
	ApplyPartialPayment(ctx context.Context, id uuid.UUID, total, sender, txHash string) (bool, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID, total, sender, txHash string) (bool, error)
	MarkFiatSucceeded(ctx context.Context, id uuid.UUID, amount, providerTxID string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, providerTxID string) (bool, error)
	ListExpired(ctx context.Context, limit int) ([]models.FeePayment, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
}

type ItemStore interface {
	GetByCollection(ctx context.Context, collectionID uuid.UUID) (*models.CollectionItem, error)
	Create(ctx context.Context, i *models.CollectionItem) error
}

type Auditor interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// DeployTrigger starts a deployment attempt without blocking the caller.
// The attempt's outcome is observable only through the persisted collection
// status, never through the trigger call itself.
type DeployTrigger interface {
	Trigger(collectionID uuid.UUID)
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/config"
	"github.com/nft-launchpad/backend/internal/models"
)

// PaymentService owns the user-facing payment intent lifecycle: quoting
// fees, opening intents and answering payment status queries. Settlement is
// the reconciler's job.
type PaymentService struct {
	collections CollectionStore
	payments    PaymentStore
	audit       Auditor
	cfg         *config.Config
	log         *zap.Logger
}

func NewPaymentService(collections CollectionStore, payments PaymentStore, audit Auditor, cfg *config.Config, log *zap.Logger) *PaymentService {
	return &PaymentService{
		collections: collections,
		payments:    payments,
		audit:       audit,
		cfg:         cfg,
		log:         log,
	}
}

// CreateDeploymentPayment opens the deployment fee intent for a draft
// collection and moves it to payment_pending. The partial unique index on
// active intents makes a concurrent second call fail with a conflict.
func (s *PaymentService) CreateDeploymentPayment(ctx context.Context, collectionID uuid.UUID, method string) (*models.FeePayment, error) {
	if method != models.PaymentMethodCrypto && method != models.PaymentMethodFiat {
		return nil, apperrors.NewValidation("method")
	}

	col, err := s.collections.GetByID(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if col.Status != models.CollectionStatusDraft {
		return nil, apperrors.NewConflict("create payment for non-draft collection")
	}
	if col.Chain == "" {
		return nil, apperrors.NewValidation("chain")
	}
	if _, ok := s.cfg.Networks[col.Chain]; method == models.PaymentMethodCrypto && !ok {
		return nil, apperrors.NewValidation("chain")
	}

	expiresAt := time.Now().Add(s.cfg.PaymentExpiry)
	if err := s.collections.SetFeeEstimates(ctx, collectionID,
		s.cfg.DeployFeeCrypto, s.cfg.DeployFeeFiat, expiresAt); err != nil {
		return nil, err
	}

	intent := &models.FeePayment{
		CollectionID:   collectionID,
		Purpose:        models.PaymentPurposeContractDeployment,
		Method:         method,
		Status:         models.PaymentStatusPending,
		ExpiresAt:      expiresAt,
		AmountExpected: s.cfg.DeployFeeCrypto,
		Currency:       s.cfg.CryptoFeeCurrency,
		Network:        col.Chain,
	}
	if method == models.PaymentMethodFiat {
		intent.AmountExpected = s.cfg.DeployFeeFiat
		intent.Currency = s.cfg.FiatFeeCurrency
		intent.Network = ""
	}
	active := models.PaymentActive
	intent.Active = &active

	if err := s.payments.Create(ctx, intent); err != nil {
		return nil, err
	}

	moved, err := s.collections.UpdateStatusIf(ctx, collectionID,
		models.CollectionStatusPaymentPending, models.CollectionStatusDraft)
	if err != nil {
		return nil, err
	}
	if !moved {
		s.log.Warn("collection left draft while opening payment intent",
			zap.String("collection_id", collectionID.String()))
	}

	s.log.Info("payment intent created",
		zap.String("intent_id", intent.ID.String()),
		zap.String("collection_id", collectionID.String()),
		zap.String("method", method),
		zap.String("amount_expected", intent.AmountExpected))
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorType:  models.ActorSystem,
		Action:     "payment.created",
		EntityType: "fee_payment",
		EntityID:   &intent.ID,
		Meta:       map[string]any{"method": method, "amount_expected": intent.AmountExpected},
	})

	return intent, nil
}

// GetDeploymentPayment returns the active deployment intent, if any.
func (s *PaymentService) GetDeploymentPayment(ctx context.Context, collectionID uuid.UUID) (*models.FeePayment, error) {
	return s.payments.GetActive(ctx, collectionID, models.PaymentPurposeContractDeployment)
}

func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*models.FeePayment, error) {
	return s.payments.GetByID(ctx, id)
}

package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/events"
	"github.com/nft-launchpad/backend/internal/models"
)

// PaymentReconciler applies normalized payment observations from both
// channels to the payment ledger and the collection status. It holds no
// locks across store calls; conditional single-row updates are the only
// concurrency control, and a zero-row update means another delivery of the
// same observation already won.
type PaymentReconciler struct {
	collections CollectionStore
	payments    PaymentStore
	publisher   events.Publisher
	audit       Auditor
	deploy      DeployTrigger
	log         *zap.Logger
}

func NewPaymentReconciler(
	collections CollectionStore,
	payments PaymentStore,
	publisher events.Publisher,
	audit Auditor,
	deploy DeployTrigger,
	log *zap.Logger,
) *PaymentReconciler {
	return &PaymentReconciler{
		collections: collections,
		payments:    payments,
		publisher:   publisher,
		audit:       audit,
		deploy:      deploy,
		log:         log,
	}
}

// ObserveCryptoPayment folds one incremental on-chain transfer into the
// active intent. Amounts are compared with exact decimal arithmetic; the
// incoming amount is additive on top of whatever was already paid.
//
// Duplicate deliveries after the intent left PENDING land on the
// conditional-update guard and become silent no-ops.
func (r *PaymentReconciler) ObserveCryptoPayment(ctx context.Context, ev models.NormalizedPaymentEvent) error {
	intent, err := r.payments.GetActive(ctx, ev.CollectionID, ev.Purpose)
	if err != nil {
		var notFound *apperrors.NotFoundError
		if errors.As(err, &notFound) {
			r.log.Warn("chain payment with no active intent, dropping",
				zap.String("collection_id", ev.CollectionID.String()),
				zap.String("tx_hash", ev.TxHash))
			return nil
		}
		return err
	}
	if intent.Method != models.PaymentMethodCrypto || intent.Status != models.PaymentStatusPending {
		r.log.Warn("chain payment does not match intent state, dropping",
			zap.String("intent_id", intent.ID.String()),
			zap.String("method", intent.Method),
			zap.String("status", intent.Status))
		return nil
	}

	paid := "0"
	if intent.AmountPaid != nil {
		paid = *intent.AmountPaid
	}
	total, err := models.AddAmounts(paid, ev.Amount)
	if err != nil {
		return err
	}

	cmp, err := models.CmpAmounts(total, intent.AmountExpected)
	if err != nil {
		return err
	}

	if cmp < 0 {
		applied, err := r.payments.ApplyPartialPayment(ctx, intent.ID, total, ev.Sender, ev.TxHash)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}
		if _, err := r.collections.UpdateStatusIf(ctx, ev.CollectionID,
			models.CollectionStatusProcessingPayment,
			models.CollectionStatusPaymentPending); err != nil {
			return err
		}
		r.log.Info("partial crypto payment recorded",
			zap.String("intent_id", intent.ID.String()),
			zap.String("amount_paid", total),
			zap.String("amount_expected", intent.AmountExpected))
		r.publishPayment(ctx, ev, total, false)
		return nil
	}

	applied, err := r.payments.MarkSucceeded(ctx, intent.ID, total, ev.Sender, ev.TxHash)
	if err != nil {
		return err
	}
	if !applied {
		// Redelivered or raced with the fiat channel; already settled.
		return nil
	}

	if _, err := r.collections.UpdateStatusIf(ctx, ev.CollectionID,
		models.CollectionStatusDeploymentInProgress,
		models.CollectionStatusPaymentPending,
		models.CollectionStatusProcessingPayment); err != nil {
		return err
	}

	r.log.Info("crypto payment completed",
		zap.String("intent_id", intent.ID.String()),
		zap.String("amount_paid", total))
	_ = r.audit.Log(ctx, models.AuditLog{
		ActorType:  models.ActorChain,
		Action:     "payment.succeeded",
		EntityType: "fee_payment",
		EntityID:   &intent.ID,
		Meta:       map[string]any{"amount_paid": total, "tx_hash": ev.TxHash},
	})
	r.publishPayment(ctx, ev, total, true)

	r.deploy.Trigger(ev.CollectionID)
	return nil
}

// HandleFiatProcessing marks the collection as having an in-flight fiat
// payment. A zero-row update (already processing, already deployed) is fine.
func (r *PaymentReconciler) HandleFiatProcessing(ctx context.Context, ev models.NormalizedPaymentEvent) error {
	moved, err := r.collections.UpdateStatusIf(ctx, ev.CollectionID,
		models.CollectionStatusProcessingPayment,
		models.CollectionStatusPaymentPending)
	if err != nil {
		return err
	}
	if moved {
		r.publishStatus(ctx, ev.CollectionID.String(), models.CollectionStatusProcessingPayment)
	}
	return nil
}

// HandleFiatSucceeded settles the active fiat intent in full and starts
// deployment. The provider amount is absolute; when the provider omits it
// the expected amount is recorded.
func (r *PaymentReconciler) HandleFiatSucceeded(ctx context.Context, ev models.NormalizedPaymentEvent) error {
	intent, err := r.payments.GetActive(ctx, ev.CollectionID, ev.Purpose)
	if err != nil {
		var notFound *apperrors.NotFoundError
		if errors.As(err, &notFound) {
			r.log.Warn("fiat success with no active intent, dropping",
				zap.String("collection_id", ev.CollectionID.String()))
			return nil
		}
		return err
	}
	if intent.Method != models.PaymentMethodFiat {
		r.log.Warn("fiat success for non-fiat intent, dropping",
			zap.String("intent_id", intent.ID.String()))
		return nil
	}

	amount := ev.Amount
	if amount == "" {
		amount = intent.AmountExpected
	}

	applied, err := r.payments.MarkFiatSucceeded(ctx, intent.ID, amount, ev.Sender)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	if _, err := r.collections.UpdateStatusIf(ctx, ev.CollectionID,
		models.CollectionStatusDeploymentInProgress,
		models.CollectionStatusPaymentPending,
		models.CollectionStatusProcessingPayment); err != nil {
		return err
	}

	r.log.Info("fiat payment completed",
		zap.String("intent_id", intent.ID.String()),
		zap.String("provider_tx_id", ev.Sender))
	_ = r.audit.Log(ctx, models.AuditLog{
		ActorType:  models.ActorProvider,
		Action:     "payment.succeeded",
		EntityType: "fee_payment",
		EntityID:   &intent.ID,
		Meta:       map[string]any{"amount_paid": amount, "provider_tx_id": ev.Sender},
	})
	r.publishPayment(ctx, ev, amount, true)

	r.deploy.Trigger(ev.CollectionID)
	return nil
}

// HandleFiatFailed deactivates the fiat intent after a provider failure or
// cancellation and parks the collection in deployment_failed for operator
// recovery. The active intent may belong to the other channel by the time a
// late delivery arrives (the fiat intent expired, the user opened a crypto
// one); only a fiat intent is ever failed here.
func (r *PaymentReconciler) HandleFiatFailed(ctx context.Context, ev models.NormalizedPaymentEvent) error {
	intent, err := r.payments.GetActive(ctx, ev.CollectionID, ev.Purpose)
	if err != nil {
		var notFound *apperrors.NotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	if intent.Method != models.PaymentMethodFiat {
		r.log.Warn("fiat failure for non-fiat intent, dropping",
			zap.String("intent_id", intent.ID.String()),
			zap.String("method", intent.Method))
		return nil
	}

	applied, err := r.payments.MarkFailed(ctx, intent.ID, ev.Sender)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	if _, err := r.collections.UpdateStatusIf(ctx, ev.CollectionID,
		models.CollectionStatusDeploymentFailed,
		models.CollectionStatusPaymentPending,
		models.CollectionStatusProcessingPayment); err != nil {
		return err
	}

	r.log.Info("fiat payment failed",
		zap.String("intent_id", intent.ID.String()),
		zap.String("provider_tx_id", ev.Sender))
	_ = r.audit.Log(ctx, models.AuditLog{
		ActorType:  models.ActorProvider,
		Action:     "payment.failed",
		EntityType: "fee_payment",
		EntityID:   &intent.ID,
		Meta:       map[string]any{"provider_tx_id": ev.Sender},
	})
	r.publishStatus(ctx, ev.CollectionID.String(), models.CollectionStatusDeploymentFailed)
	return nil
}

// ExpireOverduePayments sweeps pending intents past their deadline: the
// intent goes to expired and its collection reverts to draft with fee
// estimates cleared so the payment flow can restart. Returns how many
// intents this sweep actually expired.
func (r *PaymentReconciler) ExpireOverduePayments(ctx context.Context, limit int) (int, error) {
	overdue, err := r.payments.ListExpired(ctx, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range overdue {
		applied, err := r.payments.MarkExpired(ctx, p.ID)
		if err != nil {
			return expired, err
		}
		if !applied {
			continue
		}
		expired++

		if _, err := r.collections.ResetToDraft(ctx, p.CollectionID,
			models.CollectionStatusPaymentPending,
			models.CollectionStatusProcessingPayment); err != nil {
			return expired, err
		}

		r.log.Info("payment intent expired",
			zap.String("intent_id", p.ID.String()),
			zap.String("collection_id", p.CollectionID.String()))
		_ = r.audit.Log(ctx, models.AuditLog{
			ActorType:  models.ActorSystem,
			Action:     "payment.expired",
			EntityType: "fee_payment",
			EntityID:   &p.ID,
		})
		r.publish(ctx, events.EventPaymentExpired, map[string]any{
			"collection_id": p.CollectionID.String(),
			"payment_id":    p.ID.String(),
		})
	}
	return expired, nil
}

func (r *PaymentReconciler) publishPayment(ctx context.Context, ev models.NormalizedPaymentEvent, total string, complete bool) {
	r.publish(ctx, events.EventPaymentReceived, map[string]any{
		"collection_id": ev.CollectionID.String(),
		"channel":       ev.Channel,
		"amount_paid":   total,
		"complete":      complete,
	})
}

func (r *PaymentReconciler) publishStatus(ctx context.Context, collectionID, status string) {
	r.publish(ctx, events.EventCollectionStatusChanged, map[string]any{
		"collection_id": collectionID,
		"status":        status,
	})
}

func (r *PaymentReconciler) publish(ctx context.Context, eventType string, payload map[string]any) {
	if err := r.publisher.Publish(ctx, events.StreamCollections, events.Event{
		Type:    eventType,
		Payload: payload,
	}); err != nil {
		r.log.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

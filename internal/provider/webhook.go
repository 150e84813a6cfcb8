package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/models"
)

// Provider event types mapped onto the reconciler.
const (
	eventPaymentProcessing = "payment.processing"
	eventPaymentSucceeded  = "payment.succeeded"
	eventPaymentFailed     = "payment.failed"
	eventPaymentCanceled   = "payment.canceled"
)

// FiatReconciler is the reconciler surface the webhook processor drives.
type FiatReconciler interface {
	HandleFiatProcessing(ctx context.Context, ev models.NormalizedPaymentEvent) error
	HandleFiatSucceeded(ctx context.Context, ev models.NormalizedPaymentEvent) error
	HandleFiatFailed(ctx context.Context, ev models.NormalizedPaymentEvent) error
}

type webhookEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Amount   string `json:"amount"`
	Metadata struct {
		Product      string `json:"product"`
		CollectionID string `json:"collection_id"`
	} `json:"metadata"`
}

// Processor verifies and applies payment provider callbacks. Each delivery
// is handled synchronously: the provider redelivers with backoff on any
// non-2xx response, so transient failures must surface as errors and only
// genuine no-ops may succeed silently.
type Processor struct {
	secret     string
	productTag string
	reconciler FiatReconciler
	log        *zap.Logger
}

func NewProcessor(secret, productTag string, reconciler FiatReconciler, log *zap.Logger) *Processor {
	return &Processor{
		secret:     secret,
		productTag: productTag,
		reconciler: reconciler,
		log:        log,
	}
}

// VerifySignature checks the hex HMAC-SHA256 of the raw body against the
// shared provider secret.
func (p *Processor) VerifySignature(body []byte, signature string) error {
	if p.secret == "" {
		return apperrors.NewAuthentication("webhook secret not configured")
	}
	mac := hmac.New(sha256.New, []byte(p.secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return apperrors.NewAuthentication("malformed signature")
	}
	if !hmac.Equal(expected, provided) {
		return apperrors.NewAuthentication("signature mismatch")
	}
	return nil
}

// Process handles one webhook delivery. Events for other products sharing
// the provider account are acknowledged without any state mutation.
func (p *Processor) Process(ctx context.Context, body []byte, signature string) error {
	if err := p.VerifySignature(body, signature); err != nil {
		return err
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}

	if ev.Metadata.Product != p.productTag {
		p.log.Debug("webhook for another product, acknowledging",
			zap.String("product", ev.Metadata.Product))
		return nil
	}

	collectionID, err := uuid.Parse(ev.Metadata.CollectionID)
	if err != nil {
		return fmt.Errorf("webhook %s: invalid collection_id %q: %w", ev.ID, ev.Metadata.CollectionID, err)
	}

	obs := models.NormalizedPaymentEvent{
		CollectionID: collectionID,
		Purpose:      models.PaymentPurposeContractDeployment,
		Method:       models.PaymentMethodFiat,
		Amount:       ev.Amount,
		Sender:       ev.ID,
		Channel:      models.PaymentChannelProvider,
	}

	p.log.Info("provider webhook received",
		zap.String("event_id", ev.ID),
		zap.String("type", ev.Type),
		zap.String("collection_id", collectionID.String()))

	switch ev.Type {
	case eventPaymentProcessing:
		return p.reconciler.HandleFiatProcessing(ctx, obs)
	case eventPaymentSucceeded:
		return p.reconciler.HandleFiatSucceeded(ctx, obs)
	case eventPaymentFailed, eventPaymentCanceled:
		return p.reconciler.HandleFiatFailed(ctx, obs)
	default:
		p.log.Debug("unhandled webhook type, acknowledging", zap.String("type", ev.Type))
		return nil
	}
}

package listener

import (
	"context"
	"errors"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/chain"
	"github.com/nft-launchpad/backend/internal/config"
	"github.com/nft-launchpad/backend/internal/models"
	"github.com/nft-launchpad/backend/internal/services"
)

const (
	initialBackoff = time.Second
	maxBackoff     = time.Minute
)

// CryptoObserver is the reconciler surface the listener feeds.
type CryptoObserver interface {
	ObserveCryptoPayment(ctx context.Context, ev models.NormalizedPaymentEvent) error
}

// Listener tails one network's payment contract for PaidForDeployment
// events and forwards them as normalized payment observations. One Listener
// runs per configured network, independently of the others.
//
// Delivery order across reconnects is not guaranteed and events may be
// re-delivered; the reconciler treats amounts as strictly additive and
// settles duplicates through its conditional-update guards.
type Listener struct {
	network  config.NetworkConfig
	source   chain.LogSource
	norm     *chain.Normalizer
	payments services.PaymentStore
	observer CryptoObserver
	log      *zap.Logger
}

func New(
	network config.NetworkConfig,
	source chain.LogSource,
	norm *chain.Normalizer,
	payments services.PaymentStore,
	observer CryptoObserver,
	log *zap.Logger,
) *Listener {
	return &Listener{
		network:  network,
		source:   source,
		norm:     norm,
		payments: payments,
		observer: observer,
		log:      log.With(zap.String("network", network.Name)),
	}
}

// Run blocks until ctx is cancelled, resubscribing with exponential backoff
// whenever the subscription drops.
func (l *Listener) Run(ctx context.Context) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		logs, errs, err := l.source.SubscribeLogs(ctx, l.network.Name, l.network.PaymentContract)
		if err == nil {
			l.log.Info("subscribed to payment contract",
				zap.String("contract", l.network.PaymentContract))
			backoff = initialBackoff
			if !l.consume(ctx, logs, errs) {
				return
			}
		} else {
			l.log.Error("subscription failed", zap.Error(err))
		}

		l.log.Info("resubscribing", zap.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// consume drains the subscription until it drops (returns true, resubscribe)
// or the context ends (returns false).
func (l *Listener) consume(ctx context.Context, logs <-chan chain.Log, errs <-chan error) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case err := <-errs:
			l.log.Warn("subscription dropped", zap.Error(err))
			return true
		case lg, ok := <-logs:
			if !ok {
				return true
			}
			l.handleLog(ctx, lg)
		}
	}
}

func (l *Listener) handleLog(ctx context.Context, lg chain.Log) {
	batch := l.norm.Batch([]chain.Log{lg})
	ev, ok := batch.Next()
	if !ok {
		return
	}
	if failures := batch.Failures(); len(failures) > 0 {
		f := failures[0]
		l.log.Warn("undecodable log",
			zap.String("tx_hash", f.TxHash),
			zap.Uint64("block", f.BlockNumber),
			zap.Uint("log_index", f.LogIndex),
			zap.String("reason", f.Reason))
		return
	}
	if ev.Name != chain.EventPaidForDeployment {
		return
	}

	collectionID, err := chain.CollectionIDFromHex(ev.Params["collectionId"])
	if err != nil {
		l.log.Warn("payment event with invalid collection id",
			zap.String("raw", ev.Params["collectionId"]), zap.Error(err))
		return
	}

	units, ok := new(big.Int).SetString(ev.Params["amount"], 10)
	if !ok {
		l.log.Warn("payment event with invalid amount",
			zap.String("raw", ev.Params["amount"]))
		return
	}
	amount := models.FormatAmount(units)

	// No active pending intent means the event is stale or duplicate.
	intent, err := l.payments.GetActive(ctx, collectionID, models.PaymentPurposeContractDeployment)
	if err != nil {
		var notFound *apperrors.NotFoundError
		if errors.As(err, &notFound) {
			l.log.Info("payment event without active intent, dropping",
				zap.String("collection_id", collectionID.String()),
				zap.String("tx_hash", lg.TxHash))
			return
		}
		l.log.Error("failed to look up payment intent", zap.Error(err))
		return
	}
	if intent.Status != models.PaymentStatusPending {
		l.log.Info("payment event for settled intent, dropping",
			zap.String("intent_id", intent.ID.String()))
		return
	}

	obs := models.NormalizedPaymentEvent{
		CollectionID: collectionID,
		Purpose:      models.PaymentPurposeContractDeployment,
		Method:       models.PaymentMethodCrypto,
		Amount:       amount,
		Sender:       ev.Params["sender"],
		Network:      l.network.Name,
		Channel:      models.PaymentChannelChain,
		TxHash:       lg.TxHash,
		ObservedAt:   time.Now(),
	}
	if err := l.observer.ObserveCryptoPayment(ctx, obs); err != nil {
		l.log.Error("failed to reconcile chain payment",
			zap.String("collection_id", collectionID.String()),
			zap.String("tx_hash", lg.TxHash),
			zap.Error(err))
	}
}

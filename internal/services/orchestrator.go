package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/chain"
	"github.com/nft-launchpad/backend/internal/events"
	"github.com/nft-launchpad/backend/internal/models"
)

// DeploymentOrchestrator drives the contract deployment of a paid
// collection. Deploy is safe to invoke concurrently and repeatedly for the
// same collection: the conditional contract_address write is the only thing
// that decides which attempt's result is kept.
type DeploymentOrchestrator struct {
	collections CollectionStore
	items       ItemStore
	chainClient chain.Client
	norm        *chain.Normalizer
	publisher   events.Publisher
	audit       Auditor
	metaBaseURL string
	timeout     time.Duration
	log         *zap.Logger
}

func NewDeploymentOrchestrator(
	collections CollectionStore,
	items ItemStore,
	chainClient chain.Client,
	norm *chain.Normalizer,
	publisher events.Publisher,
	audit Auditor,
	metaBaseURL string,
	timeout time.Duration,
	log *zap.Logger,
) *DeploymentOrchestrator {
	return &DeploymentOrchestrator{
		collections: collections,
		items:       items,
		chainClient: chainClient,
		norm:        norm,
		publisher:   publisher,
		audit:       audit,
		metaBaseURL: metaBaseURL,
		timeout:     timeout,
		log:         log,
	}
}

// Trigger runs Deploy in the background with the configured timeout. The
// caller never learns the outcome directly; it is persisted on the
// collection and published on the event stream.
func (o *DeploymentOrchestrator) Trigger(collectionID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()

		if _, err := o.Deploy(ctx, collectionID); err != nil {
			var conflict *apperrors.ConflictError
			if errors.As(err, &conflict) {
				o.log.Debug("deploy already handled elsewhere",
					zap.String("collection_id", collectionID.String()))
				return
			}
			o.log.Error("deployment attempt failed",
				zap.String("collection_id", collectionID.String()), zap.Error(err))
		}
	}()
}

// Deploy deploys the collection's contract and returns its address.
//
// A collection that already has a contract address returns that address as a
// success no-op. Racing attempts are serialized by the conditional
// contract_address update, not by any in-memory lock.
func (o *DeploymentOrchestrator) Deploy(ctx context.Context, collectionID uuid.UUID) (string, error) {
	// Always re-read the source of truth, never a cached view.
	col, err := o.collections.GetByID(ctx, collectionID)
	if err != nil {
		return "", err
	}
	if col.ContractAddress != nil {
		return *col.ContractAddress, nil
	}

	item, itemErr := o.items.GetByCollection(ctx, collectionID)

	missing := col.MissingDeployFields()
	if itemErr != nil {
		var notFound *apperrors.NotFoundError
		if !errors.As(itemErr, &notFound) {
			return "", itemErr
		}
		missing = append(missing, "item")
	} else {
		missing = append(missing, item.MissingDeployFields()...)
	}
	if len(missing) > 0 {
		o.markFailed(ctx, collectionID, "missing required fields")
		return "", apperrors.NewValidation(missing...)
	}

	moved, err := o.collections.UpdateStatusIf(ctx, collectionID,
		models.CollectionStatusDeploymentInProgress,
		models.CollectionStatusPaymentPending,
		models.CollectionStatusProcessingPayment,
		models.CollectionStatusDeploymentInProgress,
		models.CollectionStatusDeploymentFailed,
	)
	if err != nil {
		return "", err
	}
	if !moved {
		return "", apperrors.NewConflict("start deployment")
	}

	receipt, err := o.chainClient.Deploy(ctx, chain.DeployParams{
		Network:        col.Chain,
		CollectionID:   col.ID,
		Name:           col.Name,
		Symbol:         col.DeploySymbol(),
		BaseURI:        fmt.Sprintf("%s/%s/", o.metaBaseURL, col.ID),
		RoyaltyAddress: col.RoyaltyAddress,
		PayoutAddress:  col.PayoutAddress,
		Price:          item.Price,
		RoyaltyBPS:     int64(col.RoyaltyBPS),
		MaxSupply:      item.MaxSupply,
	})
	if err != nil {
		// Not retried automatically: a blind re-submit risks paying the
		// deployment fee twice. Recovery is an explicit operator action.
		o.markFailed(ctx, collectionID, err.Error())
		return "", apperrors.NewExternal("chain-rpc", err)
	}

	addr, err := o.contractAddressFromReceipt(receipt, collectionID)
	if err != nil {
		o.markFailed(ctx, collectionID, err.Error())
		return "", apperrors.NewExternal("chain-rpc", err)
	}

	applied, err := o.collections.SetContractAddress(ctx, collectionID, addr)
	if err != nil {
		return "", err
	}
	if !applied {
		// Another attempt won the conditional write; its address stands.
		o.log.Info("contract address already persisted by a racing attempt",
			zap.String("collection_id", collectionID.String()))
		current, err := o.collections.GetByID(ctx, collectionID)
		if err != nil || current.ContractAddress == nil {
			return "", apperrors.NewConflict("persist contract address")
		}
		return *current.ContractAddress, nil
	}

	o.log.Info("collection deployed",
		zap.String("collection_id", collectionID.String()),
		zap.String("contract_address", addr),
		zap.String("tx_hash", receipt.TxHash))

	_ = o.audit.Log(ctx, models.AuditLog{
		ActorType:  models.ActorSystem,
		Action:     "collection.deployed",
		EntityType: "collection",
		EntityID:   &collectionID,
		Meta:       map[string]any{"contract_address": addr, "tx_hash": receipt.TxHash},
	})
	o.publish(ctx, events.EventCollectionDeployed, map[string]any{
		"collection_id":    collectionID.String(),
		"contract_address": addr,
	})

	return addr, nil
}

// contractAddressFromReceipt scans the mined receipt for the
// CollectionCreated log matching this collection.
func (o *DeploymentOrchestrator) contractAddressFromReceipt(receipt *chain.Receipt, collectionID uuid.UUID) (string, error) {
	batch := o.norm.Batch(receipt.Logs)
	for {
		ev, ok := batch.Next()
		if !ok {
			break
		}
		if ev.Name != chain.EventCollectionCreated {
			continue
		}
		id, err := chain.CollectionIDFromHex(ev.Params["collectionId"])
		if err != nil || id != collectionID {
			continue
		}
		if addr := ev.Params["contractAddress"]; addr != "" {
			return addr, nil
		}
	}
	for _, f := range batch.Failures() {
		o.log.Warn("undecodable receipt log",
			zap.String("tx_hash", f.TxHash), zap.Uint("log_index", f.LogIndex),
			zap.String("reason", f.Reason))
	}
	return "", fmt.Errorf("receipt %s has no CollectionCreated log for collection %s", receipt.TxHash, collectionID)
}

func (o *DeploymentOrchestrator) markFailed(ctx context.Context, collectionID uuid.UUID, reason string) {
	moved, err := o.collections.UpdateStatusIf(ctx, collectionID,
		models.CollectionStatusDeploymentFailed,
		models.CollectionStatusPaymentPending,
		models.CollectionStatusProcessingPayment,
		models.CollectionStatusDeploymentInProgress,
	)
	if err != nil {
		o.log.Error("failed to mark deployment failed",
			zap.String("collection_id", collectionID.String()), zap.Error(err))
		return
	}
	if !moved {
		return
	}
	_ = o.audit.Log(ctx, models.AuditLog{
		ActorType:  models.ActorSystem,
		Action:     "collection.deployment_failed",
		EntityType: "collection",
		EntityID:   &collectionID,
		Meta:       map[string]any{"reason": reason},
	})
	o.publish(ctx, events.EventCollectionStatusChanged, map[string]any{
		"collection_id": collectionID.String(),
		"status":        models.CollectionStatusDeploymentFailed,
	})
}

func (o *DeploymentOrchestrator) publish(ctx context.Context, eventType string, payload map[string]any) {
	if err := o.publisher.Publish(ctx, events.StreamCollections, events.Event{
		Type:    eventType,
		Payload: payload,
	}); err != nil {
		o.log.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

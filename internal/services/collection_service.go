package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/chain"
	"github.com/nft-launchpad/backend/internal/models"
)

// MintInfo is the immutable public projection of a deployed collection,
// cacheable because nothing in it changes after deployment.
type MintInfo struct {
	CollectionID    uuid.UUID `json:"collection_id"`
	ContractAddress string    `json:"contract_address"`
	Chain           string    `json:"chain"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	TokenFormat     string    `json:"token_format"`
	ImageURL        string    `json:"image_url"`
	Price           string    `json:"price"`
	MaxSupply       int64     `json:"max_supply"`
}

// CollectionService covers collection CRUD, the deployed-collection read
// path and the operator recovery actions.
type CollectionService struct {
	collections CollectionStore
	items       ItemStore
	chainClient chain.Client
	cache       *redis.Client
	audit       Auditor
	deploy      DeployTrigger
	cacheTTL    time.Duration
	log         *zap.Logger
}

func NewCollectionService(
	collections CollectionStore,
	items ItemStore,
	chainClient chain.Client,
	cache *redis.Client,
	audit Auditor,
	deploy DeployTrigger,
	cacheTTL time.Duration,
	log *zap.Logger,
) *CollectionService {
	return &CollectionService{
		collections: collections,
		items:       items,
		chainClient: chainClient,
		cache:       cache,
		audit:       audit,
		deploy:      deploy,
		cacheTTL:    cacheTTL,
		log:         log,
	}
}

func (s *CollectionService) Create(ctx context.Context, col *models.Collection, item *models.CollectionItem) error {
	// The price column is NOT NULL; a malformed price has to be rejected
	// here rather than surface as a database error.
	units, err := models.ParseAmount(item.Price)
	if err != nil {
		return apperrors.NewValidation("item.price")
	}
	item.Price = models.FormatAmount(units)

	col.Status = models.CollectionStatusDraft
	if err := s.collections.Create(ctx, col); err != nil {
		return err
	}
	item.CollectionID = col.ID
	item.Chain = col.Chain
	if err := s.items.Create(ctx, item); err != nil {
		return err
	}
	s.log.Info("collection created",
		zap.String("collection_id", col.ID.String()),
		zap.String("organization_id", col.OrganizationID.String()))
	return nil
}

func (s *CollectionService) Get(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	return s.collections.GetByID(ctx, id)
}

func (s *CollectionService) GetItem(ctx context.Context, collectionID uuid.UUID) (*models.CollectionItem, error) {
	return s.items.GetByCollection(ctx, collectionID)
}

func mintInfoKey(id uuid.UUID) string {
	return "mint_info:" + id.String()
}

// MintInfo returns the mint projection of a deployed collection, served
// from the cache when possible. The cache only skips redundant reads; the
// deployment invariant itself never depends on it.
func (s *CollectionService) MintInfo(ctx context.Context, id uuid.UUID) (*MintInfo, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, mintInfoKey(id)).Result()
		if err == nil {
			var info MintInfo
			if err := json.Unmarshal([]byte(raw), &info); err == nil {
				return &info, nil
			}
		}
	}

	col, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if col.Status != models.CollectionStatusDeployed || col.ContractAddress == nil {
		return nil, apperrors.NewNotFound("deployed collection", id.String())
	}
	item, err := s.items.GetByCollection(ctx, id)
	if err != nil {
		return nil, err
	}

	info := &MintInfo{
		CollectionID:    col.ID,
		ContractAddress: *col.ContractAddress,
		Chain:           col.Chain,
		Name:            col.Name,
		Description:     col.Description,
		TokenFormat:     item.TokenFormat,
		ImageURL:        item.ImageURL,
		Price:           item.Price,
		MaxSupply:       item.MaxSupply,
	}

	if s.cache != nil {
		if data, err := json.Marshal(info); err == nil {
			if err := s.cache.Set(ctx, mintInfoKey(id), data, s.cacheTTL).Err(); err != nil {
				s.log.Warn("failed to cache mint info", zap.Error(err))
			}
		}
	}
	return info, nil
}

// RetryDeploy is the operator action after a failed deployment: move the
// collection back into deployment_in_progress and fire a fresh attempt.
func (s *CollectionService) RetryDeploy(ctx context.Context, id uuid.UUID) error {
	moved, err := s.collections.UpdateStatusIf(ctx, id,
		models.CollectionStatusDeploymentInProgress,
		models.CollectionStatusDeploymentFailed)
	if err != nil {
		return err
	}
	if !moved {
		return apperrors.NewConflict("retry deployment")
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorType:  models.ActorOperator,
		Action:     "collection.retry_deploy",
		EntityType: "collection",
		EntityID:   &id,
	})
	s.deploy.Trigger(id)
	return nil
}

// ResetToDraft is the operator recovery edge from deployment_failed. Stale
// fee estimates are cleared so a new payment intent starts clean.
func (s *CollectionService) ResetToDraft(ctx context.Context, id uuid.UUID) error {
	moved, err := s.collections.ResetToDraft(ctx, id, models.CollectionStatusDeploymentFailed)
	if err != nil {
		return err
	}
	if !moved {
		return apperrors.NewConflict("reset collection to draft")
	}
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorType:  models.ActorOperator,
		Action:     "collection.reset_to_draft",
		EntityType: "collection",
		EntityID:   &id,
	})
	return nil
}

// Balance reads the deployed contract's accumulated mint proceeds.
func (s *CollectionService) Balance(ctx context.Context, id uuid.UUID) (string, error) {
	col, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if col.ContractAddress == nil {
		return "", apperrors.NewNotFound("deployed collection", id.String())
	}
	bal, err := s.chainClient.GetBalance(ctx, col.Chain, *col.ContractAddress)
	if err != nil {
		return "", apperrors.NewExternal("chain-rpc", err)
	}
	return bal, nil
}

// Withdraw pays the deployed contract's proceeds out to the collection's
// payout address.
func (s *CollectionService) Withdraw(ctx context.Context, id uuid.UUID) (string, error) {
	col, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if col.ContractAddress == nil {
		return "", apperrors.NewNotFound("deployed collection", id.String())
	}
	if col.PayoutAddress == "" {
		return "", apperrors.NewValidation("payout_address")
	}

	receipt, err := s.chainClient.Withdraw(ctx, col.Chain, *col.ContractAddress, col.PayoutAddress)
	if err != nil {
		return "", apperrors.NewExternal("chain-rpc", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorType:  models.ActorOperator,
		Action:     "collection.withdraw",
		EntityType: "collection",
		EntityID:   &id,
		Meta:       map[string]any{"tx_hash": receipt.TxHash, "recipient": col.PayoutAddress},
	})
	return receipt.TxHash, nil
}

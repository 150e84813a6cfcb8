package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/models"
)

type CollectionRepo struct {
	pool *pgxpool.Pool
}

func NewCollectionRepo(pool *pgxpool.Pool) *CollectionRepo {
	return &CollectionRepo{pool: pool}
}

const collectionColumns = `
	id, organization_id, chain, contract_address, status, name, description, about,
	royalty_address, payout_address, royalty_bps, agree_to_terms, understand_irreversible_action,
	fee_estimate_crypto, fee_estimate_fiat, payment_expires_at, created_at, updated_at
`

func scanCollection(row pgx.Row) (*models.Collection, error) {
	var c models.Collection
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Chain, &c.ContractAddress, &c.Status, &c.Name,
		&c.Description, &c.About, &c.RoyaltyAddress, &c.PayoutAddress, &c.RoyaltyBPS,
		&c.AgreeToTerms, &c.UnderstandIrreversibleAction,
		&c.FeeEstimateCrypto, &c.FeeEstimateFiat, &c.PaymentExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CollectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	c, err := scanCollection(r.pool.QueryRow(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("collection", id.String())
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CollectionRepo) Create(ctx context.Context, c *models.Collection) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO collections (organization_id, chain, status, name, description, about,
		                         royalty_address, payout_address, royalty_bps,
		                         agree_to_terms, understand_irreversible_action)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, c.OrganizationID, c.Chain, c.Status, c.Name, c.Description, c.About,
		c.RoyaltyAddress, c.PayoutAddress, c.RoyaltyBPS,
		c.AgreeToTerms, c.UnderstandIrreversibleAction,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CollectionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE collections SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return err
}

// UpdateStatusIf performs a compare-and-swap status transition: the update
// applies only while the row is still in one of the expected source states.
// Returns false when zero rows were affected (someone else got there first).
func (r *CollectionRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, to string, from ...string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE collections SET status = $1, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetContractAddress persists the deployed contract address and moves the
// collection to deployed in one conditional write. The IS NULL predicate is
// the at-most-once enforcement for deployment: a zero-row result means
// another deploy attempt already won.
func (r *CollectionRepo) SetContractAddress(ctx context.Context, id uuid.UUID, addr string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE collections
		SET contract_address = $1, status = $2, updated_at = now()
		WHERE id = $3 AND contract_address IS NULL
	`, addr, models.CollectionStatusDeployed, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *CollectionRepo) SetFeeEstimates(ctx context.Context, id uuid.UUID, crypto, fiat string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE collections
		SET fee_estimate_crypto = $1, fee_estimate_fiat = $2, payment_expires_at = $3, updated_at = now()
		WHERE id = $4
	`, crypto, fiat, expiresAt, id)
	return err
}

// ResetToDraft reverts a collection to draft and clears stale fee estimate
// fields so a fresh payment intent can be created cleanly. Conditional on
// the current status so racing sweeps are no-ops.
func (r *CollectionRepo) ResetToDraft(ctx context.Context, id uuid.UUID, from ...string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE collections
		SET status = $1, fee_estimate_crypto = NULL, fee_estimate_fiat = NULL,
		    payment_expires_at = NULL, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`, models.CollectionStatusDraft, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

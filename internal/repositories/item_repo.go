package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/models"
)

type ItemRepo struct {
	pool *pgxpool.Pool
}

func NewItemRepo(pool *pgxpool.Pool) *ItemRepo {
	return &ItemRepo{pool: pool}
}

func (r *ItemRepo) GetByCollection(ctx context.Context, collectionID uuid.UUID) (*models.CollectionItem, error) {
	var i models.CollectionItem
	err := r.pool.QueryRow(ctx, `
		SELECT id, collection_id, chain, name, description, token_format, image_url,
		       price, max_supply, created_at, updated_at
		FROM collection_items WHERE collection_id = $1
	`, collectionID).Scan(&i.ID, &i.CollectionID, &i.Chain, &i.Name, &i.Description,
		&i.TokenFormat, &i.ImageURL, &i.Price, &i.MaxSupply, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("collection item", collectionID.String())
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *ItemRepo) Create(ctx context.Context, i *models.CollectionItem) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO collection_items (collection_id, chain, name, description, token_format,
		                              image_url, price, max_supply)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, i.CollectionID, i.Chain, i.Name, i.Description, i.TokenFormat,
		i.ImageURL, i.Price, i.MaxSupply,
	).Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
}

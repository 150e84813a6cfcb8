package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/models"
)

// PaymentRepo is the authoritative store of payment intents. Every mutation
// is a single-row conditional update whose affected-row count distinguishes
// "applied" from "already applied by another writer"; no in-memory locking
// is held across these calls.
type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `
	id, collection_id, purpose, method, currency, network, amount_expected, amount_paid,
	status, active, expires_at, sender, tx_hash, provider_tx_id, created_at, updated_at
`

func scanPayment(row pgx.Row) (*models.FeePayment, error) {
	var p models.FeePayment
	err := row.Scan(&p.ID, &p.CollectionID, &p.Purpose, &p.Method, &p.Currency, &p.Network,
		&p.AmountExpected, &p.AmountPaid, &p.Status, &p.Active, &p.ExpiresAt,
		&p.Sender, &p.TxHash, &p.ProviderTxID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new active intent. The partial unique index on
// (collection_id, purpose) WHERE active = 'active' rejects a second active
// intent for the same purpose; that violation surfaces as a ConflictError.
func (r *PaymentRepo) Create(ctx context.Context, p *models.FeePayment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO fee_payments (collection_id, purpose, method, currency, network,
		                          amount_expected, status, active, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, p.CollectionID, p.Purpose, p.Method, p.Currency, p.Network,
		p.AmountExpected, p.Status, p.Active, p.ExpiresAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperrors.NewConflict("create active payment intent")
	}
	return err
}

func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.FeePayment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM fee_payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("payment", id.String())
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetActive returns the single active intent for (collection, purpose).
func (r *PaymentRepo) GetActive(ctx context.Context, collectionID uuid.UUID, purpose string) (*models.FeePayment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM fee_payments
		WHERE collection_id = $1 AND purpose = $2 AND active = $3
	`, collectionID, purpose, models.PaymentActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("active payment intent", collectionID.String())
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyPartialPayment records an accumulated crypto total below the
// expected amount. Guarded on pending+active so late redeliveries after a
// terminal transition affect zero rows.
func (r *PaymentRepo) ApplyPartialPayment(ctx context.Context, id uuid.UUID, total, sender, txHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE fee_payments
		SET amount_paid = $1, sender = $2, tx_hash = $3, updated_at = now()
		WHERE id = $4 AND status = $5 AND active = $6
	`, total, sender, txHash, id, models.PaymentStatusPending, models.PaymentActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkSucceeded finalizes a crypto intent: status successful, active
// cleared. The pending+active guard makes this transition happen at most
// once even under duplicate event delivery.
func (r *PaymentRepo) MarkSucceeded(ctx context.Context, id uuid.UUID, total, sender, txHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE fee_payments
		SET amount_paid = $1, sender = $2, tx_hash = $3,
		    status = $4, active = NULL, updated_at = now()
		WHERE id = $5 AND status = $6 AND active = $7
	`, total, sender, txHash, models.PaymentStatusSuccessful,
		id, models.PaymentStatusPending, models.PaymentActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFiatSucceeded finalizes a fiat intent from a provider webhook. The
// provider amount is absolute, not accumulated.
func (r *PaymentRepo) MarkFiatSucceeded(ctx context.Context, id uuid.UUID, amount, providerTxID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE fee_payments
		SET amount_paid = $1, provider_tx_id = $2,
		    status = $3, active = NULL, updated_at = now()
		WHERE id = $4 AND status = $5 AND active = $6
	`, amount, providerTxID, models.PaymentStatusSuccessful,
		id, models.PaymentStatusPending, models.PaymentActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed deactivates an intent after a provider failure/cancellation.
func (r *PaymentRepo) MarkFailed(ctx context.Context, id uuid.UUID, providerTxID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE fee_payments
		SET provider_tx_id = NULLIF($1, ''), status = $2, active = NULL, updated_at = now()
		WHERE id = $3 AND status = $4 AND active = $5
	`, providerTxID, models.PaymentStatusFailed,
		id, models.PaymentStatusPending, models.PaymentActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListExpired returns pending intents whose deadline has passed.
func (r *PaymentRepo) ListExpired(ctx context.Context, limit int) ([]models.FeePayment, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM fee_payments
		WHERE status = $1 AND expires_at < now()
		ORDER BY expires_at LIMIT $2
	`, models.PaymentStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.FeePayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// MarkExpired transitions an overdue pending intent to expired and clears
// the active flag. Conditional on the deadline as well, so a payment that
// raced to successful (or got a fresh deadline) is untouched.
func (r *PaymentRepo) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE fee_payments
		SET status = $1, active = NULL, updated_at = now()
		WHERE id = $2 AND status = $3 AND active = $4 AND expires_at < now()
	`, models.PaymentStatusExpired, id, models.PaymentStatusPending, models.PaymentActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

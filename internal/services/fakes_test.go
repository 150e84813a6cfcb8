package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/events"
	"github.com/nft-launchpad/backend/internal/models"
)

// In-memory stores mirroring the repositories' conditional-update
// semantics: every mutation checks its guard under the mutex and reports
// whether it applied, exactly like a single-row UPDATE's affected count.

type fakeCollections struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Collection
}

func newFakeCollections(cols ...*models.Collection) *fakeCollections {
	f := &fakeCollections{rows: make(map[uuid.UUID]*models.Collection)}
	for _, c := range cols {
		cp := *c
		f.rows[c.ID] = &cp
	}
	return f
}

func (f *fakeCollections) GetByID(_ context.Context, id uuid.UUID) (*models.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, apperrors.NewNotFound("collection", id.String())
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCollections) Create(_ context.Context, c *models.Collection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeCollections) UpdateStatusIf(_ context.Context, id uuid.UUID, to string, from ...string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if c.Status == s {
			c.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCollections) SetContractAddress(_ context.Context, id uuid.UUID, addr string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok || c.ContractAddress != nil {
		return false, nil
	}
	c.ContractAddress = &addr
	c.Status = models.CollectionStatusDeployed
	return true, nil
}

func (f *fakeCollections) SetFeeEstimates(_ context.Context, id uuid.UUID, crypto, fiat string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.rows[id]; ok {
		c.FeeEstimateCrypto = &crypto
		c.FeeEstimateFiat = &fiat
		c.PaymentExpiresAt = &expiresAt
	}
	return nil
}

func (f *fakeCollections) ResetToDraft(_ context.Context, id uuid.UUID, from ...string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if c.Status == s {
			c.Status = models.CollectionStatusDraft
			c.FeeEstimateCrypto = nil
			c.FeeEstimateFiat = nil
			c.PaymentExpiresAt = nil
			return true, nil
		}
	}
	return false, nil
}

type fakePayments struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.FeePayment
}

func newFakePayments(intents ...*models.FeePayment) *fakePayments {
	f := &fakePayments{rows: make(map[uuid.UUID]*models.FeePayment)}
	for _, p := range intents {
		cp := *p
		f.rows[p.ID] = &cp
	}
	return f
}

func (f *fakePayments) Create(_ context.Context, p *models.FeePayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.CollectionID == p.CollectionID && existing.Purpose == p.Purpose &&
			existing.Active != nil {
			return apperrors.NewConflict("create active payment intent")
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakePayments) GetByID(_ context.Context, id uuid.UUID) (*models.FeePayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, apperrors.NewNotFound("payment", id.String())
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) GetActive(_ context.Context, collectionID uuid.UUID, purpose string) (*models.FeePayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.CollectionID == collectionID && p.Purpose == purpose && p.Active != nil {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("active payment intent", collectionID.String())
}

func (f *fakePayments) ApplyPartialPayment(_ context.Context, id uuid.UUID, total, sender, txHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.Status != models.PaymentStatusPending || p.Active == nil {
		return false, nil
	}
	p.AmountPaid = &total
	p.Sender = &sender
	p.TxHash = &txHash
	return true, nil
}

func (f *fakePayments) MarkSucceeded(_ context.Context, id uuid.UUID, total, sender, txHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.Status != models.PaymentStatusPending || p.Active == nil {
		return false, nil
	}
	p.AmountPaid = &total
	p.Sender = &sender
	p.TxHash = &txHash
	p.Status = models.PaymentStatusSuccessful
	p.Active = nil
	return true, nil
}

func (f *fakePayments) MarkFiatSucceeded(_ context.Context, id uuid.UUID, amount, providerTxID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.Status != models.PaymentStatusPending || p.Active == nil {
		return false, nil
	}
	p.AmountPaid = &amount
	p.ProviderTxID = &providerTxID
	p.Status = models.PaymentStatusSuccessful
	p.Active = nil
	return true, nil
}

func (f *fakePayments) MarkFailed(_ context.Context, id uuid.UUID, providerTxID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.Status != models.PaymentStatusPending || p.Active == nil {
		return false, nil
	}
	if providerTxID != "" {
		p.ProviderTxID = &providerTxID
	}
	p.Status = models.PaymentStatusFailed
	p.Active = nil
	return true, nil
}

func (f *fakePayments) ListExpired(_ context.Context, limit int) ([]models.FeePayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.FeePayment
	now := time.Now()
	for _, p := range f.rows {
		if p.Status == models.PaymentStatusPending && p.ExpiresAt.Before(now) {
			out = append(out, *p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakePayments) MarkExpired(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.Status != models.PaymentStatusPending || p.Active == nil || p.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	p.Status = models.PaymentStatusExpired
	p.Active = nil
	return true, nil
}

type fakeItems struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.CollectionItem
}

func newFakeItems(items ...*models.CollectionItem) *fakeItems {
	f := &fakeItems{rows: make(map[uuid.UUID]*models.CollectionItem)}
	for _, i := range items {
		cp := *i
		f.rows[i.CollectionID] = &cp
	}
	return f
}

func (f *fakeItems) GetByCollection(_ context.Context, collectionID uuid.UUID) (*models.CollectionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.rows[collectionID]
	if !ok {
		return nil, apperrors.NewNotFound("collection item", collectionID.String())
	}
	cp := *i
	return &cp, nil
}

func (f *fakeItems) Create(_ context.Context, i *models.CollectionItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	cp := *i
	f.rows[i.CollectionID] = &cp
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) byType(t string) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, e := range f.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAuditor) Log(_ context.Context, entry models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

type fakeTrigger struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (f *fakeTrigger) Trigger(collectionID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, collectionID)
}

func (f *fakeTrigger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

package listener

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/chain"
	"github.com/nft-launchpad/backend/internal/config"
	"github.com/nft-launchpad/backend/internal/models"
)

type fakePayments struct {
	mu      sync.Mutex
	intents map[uuid.UUID]*models.FeePayment
}

func (f *fakePayments) GetActive(_ context.Context, collectionID uuid.UUID, _ string) (*models.FeePayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.intents[collectionID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperrors.NewNotFound("active payment intent", collectionID.String())
}

func (f *fakePayments) Create(context.Context, *models.FeePayment) error { return nil }
func (f *fakePayments) GetByID(context.Context, uuid.UUID) (*models.FeePayment, error) {
	return nil, apperrors.NewNotFound("payment", "")
}
func (f *fakePayments) ApplyPartialPayment(context.Context, uuid.UUID, string, string, string) (bool, error) {
	return false, nil
}
func (f *fakePayments) MarkSucceeded(context.Context, uuid.UUID, string, string, string) (bool, error) {
	return false, nil
}
func (f *fakePayments) MarkFiatSucceeded(context.Context, uuid.UUID, string, string) (bool, error) {
	return false, nil
}
func (f *fakePayments) MarkFailed(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}
func (f *fakePayments) ListExpired(context.Context, int) ([]models.FeePayment, error) {
	return nil, nil
}
func (f *fakePayments) MarkExpired(context.Context, uuid.UUID) (bool, error) { return false, nil }

type fakeObserver struct {
	mu       sync.Mutex
	observed []models.NormalizedPaymentEvent
}

func (f *fakeObserver) ObserveCryptoPayment(_ context.Context, ev models.NormalizedPaymentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, ev)
	return nil
}

type scriptedSource struct {
	mu         sync.Mutex
	subscribes int
	logs       chan chain.Log
	errs       chan error
}

func (s *scriptedSource) SubscribeLogs(context.Context, string, string) (<-chan chain.Log, <-chan error, error) {
	s.mu.Lock()
	s.subscribes++
	s.mu.Unlock()
	return s.logs, s.errs, nil
}

func paidForDeploymentLog(t *testing.T, sender common.Address, units *big.Int, collectionID uuid.UUID) chain.Log {
	t.Helper()
	parsed, err := ethabi.JSON(strings.NewReader(chain.PaymentEventsABI))
	if err != nil {
		t.Fatalf("parse ABI: %v", err)
	}
	ev := parsed.Events[chain.EventPaidForDeployment]
	data, err := ev.Inputs.NonIndexed().Pack(units)
	if err != nil {
		t.Fatalf("pack amount: %v", err)
	}
	idBytes := chain.CollectionIDToBytes32(collectionID)
	return chain.Log{
		Topics: []string{
			ev.ID.Hex(),
			common.BytesToHash(common.LeftPadBytes(sender.Bytes(), 32)).Hex(),
			common.BytesToHash(idBytes[:]).Hex(),
		},
		Data:        data,
		BlockNumber: 42,
		TxHash:      "0xabc",
	}
}

func newTestListener(t *testing.T, payments *fakePayments, observer *fakeObserver) *Listener {
	t.Helper()
	norm, err := chain.NewNormalizer(chain.PaymentEventsABI)
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}
	net := config.NetworkConfig{Name: "base", PaymentContract: "0xpay"}
	return New(net, &scriptedSource{}, norm, payments, observer, zap.NewNop())
}

func activeIntent(collectionID uuid.UUID) *models.FeePayment {
	active := models.PaymentActive
	return &models.FeePayment{
		ID:             uuid.New(),
		CollectionID:   collectionID,
		Purpose:        models.PaymentPurposeContractDeployment,
		Method:         models.PaymentMethodCrypto,
		Status:         models.PaymentStatusPending,
		Active:         &active,
		AmountExpected: "5.00000000",
	}
}

func TestListenerNormalizesPaymentEvent(t *testing.T) {
	collectionID := uuid.New()
	payments := &fakePayments{intents: map[uuid.UUID]*models.FeePayment{
		collectionID: activeIntent(collectionID),
	}}
	observer := &fakeObserver{}
	l := newTestListener(t, payments, observer)

	sender := common.HexToAddress("0x9999999999999999999999999999999999999999")
	// 2.5 in 8 dp base units.
	l.handleLog(context.Background(), paidForDeploymentLog(t, sender, big.NewInt(250000000), collectionID))

	if len(observer.observed) != 1 {
		t.Fatalf("observed %d events, want 1", len(observer.observed))
	}
	ev := observer.observed[0]
	if ev.CollectionID != collectionID {
		t.Errorf("collection id = %s", ev.CollectionID)
	}
	if ev.Amount != "2.50000000" {
		t.Errorf("amount = %q, want 2.50000000", ev.Amount)
	}
	if ev.Sender != strings.ToLower(sender.Hex()) {
		t.Errorf("sender = %q", ev.Sender)
	}
	if ev.Channel != models.PaymentChannelChain || ev.Network != "base" {
		t.Errorf("channel/network = %s/%s", ev.Channel, ev.Network)
	}
	if ev.TxHash != "0xabc" {
		t.Errorf("tx hash = %q", ev.TxHash)
	}
}

func TestListenerDropsEventWithoutActiveIntent(t *testing.T) {
	payments := &fakePayments{intents: map[uuid.UUID]*models.FeePayment{}}
	observer := &fakeObserver{}
	l := newTestListener(t, payments, observer)

	sender := common.HexToAddress("0x99")
	l.handleLog(context.Background(), paidForDeploymentLog(t, sender, big.NewInt(100), uuid.New()))

	if len(observer.observed) != 0 {
		t.Fatalf("stale event reached the reconciler: %+v", observer.observed)
	}
}

func TestListenerIgnoresUndecodableLog(t *testing.T) {
	collectionID := uuid.New()
	payments := &fakePayments{intents: map[uuid.UUID]*models.FeePayment{
		collectionID: activeIntent(collectionID),
	}}
	observer := &fakeObserver{}
	l := newTestListener(t, payments, observer)

	lg := paidForDeploymentLog(t, common.HexToAddress("0x99"), big.NewInt(100), collectionID)
	lg.Data = lg.Data[:4]
	l.handleLog(context.Background(), lg)

	if len(observer.observed) != 0 {
		t.Fatal("malformed log reached the reconciler")
	}
}

func TestListenerResubscribesAfterDrop(t *testing.T) {
	src := &scriptedSource{
		logs: make(chan chain.Log),
		errs: make(chan error, 2),
	}
	norm, err := chain.NewNormalizer(chain.PaymentEventsABI)
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}
	l := New(config.NetworkConfig{Name: "base"}, src, norm,
		&fakePayments{intents: map[uuid.UUID]*models.FeePayment{}}, &fakeObserver{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	// Drop the first subscription; the listener must come back for another.
	src.errs <- context.DeadlineExceeded

	deadline := time.After(5 * time.Second)
	for {
		src.mu.Lock()
		n := src.subscribes
		src.mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("listener did not resubscribe after a drop")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop on context cancellation")
	}
}

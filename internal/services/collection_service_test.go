package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nft-launchpad/backend/internal/apperrors"
	"github.com/nft-launchpad/backend/internal/models"
)

func newTestCollectionService(cols *fakeCollections, items *fakeItems, client *fakeChainClient, trig *fakeTrigger) *CollectionService {
	return NewCollectionService(cols, items, client, nil, &fakeAuditor{}, trig, time.Minute, zap.NewNop())
}

func TestCreateRejectsUnparsableItemPrice(t *testing.T) {
	items := newFakeItems()
	svc := newTestCollectionService(newFakeCollections(), items, &fakeChainClient{}, &fakeTrigger{})
	ctx := context.Background()

	for _, price := range []string{"", "abc", "-1"} {
		col := &models.Collection{ID: uuid.New(), Chain: "base", Name: "drop"}
		item := &models.CollectionItem{Name: "piece", Price: price}
		err := svc.Create(ctx, col, item)
		var verr *apperrors.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("price %q: expected validation error, got %v", price, err)
		}
	}
	if len(items.rows) != 0 {
		t.Fatal("item persisted despite invalid price")
	}
}

func TestCreateNormalizesItemPrice(t *testing.T) {
	items := newFakeItems()
	svc := newTestCollectionService(newFakeCollections(), items, &fakeChainClient{}, &fakeTrigger{})

	col := &models.Collection{ID: uuid.New(), Chain: "base", Name: "drop"}
	item := &models.CollectionItem{Name: "piece", Price: "1.5"}
	if err := svc.Create(context.Background(), col, item); err != nil {
		t.Fatalf("create: %v", err)
	}
	stored, err := items.GetByCollection(context.Background(), col.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if stored.Price != "1.50000000" {
		t.Fatalf("price = %s, want 1.50000000", stored.Price)
	}
}

func TestMintInfoRequiresDeployedCollection(t *testing.T) {
	col, item := deployableCollection()
	svc := newTestCollectionService(newFakeCollections(col), newFakeItems(item), &fakeChainClient{}, &fakeTrigger{})

	_, err := svc.MintInfo(context.Background(), col.ID)
	var notFound *apperrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found for undeployed collection, got %v", err)
	}
}

func TestMintInfoProjection(t *testing.T) {
	col, item := deployableCollection()
	addr := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	col.ContractAddress = &addr
	col.Status = models.CollectionStatusDeployed
	svc := newTestCollectionService(newFakeCollections(col), newFakeItems(item), &fakeChainClient{}, &fakeTrigger{})

	info, err := svc.MintInfo(context.Background(), col.ID)
	if err != nil {
		t.Fatalf("mint info: %v", err)
	}
	if info.ContractAddress != addr || info.Chain != col.Chain || info.Name != col.Name {
		t.Fatalf("info = %+v", info)
	}
	if info.Price != item.Price || info.TokenFormat != item.TokenFormat || info.MaxSupply != item.MaxSupply {
		t.Fatalf("item projection = %+v", info)
	}
}

func TestRetryDeployOnlyFromFailed(t *testing.T) {
	col, _ := deployableCollection()
	col.Status = models.CollectionStatusDeploymentFailed
	cols := newFakeCollections(col)
	trig := &fakeTrigger{}
	svc := newTestCollectionService(cols, newFakeItems(), &fakeChainClient{}, trig)
	ctx := context.Background()

	if err := svc.RetryDeploy(ctx, col.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	c, _ := cols.GetByID(ctx, col.ID)
	if c.Status != models.CollectionStatusDeploymentInProgress {
		t.Fatalf("status = %s", c.Status)
	}
	if trig.count() != 1 {
		t.Fatalf("trigger count = %d", trig.count())
	}

	// A second retry while the attempt is running is rejected.
	err := svc.RetryDeploy(ctx, col.ID)
	var conflict *apperrors.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if trig.count() != 1 {
		t.Fatal("conflicting retry fired another attempt")
	}
}

func TestResetToDraftClearsEstimates(t *testing.T) {
	crypto := "0.00500000"
	col, _ := deployableCollection()
	col.Status = models.CollectionStatusDeploymentFailed
	col.FeeEstimateCrypto = &crypto
	cols := newFakeCollections(col)
	svc := newTestCollectionService(cols, newFakeItems(), &fakeChainClient{}, &fakeTrigger{})
	ctx := context.Background()

	if err := svc.ResetToDraft(ctx, col.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	c, _ := cols.GetByID(ctx, col.ID)
	if c.Status != models.CollectionStatusDraft {
		t.Fatalf("status = %s", c.Status)
	}
	if c.FeeEstimateCrypto != nil {
		t.Fatal("stale fee estimate survived reset")
	}

	// Reset is only valid from deployment_failed.
	err := svc.ResetToDraft(ctx, col.ID)
	var conflict *apperrors.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestWithdrawRequiresDeployedContract(t *testing.T) {
	col, _ := deployableCollection()
	svc := newTestCollectionService(newFakeCollections(col), newFakeItems(), &fakeChainClient{}, &fakeTrigger{})

	_, err := svc.Withdraw(context.Background(), col.ID)
	var notFound *apperrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWithdrawPaysOutToPayoutAddress(t *testing.T) {
	col, _ := deployableCollection()
	addr := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	col.ContractAddress = &addr
	col.Status = models.CollectionStatusDeployed
	svc := newTestCollectionService(newFakeCollections(col), newFakeItems(), &fakeChainClient{}, &fakeTrigger{})

	txHash, err := svc.Withdraw(context.Background(), col.ID)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if txHash != "0xwithdrawtx" {
		t.Fatalf("tx hash = %s", txHash)
	}
}

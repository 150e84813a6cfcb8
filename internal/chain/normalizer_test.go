package chain

import (
	"math/big"
	"strings"
	"testing"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

func mustABI(t *testing.T) ethabi.ABI {
	t.Helper()
	parsed, err := ethabi.JSON(strings.NewReader(PaymentEventsABI))
	if err != nil {
		t.Fatalf("parse ABI: %v", err)
	}
	return parsed
}

func paidLog(t *testing.T, sender common.Address, amount *big.Int, collectionID uuid.UUID) Log {
	t.Helper()
	parsed := mustABI(t)
	ev := parsed.Events[EventPaidForDeployment]

	data, err := ev.Inputs.NonIndexed().Pack(amount)
	if err != nil {
		t.Fatalf("pack amount: %v", err)
	}

	idBytes := CollectionIDToBytes32(collectionID)
	return Log{
		Address: "0x00000000000000000000000000000000000000aa",
		Topics: []string{
			ev.ID.Hex(),
			common.BytesToHash(common.LeftPadBytes(sender.Bytes(), 32)).Hex(),
			common.BytesToHash(idBytes[:]).Hex(),
		},
		Data:        data,
		BlockNumber: 100,
		TxHash:      "0xdead",
		Index:       0,
	}
}

func createdLog(t *testing.T, contract common.Address, collectionID uuid.UUID) Log {
	t.Helper()
	parsed := mustABI(t)
	ev := parsed.Events[EventCollectionCreated]

	idBytes := CollectionIDToBytes32(collectionID)
	return Log{
		Address: "0x00000000000000000000000000000000000000bb",
		Topics: []string{
			ev.ID.Hex(),
			common.BytesToHash(common.LeftPadBytes(contract.Bytes(), 32)).Hex(),
			common.BytesToHash(idBytes[:]).Hex(),
		},
		BlockNumber: 101,
		TxHash:      "0xbeef",
		Index:       1,
	}
}

func TestNormalizerDecodesPaidForDeployment(t *testing.T) {
	norm, err := NewNormalizer(PaymentEventsABI)
	if err != nil {
		t.Fatalf("new normalizer: %v", err)
	}

	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	collectionID := uuid.New()
	amount, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	batch := norm.Batch([]Log{paidLog(t, sender, amount, collectionID)})
	ev, ok := batch.Next()
	if !ok {
		t.Fatal("expected one event")
	}
	if ev.Name != EventPaidForDeployment {
		t.Fatalf("name = %q", ev.Name)
	}
	if got := ev.Params["sender"]; got != strings.ToLower(sender.Hex()) {
		t.Errorf("sender = %q", got)
	}
	if got := ev.Params["amount"]; got != amount.String() {
		t.Errorf("amount = %q, want %q", got, amount.String())
	}
	decoded, err := CollectionIDFromHex(ev.Params["collectionId"])
	if err != nil {
		t.Fatalf("collection id: %v", err)
	}
	if decoded != collectionID {
		t.Errorf("collectionId roundtrip = %s, want %s", decoded, collectionID)
	}
	if len(batch.Failures()) != 0 {
		t.Errorf("unexpected failures: %v", batch.Failures())
	}
	if _, ok := batch.Next(); ok {
		t.Error("batch should be drained")
	}
}

func TestNormalizerDecodesCollectionCreated(t *testing.T) {
	norm, err := NewNormalizer(PaymentEventsABI)
	if err != nil {
		t.Fatalf("new normalizer: %v", err)
	}

	contract := common.HexToAddress("0x2222222222222222222222222222222222222222")
	collectionID := uuid.New()

	batch := norm.Batch([]Log{createdLog(t, contract, collectionID)})
	ev, ok := batch.Next()
	if !ok {
		t.Fatal("expected one event")
	}
	if ev.Name != EventCollectionCreated {
		t.Fatalf("name = %q", ev.Name)
	}
	if got := ev.Params["contractAddress"]; got != strings.ToLower(contract.Hex()) {
		t.Errorf("contractAddress = %q", got)
	}
}

func TestNormalizerMalformedLogDoesNotAbortBatch(t *testing.T) {
	norm, err := NewNormalizer(PaymentEventsABI)
	if err != nil {
		t.Fatalf("new normalizer: %v", err)
	}

	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	first := paidLog(t, sender, big.NewInt(500), uuid.New())

	// Truncated data section fails the non-indexed decode.
	broken := paidLog(t, sender, big.NewInt(500), uuid.New())
	broken.Data = broken.Data[:8]
	broken.Index = 7

	// Unknown event signature.
	unknown := Log{
		Topics: []string{common.HexToHash("0x01").Hex()},
		Index:  8,
	}

	last := createdLog(t, common.HexToAddress("0x22"), uuid.New())

	batch := norm.Batch([]Log{first, broken, unknown, last})

	var decoded, total int
	for {
		ev, ok := batch.Next()
		if !ok {
			break
		}
		total++
		if len(ev.Params) > 0 {
			decoded++
		}
	}

	if total != 4 {
		t.Fatalf("iterated %d logs, want 4", total)
	}
	if decoded != 2 {
		t.Errorf("decoded %d logs, want 2", decoded)
	}

	failures := batch.Failures()
	if len(failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(failures))
	}
	if failures[0].LogIndex != 7 {
		t.Errorf("first failure index = %d", failures[0].LogIndex)
	}
	if failures[0].Reason == "" || failures[1].Reason == "" {
		t.Error("failures must carry a reason")
	}

	// Reset replays the same batch from the top.
	batch.Reset()
	if len(batch.Failures()) != 0 {
		t.Error("Reset must clear failures")
	}
	ev, ok := batch.Next()
	if !ok || ev.Name != EventPaidForDeployment {
		t.Errorf("after Reset, first event = %+v ok=%v", ev, ok)
	}
}

func TestCollectionIDFromHexRejectsGarbage(t *testing.T) {
	if _, err := CollectionIDFromHex("0xzz"); err == nil {
		t.Error("expected error for non-hex input")
	}
	if _, err := CollectionIDFromHex("0x1234"); err == nil {
		t.Error("expected error for short input")
	}
}

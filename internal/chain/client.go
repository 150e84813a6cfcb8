package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Log is a raw chain log entry, decoupled from any particular RPC client so
// the normalizer and receipt scanning can be tested without a node.
type Log struct {
	Address     string
	Topics      []string // 0x-prefixed 32-byte hashes, topic 0 is the event signature
	Data        []byte
	BlockNumber uint64
	TxHash      string
	Index       uint
}

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash string
	Logs   []Log
}

// DeployParams carries everything the collection factory contract needs.
type DeployParams struct {
	Network        string
	CollectionID   uuid.UUID
	Name           string
	Symbol         string
	BaseURI        string
	RoyaltyAddress string
	PayoutAddress  string
	Price          string // decimal string, 8 dp
	RoyaltyBPS     int64
	MaxSupply      int64
}

// Client is the chain-RPC collaborator. Deploy is non-retryable: a failed
// call must surface to the caller, never be silently re-submitted.
type Client interface {
	Deploy(ctx context.Context, params DeployParams) (*Receipt, error)
	GetBalance(ctx context.Context, network, address string) (string, error)
	Withdraw(ctx context.Context, network, contractAddress, recipient string) (*Receipt, error)
}

// LogSource delivers a contract's logs as a live stream. Implementations
// surface subscription drops on the error channel so callers can reconnect.
type LogSource interface {
	SubscribeLogs(ctx context.Context, network, contract string) (<-chan Log, <-chan error, error)
}

// CollectionIDToBytes32 encodes a collection id as the bytes32 event
// parameter: the 16 uuid bytes left-aligned, zero padded.
func CollectionIDToBytes32(id uuid.UUID) [32]byte {
	var b [32]byte
	copy(b[:16], id[:])
	return b
}

// CollectionIDFromHex decodes the bytes32 hex form back to a uuid.
func CollectionIDFromHex(s string) (uuid.UUID, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid collection id hex: %w", err)
	}
	if len(raw) < 16 {
		return uuid.Nil, fmt.Errorf("collection id too short: %d bytes", len(raw))
	}
	return uuid.FromBytes(raw[:16])
}

package chain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DecodedEvent is one chain log matched against the ABI. Params holds every
// event parameter rendered as a string; integer parameters are decimal
// strings of arbitrary precision, never native floats.
type DecodedEvent struct {
	Name   string
	Params map[string]string
	Log    Log
}

// DecodeFailure records a single log that could not be decoded. The rest of
// the batch is unaffected.
type DecodeFailure struct {
	LogIndex    uint
	TxHash      string
	BlockNumber uint64
	Reason      string
}

// Normalizer decodes raw chain logs into typed domain events using an ABI
// description. It is stateless and safe for concurrent use; per-batch state
// lives in the Batch iterator.
type Normalizer struct {
	abi ethabi.ABI
}

func NewNormalizer(abiJSON string) (*Normalizer, error) {
	parsed, err := ethabi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}
	return &Normalizer{abi: parsed}, nil
}

// Batch wraps a finite slice of logs in a restartable iterator.
func (n *Normalizer) Batch(logs []Log) *Batch {
	return &Batch{norm: n, logs: logs}
}

// Batch iterates the decoded events of one log batch. A log that fails to
// decode still yields an event (with empty params) so callers see the full
// batch; the failure is retrievable via Failures.
type Batch struct {
	norm     *Normalizer
	logs     []Log
	pos      int
	failures []DecodeFailure
}

// Next returns the next decoded event, or false when the batch is drained.
func (b *Batch) Next() (DecodedEvent, bool) {
	if b.pos >= len(b.logs) {
		return DecodedEvent{}, false
	}
	lg := b.logs[b.pos]
	b.pos++

	ev, err := b.norm.decodeLog(lg)
	if err != nil {
		b.failures = append(b.failures, DecodeFailure{
			LogIndex:    lg.Index,
			TxHash:      lg.TxHash,
			BlockNumber: lg.BlockNumber,
			Reason:      err.Error(),
		})
		return DecodedEvent{Name: ev.Name, Params: map[string]string{}, Log: lg}, true
	}
	return ev, true
}

// Reset rewinds the iterator to the start of the batch and clears recorded
// failures, so the same batch can be replayed.
func (b *Batch) Reset() {
	b.pos = 0
	b.failures = nil
}

// Failures returns the decode failures seen since the last Reset.
func (b *Batch) Failures() []DecodeFailure {
	return b.failures
}

func (n *Normalizer) decodeLog(lg Log) (DecodedEvent, error) {
	if len(lg.Topics) == 0 {
		return DecodedEvent{}, fmt.Errorf("log has no topics")
	}

	ev, err := n.abi.EventByID(common.HexToHash(lg.Topics[0]))
	if err != nil {
		return DecodedEvent{}, fmt.Errorf("no matching event fragment for topic %s", lg.Topics[0])
	}

	params := make(map[string]string, len(ev.Inputs))

	// Indexed parameters live in topics 1..n.
	var indexed ethabi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(lg.Topics)-1 != len(indexed) {
		return DecodedEvent{Name: ev.Name}, fmt.Errorf("event %s: expected %d indexed topics, got %d", ev.Name, len(indexed), len(lg.Topics)-1)
	}
	topicValues := make(map[string]interface{}, len(indexed))
	hashes := make([]common.Hash, 0, len(indexed))
	for _, t := range lg.Topics[1:] {
		hashes = append(hashes, common.HexToHash(t))
	}
	if err := ethabi.ParseTopicsIntoMap(topicValues, indexed, hashes); err != nil {
		return DecodedEvent{Name: ev.Name}, fmt.Errorf("event %s: decode indexed params: %w", ev.Name, err)
	}
	for name, v := range topicValues {
		params[name] = stringifyParam(v)
	}

	// Non-indexed parameters are ABI-encoded in the data section.
	nonIndexed := ev.Inputs.NonIndexed()
	values, err := nonIndexed.UnpackValues(lg.Data)
	if err != nil {
		return DecodedEvent{Name: ev.Name}, fmt.Errorf("event %s: decode data params: %w", ev.Name, err)
	}
	for i, arg := range nonIndexed {
		params[arg.Name] = stringifyParam(values[i])
	}

	return DecodedEvent{Name: ev.Name, Params: params, Log: lg}, nil
}

// stringifyParam renders a decoded ABI value as a string. Integers become
// arbitrary-precision decimal strings so large token amounts never pass
// through floating point.
func stringifyParam(v interface{}) string {
	switch t := v.(type) {
	case *big.Int:
		return t.String()
	case common.Address:
		return strings.ToLower(t.Hex())
	case common.Hash:
		return t.Hex()
	case [32]byte:
		return "0x" + common.Bytes2Hex(t[:])
	case []byte:
		return "0x" + common.Bytes2Hex(t)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

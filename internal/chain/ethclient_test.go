package chain

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type stubSubscription struct {
	errs chan error
}

func (s *stubSubscription) Unsubscribe()      {}
func (s *stubSubscription) Err() <-chan error { return s.errs }

func TestForwardLogsStopsOnCancelWithFullBuffer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &stubSubscription{errs: make(chan error, 1)}
	raw := make(chan types.Log, 2)
	out := make(chan Log, 1)
	errs := make(chan error, 1)

	// Two logs with nobody draining out: the first fills the buffer, the
	// second parks the forwarder on the send.
	raw <- types.Log{Address: common.HexToAddress("0x1"), TxHash: common.HexToHash("0xa")}
	raw <- types.Log{Address: common.HexToAddress("0x1"), TxHash: common.HexToHash("0xb")}

	done := make(chan struct{})
	go func() {
		forwardLogs(ctx, sub, raw, out, errs)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not exit after cancellation")
	}
	// out is closed on exit so a late consumer does not hang.
	if _, ok := <-out; !ok {
		t.Fatal("buffered log lost before close")
	}
	if _, ok := <-out; ok {
		t.Fatal("out not closed after forwarder exit")
	}
}

func TestForwardLogsReportsSubscriptionDrop(t *testing.T) {
	sub := &stubSubscription{errs: make(chan error, 1)}
	raw := make(chan types.Log)
	out := make(chan Log, 1)
	errs := make(chan error, 1)

	done := make(chan struct{})
	go func() {
		forwardLogs(context.Background(), sub, raw, out, errs)
		close(done)
	}()

	sub.errs <- context.DeadlineExceeded

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("nil error reported for dropped subscription")
		}
	case <-time.After(time.Second):
		t.Fatal("drop not reported")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not exit after drop")
	}
}

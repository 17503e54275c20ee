package usbring

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"
)

// scriptedSource returns chunks from a fixed list in order, then returns
// zero-byte reads with no error once exhausted.
func scriptedSource(chunks [][]byte) func([]byte) (int, error) {
	idx := 0
	return func(p []byte) (int, error) {
		if idx >= len(chunks) {
			return 0, nil
		}
		n := copy(p, chunks[idx])
		idx++
		return n, nil
	}
}

func TestEngineStartWritesConfigAndArmsTransfers(t *testing.T) {
	ring := NewSimRing(scriptedSource(nil))
	queue := NewByteQueue(1<<20, nil)
	eng := NewEngine(ring, queue, EngineConfig{TransferCount: 4, BufferSize: 16})

	cfg := bytes.Repeat([]byte{0xAB}, 64)
	if err := eng.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer eng.Stop()

	written := ring.WrittenConfigRecords()
	if len(written) != 1 || !bytes.Equal(written[0], cfg) {
		t.Fatalf("expected config record written once, got %v", written)
	}
	if eng.State() != StateRunning {
		t.Fatalf("expected StateRunning, got %v", eng.State())
	}
}

func TestEngineDeliversBytesAndResubmits(t *testing.T) {
	chunk := bytes.Repeat([]byte{0x11}, 16)
	ring := NewSimRing(scriptedSource([][]byte{chunk, chunk, chunk}))
	queue := NewByteQueue(1<<20, nil)
	eng := NewEngine(ring, queue, EngineConfig{TransferCount: 1, BufferSize: 16})

	if err := eng.Start(context.Background(), make([]byte, 64)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer eng.Stop()

	got := queue.Read(48)
	if !bytes.Equal(got, bytes.Repeat([]byte{0x11}, 48)) {
		t.Fatalf("unexpected bytes: % x", got)
	}
}

func TestEngineStopQuiescesEventPump(t *testing.T) {
	ring := NewSimRing(scriptedSource(nil))
	queue := NewByteQueue(1<<20, nil)
	eng := NewEngine(ring, queue, EngineConfig{TransferCount: 2, BufferSize: 16})

	if err := eng.Start(context.Background(), make([]byte, 64)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		eng.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return: event pump failed to quiesce")
	}

	if eng.State() != StateInactive {
		t.Fatalf("expected StateInactive after Stop, got %v", eng.State())
	}

	// Second Stop must be a no-op, not a panic or block.
	eng.Stop()
}

func TestEngineFailedTransferIsNotResubmittedOrEnqueued(t *testing.T) {
	var calls int32
	failOnce := func(p []byte) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, io.ErrUnexpectedEOF
	}
	ring := NewSimRing(failOnce)
	queue := NewByteQueue(1<<20, nil)
	eng := NewEngine(ring, queue, EngineConfig{TransferCount: 1, BufferSize: 16})

	if err := eng.Start(context.Background(), make([]byte, 64)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Give the event pump a moment to process the single failed
	// completion; since the slot is never resubmitted, WaitForCompletion
	// on the sim ring will keep returning no results afterward.
	time.Sleep(50 * time.Millisecond)
	eng.Stop()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one transfer attempt, got %d", got)
	}
}

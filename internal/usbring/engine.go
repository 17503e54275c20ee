// Package usbring implements the Byte Queue (C2) and Transfer Engine (C3):
// a bounded FIFO fed by a pool of concurrently in-flight USB bulk-IN
// transfers that resubmit themselves on completion, modeled on the
// submit/harvest/resubmit shape of an io_uring-style ring but built over
// raw USB bulk transfers instead of block I/O commands.
package usbring

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thermview/thermcore/internal/constants"
	"github.com/thermview/thermcore/internal/interfaces"
	"github.com/thermview/thermcore/internal/queue"
)

// pollIdleInterval bounds how often a non-blocking Ring implementation is
// re-polled when it has nothing ready.
const pollIdleInterval = 2 * time.Millisecond

// State is the Transfer Engine's lifecycle state (§3 Session State).
type State int32

const (
	StateInactive State = iota
	StateRunning
	StateCanceling
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCanceling:
		return "canceling"
	default:
		return "inactive"
	}
}

// EngineConfig configures the Transfer Engine.
type EngineConfig struct {
	// TransferCount is B, the number of concurrently in-flight incoming
	// bulk reads (default constants.IncomingTransferCount).
	TransferCount int
	// BufferSize is the byte size of each incoming transfer's buffer
	// (default constants.BulkBufferLength).
	BufferSize int

	Logger   interfaces.Logger
	Observer interfaces.Observer
}

// DefaultEngineConfig returns B=14 concurrent 16384-byte transfers, the
// sizing the sensor's USB stack expects (§4.3).
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TransferCount: constants.IncomingTransferCount,
		BufferSize:    constants.BulkBufferLength,
	}
}

// Engine is the Transfer Engine (C3): it owns the config-record write, the
// pool of incoming transfer buffers, and the event pump that harvests
// completions and resubmits.
type Engine struct {
	ring  Ring
	queue *ByteQueue
	cfg   EngineConfig

	buffers [][]byte

	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine builds a Transfer Engine over ring, feeding parsed byte chunks
// into queue.
func NewEngine(ring Ring, queue *ByteQueue, cfg EngineConfig) *Engine {
	if cfg.TransferCount <= 0 {
		cfg.TransferCount = constants.IncomingTransferCount
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = constants.BulkBufferLength
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	return &Engine{ring: ring, queue: queue, cfg: cfg}
}

// Start writes the configuration record once, arms all B incoming
// transfers, and launches the event pump. Returns once the pipeline is
// continuously armed (§4.3).
func (e *Engine) Start(ctx context.Context, configRecord []byte) error {
	if err := e.ring.SubmitConfig(configRecord); err != nil {
		return err
	}

	e.buffers = make([][]byte, e.cfg.TransferCount)
	for slot := 0; slot < e.cfg.TransferCount; slot++ {
		e.buffers[slot] = make([]byte, e.cfg.BufferSize)
		if err := e.ring.PrepareRead(e.buffers[slot], uint64(slot)); err != nil {
			return err
		}
	}
	if _, err := e.ring.FlushSubmissions(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.state.Store(int32(StateRunning))

	e.wg.Add(1)
	go e.eventPump(runCtx)

	return nil
}

// eventPump is the USB event pump worker (W1, §5): it calls the completion
// handler with a bounded timeout in a loop until the engine is stopped.
func (e *Engine) eventPump(ctx context.Context) {
	defer e.wg.Done()
	// Closing the queue on exit releases a consumer blocked in Read even
	// when the pump stopped because ctx was cancelled rather than via Stop.
	defer e.queue.Close()
	defer e.state.Store(int32(StateInactive))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results, err := e.ring.WaitForCompletion(1000)
		if err != nil {
			if e.cfg.Logger != nil {
				e.cfg.Logger.Errorf("usbring: wait for completion: %v", err)
			}
			continue
		}
		if len(results) == 0 {
			// Ring implementations that poll rather than block (the
			// REAPURB_NDELAY-based linuxRing, the sim ring) return
			// immediately with nothing; avoid busy-spinning the CPU.
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollIdleInterval):
			}
			continue
		}

		for _, r := range results {
			slot := int(r.UserData)
			if slot < 0 || slot >= len(e.buffers) {
				continue
			}

			if r.Err != nil {
				// Non-COMPLETED status: contribute nothing and do not
				// resubmit. This permanently retires the slot, matching
				// the callback contract exactly rather than papering
				// over a dropped transfer with a retry.
				if e.cfg.Logger != nil {
					e.cfg.Logger.Warnf("usbring: transfer slot %d failed, not resubmitting: %v", slot, r.Err)
				}
				continue
			}

			// Pulled from the pool instead of allocated fresh: every
			// transfer slot delivers at most BulkBufferLength bytes,
			// the pool's only bucket, so this is a pure hit. The
			// Byte Queue returns the chunk once Read has copied it
			// out (queue.go).
			chunk := queue.GetChunk(r.N)
			copy(chunk, e.buffers[slot][:r.N])
			e.queue.Enqueue(chunk)

			if err := e.ring.PrepareRead(e.buffers[slot], uint64(slot)); err != nil {
				if e.cfg.Logger != nil {
					e.cfg.Logger.Errorf("usbring: resubmit slot %d: %v", slot, err)
				}
			}
		}

		if len(results) > 0 {
			if _, err := e.ring.FlushSubmissions(); err != nil && e.cfg.Logger != nil {
				e.cfg.Logger.Errorf("usbring: flush submissions: %v", err)
			}
		}
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Stop cancels the event pump's context, waits for the pump to return
// (quiesce; its exit sets the state to Inactive), then closes the byte
// queue. Reads already submitted to the ring are not discarded. Only a
// call that finds the engine Running does anything, so Stop is idempotent.
func (e *Engine) Stop() {
	if !e.state.CompareAndSwap(int32(StateRunning), int32(StateCanceling)) {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.queue.Close()
}

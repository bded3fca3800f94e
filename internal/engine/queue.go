package engine

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/roach88/txledger/internal/ledger"
)

// ErrStreamAborted is returned by Queue.Next when the producer closed the
// queue with an error instead of a clean end-of-stream.
var ErrStreamAborted = errors.New("instruction stream aborted upstream")

// Queue is an unbounded FIFO of instructions between two stages.
//
// The queue is unbounded so a fast producer never blocks on a slow consumer.
// Exactly one goroutine should call Next; Push and Close may be called from
// any goroutine.
//
// Closing is the only way a stream ends:
//   - Close(nil): clean end-of-stream. Next drains the remaining items and then
//     returns io.EOF.
//   - Close(err): abort. Next returns ErrStreamAborted immediately, dropping
//     whatever is still buffered.
//
// After any Close, Push returns false. A consumer that dies closes its own
// input queue so its producer observes a gone consumer.
type Queue struct {
	mu     sync.Mutex
	items  []ledger.Instruction
	closed bool
	err    error
	signal chan struct{} // buffered, size 1; closed on Close
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		items:  make([]ledger.Instruction, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Push appends an instruction to the back of the queue.
// Returns false if the queue is closed.
func (q *Queue) Push(in ledger.Instruction) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, in)

	// Non-blocking: the size-1 buffer coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// Next removes and returns the front instruction, blocking until one is
// available, the queue is closed, or ctx is done.
//
// Returns io.EOF after a clean close once the queue is drained, and
// ErrStreamAborted after an aborting close.
func (q *Queue) Next(ctx context.Context) (ledger.Instruction, error) {
	for {
		in, ok, err := q.tryNext()
		if ok || err != nil {
			return in, err
		}

		select {
		case <-ctx.Done():
			return ledger.Instruction{}, ctx.Err()
		case <-q.signal:
			// Closed signal channels fire immediately; tryNext sorts out why.
		}
	}
}

// tryNext dequeues without blocking.
func (q *Queue) tryNext() (ledger.Instruction, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.err != nil {
		return ledger.Instruction{}, false, ErrStreamAborted
	}

	if len(q.items) == 0 {
		if q.closed {
			return ledger.Instruction{}, false, io.EOF
		}
		return ledger.Instruction{}, false, nil
	}

	in := q.items[0]
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return in, true, nil
}

// Close ends the stream: cleanly when err is nil, as an abort otherwise.
// Only the first call has an effect.
func (q *Queue) Close(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	q.err = err
	if err != nil {
		q.items = nil
	}
	close(q.signal)
}

// Len returns the number of buffered instructions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Package frame implements the hand-off between the synthesis producer and
// the audio consumers: per-step frame decoding and the FIFO block queue.
package frame

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Push after Close.
var ErrQueueClosed = errors.New("frame queue is closed")

// Queue is an unbounded FIFO of PCM blocks shared by one producer and one
// consumer. The producer exclusively appends; the consumer exclusively
// removes. Blocks are observed in exactly the order they were pushed.
type Queue struct {
	mu        sync.Mutex
	blocks    [][]float32
	closed    bool
	highWater int
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push appends one block. It never blocks; capacity is bounded by memory
// only.
func (q *Queue) Push(block []float32) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.blocks = append(q.blocks, block)
	if len(q.blocks) > q.highWater {
		q.highWater = len(q.blocks)
	}

	return nil
}

// TryPop removes and returns the oldest block. It never blocks: when the
// queue is empty it returns (nil, false) immediately.
func (q *Queue) TryPop() ([]float32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.blocks) == 0 {
		return nil, false
	}

	block := q.blocks[0]
	q.blocks[0] = nil
	q.blocks = q.blocks[1:]

	return block, true
}

// DrainAll removes every queued block in order. Used by the file sink after
// the producer completes.
func (q *Queue) DrainAll() [][]float32 {
	q.mu.Lock()
	defer q.mu.Unlock()

	blocks := q.blocks
	q.blocks = nil

	return blocks
}

// Close marks the producer side complete. Subsequent pushes fail; queued
// blocks remain poppable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
}

// Done reports whether the producer has finished and every block has been
// consumed.
func (q *Queue) Done() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.closed && len(q.blocks) == 0
}

// Len reports the number of queued blocks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.blocks)
}

// HighWater reports the maximum queue depth observed, as a producer-ahead
// diagnostic.
func (q *Queue) HighWater() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.highWater
}

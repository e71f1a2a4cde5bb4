package comm

import "sync/atomic"

// RxQueueSize is the default capacity of a ByteQueue.
const RxQueueSize = 256

// ByteQueue is a fixed-capacity single-producer/single-consumer ring
// buffer handing received bytes from the receiving context to the main
// loop without locks.
//
// Only the producer calls Enqueue and only the consumer calls Dequeue.
// The producer owns head, the consumer owns tail. A slot is written
// before head is published and read after head is observed, so the
// consumer never sees a cursor advance ahead of its data.
//
// A queue of capacity N holds at most N-1 bytes.
type ByteQueue struct {
	buf     []byte
	head    atomic.Uint32
	tail    atomic.Uint32
	dropped atomic.Uint64
}

// NewByteQueue allocates a queue with the given capacity (at least 2).
func NewByteQueue(capacity int) *ByteQueue {
	if capacity < 2 {
		capacity = 2
	}
	return &ByteQueue{buf: make([]byte, capacity)}
}

func (q *ByteQueue) next(pos uint32) uint32 {
	if pos++; pos == uint32(len(q.buf)) {
		return 0
	}
	return pos
}

// Enqueue appends a byte. It never blocks: when the queue is full the
// byte is dropped, counted, and false is returned.
func (q *ByteQueue) Enqueue(b byte) bool {
	head := q.head.Load()
	next := q.next(head)
	if next == q.tail.Load() {
		q.dropped.Add(1)
		return false
	}
	q.buf[head] = b
	q.head.Store(next)
	return true
}

// Dequeue removes the oldest byte. It never blocks and returns false
// when the queue is empty.
func (q *ByteQueue) Dequeue() (byte, bool) {
	tail := q.tail.Load()
	if tail == q.head.Load() {
		return 0, false
	}
	b := q.buf[tail]
	q.tail.Store(q.next(tail))
	return b, true
}

// Len returns the number of queued bytes.
func (q *ByteQueue) Len() int {
	head, tail := int(q.head.Load()), int(q.tail.Load())
	if head >= tail {
		return head - tail
	}
	return len(q.buf) - tail + head
}

// Cap returns the number of usable slots.
func (q *ByteQueue) Cap() int {
	return len(q.buf) - 1
}

// Dropped returns the number of bytes lost to overflow.
func (q *ByteQueue) Dropped() uint64 {
	return q.dropped.Load()
}

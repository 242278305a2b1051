package depthai

import (
	"context"
	"errors"
	"sync"
)

// Names of the device streams used by the face emotion pipeline
const (
	StreamPreview    = "preview"
	StreamDetections = "detections"
	StreamStage2In   = "landm_in"
	StreamStage2Out  = "landm_out"
	StreamDepth      = "depth"
	StreamSysInfo    = "sysinfo"
	StreamIMU        = "imu"
)

var (
	// ErrQueueClosed is returned when reading from or sending to a queue that
	// has been closed
	ErrQueueClosed = errors.New("queue closed")
	// ErrUnknownStream is returned when a device does not expose the
	// requested stream
	ErrUnknownStream = errors.New("unknown stream")
)

// OutputQueue is a device to host stream
type OutputQueue interface {
	// Name of the stream
	Name() string
	// TryGetAll returns all buffered messages oldest first without blocking
	TryGetAll() []Message
	// Get blocks until a message is available or the context is done
	Get(ctx context.Context) (Message, error)
}

// InputQueue is a host to device stream
type InputQueue interface {
	// Name of the stream
	Name() string
	// Send delivers a message to the device
	Send(ctx context.Context, msg Message) error
}

// Latest drains every buffered message on the queue and returns the newest
// one of type T, older messages are discarded.  It never blocks
func Latest[T Message](q OutputQueue) (T, bool) {

	var zero T

	if q == nil {
		return zero, false
	}

	msgs := q.TryGetAll()

	for i := len(msgs) - 1; i >= 0; i-- {
		if m, ok := msgs[i].(T); ok {
			return m, true
		}
	}

	return zero, false
}

// QueueStats are the operational counters of a Queue
type QueueStats struct {
	// Sent is the number of messages accepted by the queue
	Sent uint64
	// Dropped is the number of messages discarded because the queue was full
	// and non-blocking
	Dropped uint64
	// Buffered is the number of messages currently waiting to be read
	Buffered int
}

// Queue is an in-memory bounded queue implementing both OutputQueue and
// InputQueue.  When non-blocking a full queue overwrites its oldest message
// so readers always see the most recent data.
type Queue struct {
	name     string
	maxSize  int
	blocking bool

	// mu protects all fields below
	mu sync.Mutex
	// items buffered oldest first
	items []Message
	// wake is closed and replaced whenever the queue changes state to
	// release any goroutine waiting in Get or Send
	wake    chan struct{}
	closed  bool
	sent    uint64
	dropped uint64
}

// NewQueue returns a queue holding at most maxSize messages.  A maxSize
// below 1 is treated as 1
func NewQueue(name string, maxSize int, blocking bool) *Queue {

	if maxSize < 1 {
		maxSize = 1
	}

	return &Queue{
		name:     name,
		maxSize:  maxSize,
		blocking: blocking,
		items:    make([]Message, 0, maxSize),
		wake:     make(chan struct{}),
	}
}

// Name implements OutputQueue and InputQueue
func (q *Queue) Name() string {
	return q.name
}

// signal wakes all waiters, caller must hold mu
func (q *Queue) signal() {
	close(q.wake)
	q.wake = make(chan struct{})
}

// Send adds a message to the queue.  A non-blocking queue drops its oldest
// message when full, a blocking queue waits for space or context
// cancellation
func (q *Queue) Send(ctx context.Context, msg Message) error {

	for {
		q.mu.Lock()

		if q.closed {
			q.mu.Unlock()
			return ErrQueueClosed
		}

		if len(q.items) < q.maxSize || !q.blocking {

			if len(q.items) >= q.maxSize {
				// overwrite oldest
				q.items = append(q.items[:0], q.items[1:]...)
				q.dropped++
			}

			q.items = append(q.items, msg)
			q.sent++
			q.signal()
			q.mu.Unlock()
			return nil
		}

		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

// TryGetAll implements OutputQueue
func (q *Queue) TryGetAll() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}

	out := make([]Message, len(q.items))
	copy(out, q.items)
	q.items = q.items[:0]
	q.signal()

	return out
}

// Get implements OutputQueue, returning the oldest buffered message
func (q *Queue) Get(ctx context.Context) (Message, error) {

	for {
		q.mu.Lock()

		if len(q.items) > 0 {
			msg := q.items[0]
			q.items = append(q.items[:0], q.items[1:]...)
			q.signal()
			q.mu.Unlock()
			return msg, nil
		}

		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}

		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

// Close marks the queue closed and releases any waiting readers or senders.
// Buffered messages can still be read
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	q.signal()
}

// Stats returns the queue counters
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return QueueStats{
		Sent:     q.sent,
		Dropped:  q.dropped,
		Buffered: len(q.items),
	}
}

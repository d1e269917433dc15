// Package events implements the ingress queue between the transport and the
// render loop. Producers call Publish from any goroutine; a single consumer
// drains it with Poll.
package events

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/aeolun/loungechat/pkg/metrics"
	"github.com/aeolun/loungechat/pkg/protocol"
)

// ErrClosed is returned by Publish after Close
var ErrClosed = errors.New("event queue closed")

// Queue is an unbounded FIFO of server events.
// Publish never blocks and never drops while the queue is open.
type Queue struct {
	mu     sync.Mutex
	items  []protocol.Event
	head   int
	closed bool

	ready chan struct{}

	warnDepth int
	warned    bool

	logger  *log.Logger
	metrics *metrics.Metrics
}

// Option configures a Queue
type Option func(*Queue)

// WithLogger sets a logger for queue diagnostics
func WithLogger(logger *log.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithMetrics records depth and publish counts
func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) {
		q.metrics = m
	}
}

// WithWarnDepth logs once each time the backlog grows past depth (0 disables)
func WithWarnDepth(depth int) Option {
	return func(q *Queue) {
		q.warnDepth = depth
	}
}

// NewQueue creates an empty queue
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		ready: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// logf logs a message if a logger is set
func (q *Queue) logf(format string, args ...interface{}) {
	if q.logger != nil {
		q.logger.Printf(format, args...)
	}
}

// Publish appends ev to the tail of the queue
func (q *Queue) Publish(ev protocol.Event) error {
	if ev == nil {
		return fmt.Errorf("cannot publish nil event")
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, ev)
	depth := len(q.items) - q.head
	crossed := q.warnDepth > 0 && depth > q.warnDepth && !q.warned
	if crossed {
		q.warned = true
	}
	q.mu.Unlock()

	if crossed {
		q.logf("Event backlog is %d deep (warn depth %d); consumer is falling behind", depth, q.warnDepth)
	}
	q.metrics.RecordEventPublished(ev.EventName())
	q.metrics.RecordQueueDepth(depth)

	// Wake the consumer; a pending signal already covers this event
	select {
	case q.ready <- struct{}{}:
	default:
	}

	return nil
}

// Poll removes and returns the head of the queue without blocking
func (q *Queue) Poll() (protocol.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head > len(q.items) {
		// Corrupted FIFO bookkeeping means ordering can no longer be trusted
		panic(fmt.Sprintf("events: queue head %d beyond length %d", q.head, len(q.items)))
	}
	if q.head == len(q.items) {
		return nil, false
	}

	ev := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Compact once the consumed prefix dominates the backing array
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		for i := n; i < len(q.items); i++ {
			q.items[i] = nil
		}
		q.items = q.items[:n]
		q.head = 0
	}

	depth := len(q.items) - q.head
	if q.warned && depth <= q.warnDepth {
		q.warned = false
	}
	q.metrics.RecordQueueDepth(depth)

	return ev, true
}

// Len returns the number of queued events
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Ready returns a channel that receives after a Publish. The signal is a hint:
// the consumer must Poll until empty, and may wake to find nothing queued.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Close stops accepting events. Events already queued remain available to Poll.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Closed reports whether Close has been called
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

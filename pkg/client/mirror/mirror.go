// Package mirror keeps the client's local copy of the bouncer state.
//
// A Mirror is owned by a single consumer goroutine (the render loop). It pulls
// events from a Source one at a time, applies them to the network/channel
// tree, tracks which channel is active, and issues the lazy roster/history
// fetches the first time a channel is activated.
package mirror

import (
	"log"
	"time"

	"github.com/aeolun/loungechat/pkg/metrics"
	"github.com/aeolun/loungechat/pkg/protocol"
)

// Source is the consumer side of the ingress queue
type Source interface {
	Poll() (protocol.Event, bool)
}

// Outbound is the set of fire-and-forget requests the mirror sends to the server.
// Errors mean the request could not be queued; they are logged, never retried.
type Outbound interface {
	Open(channelID int64) error
	RequestNames(channelID int64) error
	RequestMore(channelID, beforeID int64) error
}

// HighlightFunc is called when a message in an inactive channel mentions the user
type HighlightFunc func(network *protocol.Network, channel *protocol.Channel, msg protocol.Message)

// Mirror is the local model of networks, channels, messages and users
type Mirror struct {
	source Source
	out    Outbound

	networks []*protocol.Network
	activeID int64
	pos      Position
	index    map[int64]Position

	initialized   bool
	snapshots     int
	lastMessageID int64
	moreInFlight  map[int64]bool

	dedupHistory bool
	onHighlight  HighlightFunc

	logger  *log.Logger
	metrics *metrics.Metrics
}

// Option configures a Mirror
type Option func(*Mirror)

// WithLogger sets a logger for reconciler diagnostics
func WithLogger(logger *log.Logger) Option {
	return func(m *Mirror) {
		m.logger = logger
	}
}

// WithDedupHistory drops backfilled messages whose ids are already present.
// Off by default: overlapping pages are kept as delivered.
func WithDedupHistory(enabled bool) Option {
	return func(m *Mirror) {
		m.dedupHistory = enabled
	}
}

// WithMetrics records applied events and lazy loads
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Mirror) {
		m.metrics = mt
	}
}

// WithHighlightFunc sets the callback for mentions in inactive channels
func WithHighlightFunc(fn HighlightFunc) Option {
	return func(m *Mirror) {
		m.onHighlight = fn
	}
}

// New creates an empty mirror reading from source and writing to out
func New(source Source, out Outbound, opts ...Option) *Mirror {
	m := &Mirror{
		source:       source,
		out:          out,
		index:        make(map[int64]Position),
		moreInFlight: make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetLogger sets the logger
func (m *Mirror) SetLogger(logger *log.Logger) {
	m.logger = logger
}

// logf logs a message if a logger is set
func (m *Mirror) logf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

// ApplyOne pops at most one event and applies it. It reports whether an
// event was processed, so a render tick never does more than one event of work.
func (m *Mirror) ApplyOne() bool {
	ev, ok := m.source.Poll()
	if !ok {
		return false
	}

	start := time.Now()
	if !m.apply(ev) {
		m.metrics.RecordEventIgnored(ev.EventName())
	}
	m.metrics.RecordEventApplied(ev.EventName(), time.Since(start).Seconds())
	return true
}

// Drain applies every queued event and returns how many were applied
func (m *Mirror) Drain() int {
	n := 0
	for m.ApplyOne() {
		n++
	}
	return n
}

// Networks returns the network list in traversal order.
// Callers must treat it as read-only.
func (m *Mirror) Networks() []*protocol.Network {
	return m.networks
}

// Initialized reports whether a full state snapshot has been applied
func (m *Mirror) Initialized() bool {
	return m.initialized
}

// Snapshots returns how many init snapshots have been applied. A change
// means the server (re)synchronized the whole model.
func (m *Mirror) Snapshots() int {
	return m.snapshots
}

// Empty reports whether the model holds no channels
func (m *Mirror) Empty() bool {
	return len(m.index) == 0
}

// ActiveID returns the id of the focused channel
func (m *Mirror) ActiveID() int64 {
	return m.activeID
}

// Position returns the cached indices of the active channel
func (m *Mirror) Position() Position {
	return m.pos
}

// Active returns the focused channel and its network, or nils when the model is empty
func (m *Mirror) Active() (*protocol.Network, *protocol.Channel) {
	return m.resolve(m.pos)
}

// Channel looks up a channel by id
func (m *Mirror) Channel(id int64) (*protocol.Network, *protocol.Channel, bool) {
	pos, ok := m.index[id]
	if !ok {
		return nil, nil, false
	}
	net, ch := m.resolve(pos)
	return net, ch, ch != nil
}

// LastMessageID returns the highest message id seen, used as the resume point
func (m *Mirror) LastMessageID() int64 {
	return m.lastMessageID
}

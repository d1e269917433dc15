package mirror

import (
	"fmt"
	"sync"
)

// RecordingOutbound is a test Outbound that records every request as a
// short string such as "open 2", "names 2" or "more 2 before 10".
type RecordingOutbound struct {
	mu       sync.Mutex
	requests []string

	// Error injection
	Err error
}

// NewRecordingOutbound creates an empty recorder
func NewRecordingOutbound() *RecordingOutbound {
	return &RecordingOutbound{}
}

func (r *RecordingOutbound) record(format string, args ...interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, fmt.Sprintf(format, args...))
	return r.Err
}

// Open records an open request
func (r *RecordingOutbound) Open(channelID int64) error {
	return r.record("open %d", channelID)
}

// RequestNames records a roster request
func (r *RecordingOutbound) RequestNames(channelID int64) error {
	return r.record("names %d", channelID)
}

// RequestMore records a history request
func (r *RecordingOutbound) RequestMore(channelID, beforeID int64) error {
	return r.record("more %d before %d", channelID, beforeID)
}

// SendInput records text sent to a channel
func (r *RecordingOutbound) SendInput(target int64, text string) error {
	return r.record("input %d %s", target, text)
}

// Requests returns a copy of everything recorded so far
func (r *RecordingOutbound) Requests() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.requests))
	copy(out, r.requests)
	return out
}

// Count returns how many recorded requests equal req
func (r *RecordingOutbound) Count(req string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.requests {
		if got == req {
			n++
		}
	}
	return n
}

// Reset forgets all recorded requests
func (r *RecordingOutbound) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = nil
}

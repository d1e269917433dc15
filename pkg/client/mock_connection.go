package client

import (
	"context"
	"fmt"
	"sync"
)

// MockConnection is an in-memory ConnectionInterface for UI tests.
// Requests are recorded as short strings ("open 3", "input 3 hello").
type MockConnection struct {
	mu sync.Mutex

	address   string
	connected bool
	closed    bool
	requests  []string
	passwords []string

	openChannel int64
	lastMessage int64

	sendErr error
	authErr error

	errors      chan error
	stateChange chan ConnectionStateUpdate
}

// NewMockConnection creates a connected mock
func NewMockConnection(address string) *MockConnection {
	return &MockConnection{
		address:     address,
		connected:   true,
		openChannel: -1,
		errors:      make(chan error, 10),
		stateChange: make(chan ConnectionStateUpdate, 10),
	}
}

func (c *MockConnection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *MockConnection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.connected = false
}

func (c *MockConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *MockConnection) GetAddress() string       { return c.address }
func (c *MockConnection) GetBytesSent() uint64     { return 0 }
func (c *MockConnection) GetBytesReceived() uint64 { return 0 }
func (c *MockConnection) DisableAutoReconnect()    {}

func (c *MockConnection) record(format string, args ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.requests = append(c.requests, fmt.Sprintf(format, args...))
	return nil
}

func (c *MockConnection) Open(channelID int64) error {
	return c.record("open %d", channelID)
}

func (c *MockConnection) RequestNames(channelID int64) error {
	return c.record("names %d", channelID)
}

func (c *MockConnection) RequestMore(channelID, beforeID int64) error {
	return c.record("more %d before %d", channelID, beforeID)
}

func (c *MockConnection) SendInput(target int64, text string) error {
	return c.record("input %d %s", target, text)
}

func (c *MockConnection) Authenticate(password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if password == "" {
		return ErrNoCredentials
	}
	c.passwords = append(c.passwords, password)
	return c.authErr
}

func (c *MockConnection) SetResumePoint(openChannel, lastMessage int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openChannel = openChannel
	c.lastMessage = lastMessage
}

func (c *MockConnection) Errors() <-chan error {
	return c.errors
}

func (c *MockConnection) StateChanges() <-chan ConnectionStateUpdate {
	return c.stateChange
}

// Test helpers

// Requests returns a copy of the recorded requests
func (c *MockConnection) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.requests))
	copy(out, c.requests)
	return out
}

// ResetRequests forgets recorded requests
func (c *MockConnection) ResetRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = nil
}

// Passwords returns every password passed to Authenticate
func (c *MockConnection) Passwords() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.passwords))
	copy(out, c.passwords)
	return out
}

// ResumePoint returns the last values passed to SetResumePoint
func (c *MockConnection) ResumePoint() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openChannel, c.lastMessage
}

// IsClosed reports whether Close was called
func (c *MockConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SetConnected flips the connected flag
func (c *MockConnection) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

// SetSendError makes every request fail with err
func (c *MockConnection) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// SetAuthError makes Authenticate fail with err
func (c *MockConnection) SetAuthError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authErr = err
}

// PushError delivers err on Errors()
func (c *MockConnection) PushError(err error) {
	c.errors <- err
}

// PushState delivers update on StateChanges()
func (c *MockConnection) PushState(update ConnectionStateUpdate) {
	c.stateChange <- update
}

var _ ConnectionInterface = (*MockConnection)(nil)

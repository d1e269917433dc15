package client

import (
	"sync"
)

// MockState is an in-memory test implementation of StateInterface
type MockState struct {
	mu sync.RWMutex

	// In-memory storage
	config    map[string]string
	sessions  map[string]Session
	readState map[int64]ReadStateData
	dir       string

	// Error injection
	sessionErr         error
	getReadStateErr    error
	updateReadStateErr error
}

// ReadStateData holds read state information
type ReadStateData struct {
	LastReadAt        int64
	LastReadMessageID *int64
}

// NewMockState creates a new mock state
func NewMockState() *MockState {
	return &MockState{
		config:    make(map[string]string),
		sessions:  make(map[string]Session),
		readState: make(map[int64]ReadStateData),
		dir:       "/tmp/mock-state",
	}
}

// GetConfig retrieves a configuration value
func (s *MockState) GetConfig(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.config[key], nil
}

// SetConfig stores a configuration value
func (s *MockState) SetConfig(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config[key] = value
	return nil
}

// GetSession returns the stored session for a server
func (s *MockState) GetSession(serverURL string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sessionErr != nil {
		return Session{LastActiveChannel: -1}, s.sessionErr
	}

	session, ok := s.sessions[serverURL]
	if !ok {
		return Session{LastActiveChannel: -1}, nil
	}
	return session, nil
}

// SetSessionToken stores a resume token
func (s *MockState) SetSessionToken(serverURL, user, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionErr != nil {
		return s.sessionErr
	}

	session, ok := s.sessions[serverURL]
	if !ok {
		session.LastActiveChannel = -1
	}
	session.User = user
	session.Token = token
	s.sessions[serverURL] = session
	return nil
}

// SetResumePoint stores the last active channel and message
func (s *MockState) SetResumePoint(serverURL string, channelID, lastMessageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionErr != nil {
		return s.sessionErr
	}

	session := s.sessions[serverURL]
	session.LastActiveChannel = channelID
	session.LastMessageID = lastMessageID
	s.sessions[serverURL] = session
	return nil
}

// GetReadState returns the read state for a channel
func (s *MockState) GetReadState(channelID int64) (lastReadAt int64, lastReadMessageID *int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.getReadStateErr != nil {
		return 0, nil, s.getReadStateErr
	}

	data, exists := s.readState[channelID]
	if !exists {
		return 0, nil, nil
	}

	return data.LastReadAt, data.LastReadMessageID, nil
}

// UpdateReadState updates the read state for a channel
func (s *MockState) UpdateReadState(channelID int64, timestamp int64, messageID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.updateReadStateErr != nil {
		return s.updateReadStateErr
	}

	s.readState[channelID] = ReadStateData{
		LastReadAt:        timestamp,
		LastReadMessageID: messageID,
	}
	return nil
}

// GetStateDir returns the directory where state is stored
func (s *MockState) GetStateDir() string {
	return s.dir
}

// Close closes the mock state (no-op for in-memory)
func (s *MockState) Close() error {
	return nil
}

// Test helpers

// SetSessionError sets an error to return from the session methods
func (s *MockState) SetSessionError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionErr = err
}

// SetGetReadStateError sets an error to return from GetReadState()
func (s *MockState) SetGetReadStateError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getReadStateErr = err
}

// SetUpdateReadStateError sets an error to return from UpdateReadState()
func (s *MockState) SetUpdateReadStateError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateReadStateErr = err
}

// GetAllReadState returns all read state (for testing)
func (s *MockState) GetAllReadState() map[int64]ReadStateData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]ReadStateData)
	for k, v := range s.readState {
		result[k] = v
	}
	return result
}

// Verify that MockState implements StateInterface
var _ StateInterface = (*MockState)(nil)

// Package client holds the bouncer transport, configuration and the local
// state database of the terminal client.
package client

import (
	"context"

	"github.com/aeolun/loungechat/pkg/protocol"
)

// Publisher receives decoded server events; the ingress queue implements it
type Publisher interface {
	Publish(ev protocol.Event) error
}

// ConnectionInterface defines the interface for client connections
// This allows for mocking in tests while the real Connection implements all these methods
type ConnectionInterface interface {
	// Connection management
	Connect(ctx context.Context) error
	Close()
	IsConnected() bool
	GetAddress() string
	GetBytesSent() uint64
	GetBytesReceived() uint64

	// Outbound requests, fire-and-forget
	Open(channelID int64) error
	RequestNames(channelID int64) error
	RequestMore(channelID, beforeID int64) error
	SendInput(target int64, text string) error

	// Login with a new password after a rejected or missing one
	Authenticate(password string) error

	// Resume point sent with token auth on reconnect
	SetResumePoint(openChannel, lastMessage int64)

	// Channels for receiving connection status
	Errors() <-chan error
	StateChanges() <-chan ConnectionStateUpdate

	// Configuration
	DisableAutoReconnect()
}

// StateInterface defines the interface for client state persistence
// This allows for mocking in tests while the real State implements all these methods
type StateInterface interface {
	// Configuration
	GetConfig(key string) (string, error)
	SetConfig(key, value string) error

	// Bouncer sessions
	GetSession(serverURL string) (Session, error)
	SetSessionToken(serverURL, user, token string) error
	SetResumePoint(serverURL string, channelID, lastMessageID int64) error

	// Read state tracking
	GetReadState(channelID int64) (lastReadAt int64, lastReadMessageID *int64, err error)
	UpdateReadState(channelID int64, timestamp int64, messageID *int64) error

	// State directory
	GetStateDir() string

	// Close the state
	Close() error
}

var (
	_ ConnectionInterface = (*Connection)(nil)
	_ StateInterface      = (*State)(nil)
)

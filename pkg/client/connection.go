package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aeolun/loungechat/pkg/metrics"
	"github.com/aeolun/loungechat/pkg/protocol"
)

// ConnectionStateType represents the connection status
type ConnectionStateType int

const (
	StateTypeConnected ConnectionStateType = iota
	StateTypeDisconnected
	StateTypeReconnecting
)

// ConnectionStateUpdate represents a connection state change
type ConnectionStateUpdate struct {
	State   ConnectionStateType
	Attempt int
	Err     error
}

var (
	ErrAuthFailed     = errors.New("authentication failed")
	ErrNoCredentials  = errors.New("server requires authentication but no password is configured")
	ErrConnClosed     = errors.New("connection closed")
	ErrQueueFull      = errors.New("outgoing queue full")
	ErrAlreadyRunning = errors.New("already connected")
)

const (
	handshakeTimeout    = 10 * time.Second
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
)

type outboundRequest struct {
	name string
	text string
}

// Connection is a Socket.IO client session with a The Lounge bouncer.
// Server state events are decoded and handed to the Publisher in arrival
// order; requests go out through a bounded queue drained by the writer.
type Connection struct {
	server    string // as configured, used as the session key
	socketURL string
	user      string

	publisher Publisher
	state     StateInterface

	mu           sync.RWMutex
	conn         *SocketConn
	connDone     chan struct{} // closed when the current socket goes away
	connected    bool
	reconnecting bool
	readTimeout  time.Duration
	password     string
	token        string
	authByToken  bool

	// Resume point for token auth
	openChannel atomic.Int64
	lastMessage atomic.Int64

	outgoing    chan outboundRequest
	errors      chan error
	stateChange chan ConnectionStateUpdate

	// Auto-reconnect settings
	autoReconnect     bool
	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration

	// Traffic counters (bytes of message text, summed over sockets)
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64

	logger  *log.Logger
	debug   bool
	metrics *metrics.Metrics

	// Shutdown
	ctx       context.Context
	cancel    context.CancelFunc
	shutdown  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewConnection creates a connection for the configured bouncer. Decoded
// state events are passed to publisher.
func NewConnection(cfg ConnectionSection, publisher Publisher) (*Connection, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	socketURL, err := SocketURL(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", cfg.ServerURL, err)
	}

	queueSize := cfg.OutgoingQueueSize
	if queueSize < 1 {
		queueSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		server:            cfg.ServerURL,
		socketURL:         socketURL,
		user:              cfg.User,
		password:          cfg.Password,
		publisher:         publisher,
		readTimeout:       defaultPingInterval + defaultPingTimeout,
		outgoing:          make(chan outboundRequest, queueSize),
		errors:            make(chan error, 10),
		stateChange:       make(chan ConnectionStateUpdate, 10),
		autoReconnect:     cfg.AutoReconnect,
		reconnectDelay:    1 * time.Second,
		maxReconnectDelay: cfg.ReconnectMaxDelay(),
		ctx:               ctx,
		cancel:            cancel,
		shutdown:          make(chan struct{}),
	}
	c.openChannel.Store(-1)
	return c, nil
}

// SetLogger sets a logger for debugging connection events
func (c *Connection) SetLogger(logger *log.Logger) {
	c.logger = logger
}

// SetDebug enables logging of every frame in both directions
func (c *Connection) SetDebug(debug bool) {
	c.debug = debug
}

// SetMetrics attaches transport metrics
func (c *Connection) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// SetState attaches session persistence. The stored token, if any, is used
// for the next authentication.
func (c *Connection) SetState(state StateInterface) {
	c.state = state
	if state == nil {
		return
	}
	session, err := state.GetSession(c.server)
	if err != nil {
		c.logf("Failed to load session for %s: %v", c.server, err)
		return
	}
	c.mu.Lock()
	if session.User == "" || session.User == c.user {
		c.token = session.Token
	}
	c.mu.Unlock()
	if session.LastActiveChannel >= 0 {
		c.SetResumePoint(session.LastActiveChannel, session.LastMessageID)
	}
}

// SetResumePoint records what to ask the server to resume from on token auth
func (c *Connection) SetResumePoint(openChannel, lastMessage int64) {
	c.openChannel.Store(openChannel)
	c.lastMessage.Store(lastMessage)
}

// DisableAutoReconnect disables automatic reconnection on connection loss
func (c *Connection) DisableAutoReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoReconnect = false
}

// logf logs a message if a logger is set
func (c *Connection) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// Connect dials the bouncer, completes the Engine.IO handshake and joins the
// default namespace. Authentication continues on the read loop.
func (c *Connection) Connect(ctx context.Context) error {
	select {
	case <-c.shutdown:
		return ErrConnClosed
	default:
	}

	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.mu.Unlock()

	c.logf("Connecting to %s...", c.socketURL)

	sock, err := DialSocket(ctx, c.socketURL, nil)
	if err != nil {
		c.logf("Connection failed: %v", err)
		return fmt.Errorf("failed to connect: %w", err)
	}
	sock.bytesSent = &c.bytesSent
	sock.bytesReceived = &c.bytesReceived

	info, err := c.handshake(sock)
	if err != nil {
		sock.Close()
		c.logf("Handshake failed: %v", err)
		return fmt.Errorf("handshake failed: %w", err)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = sock
	c.connDone = done
	c.connected = true
	c.authByToken = false
	if info.PingInterval > 0 && info.PingTimeout > 0 {
		c.readTimeout = time.Duration(info.PingInterval+info.PingTimeout) * time.Millisecond
	}
	c.mu.Unlock()

	c.logf("Connected successfully to %s (sid %s)", c.server, info.SID)
	c.metrics.RecordConnected(true)
	c.notifyState(ConnectionStateUpdate{State: StateTypeConnected})

	c.wg.Add(2)
	go c.readLoop(sock, done)
	go c.writeLoop(sock, done)

	return nil
}

// handshake reads the Engine.IO open packet and requests the default namespace
func (c *Connection) handshake(sock *SocketConn) (*protocol.OpenInfo, error) {
	if err := sock.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return nil, err
	}
	text, err := sock.ReadText()
	if err != nil {
		return nil, err
	}
	frame, err := protocol.DecodeFrame(text)
	if err != nil {
		return nil, err
	}
	info, err := protocol.DecodeOpen(frame)
	if err != nil {
		return nil, err
	}
	connect, err := protocol.EncodeFrame(&protocol.Frame{
		Engine: protocol.EngineMessage,
		Socket: protocol.SocketConnect,
		AckID:  -1,
	})
	if err != nil {
		return nil, err
	}
	if err := sock.WriteText(connect); err != nil {
		return nil, err
	}
	return info, nil
}

// Disconnect closes the current socket. Auto-reconnect applies as for any
// other connection loss.
func (c *Connection) Disconnect() {
	c.mu.RLock()
	sock := c.conn
	c.mu.RUnlock()
	if sock != nil {
		c.logf("Disconnecting from %s", c.server)
		c.handleDisconnect(sock, nil)
	}
}

// Close shuts down the connection permanently. Nothing is published after
// Close returns.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.shutdown)
		c.cancel()
		c.Disconnect()
		c.wg.Wait()
		close(c.errors)
		close(c.stateChange)
	})
}

// Open tells the server which channel is being viewed
func (c *Connection) Open(channelID int64) error {
	return c.send(protocol.RequestOpen, channelID)
}

// RequestNames asks for a channel's roster
func (c *Connection) RequestNames(channelID int64) error {
	return c.send(protocol.RequestNames, protocol.NamesRequest{Target: channelID})
}

// RequestMore asks for messages older than beforeID
func (c *Connection) RequestMore(channelID, beforeID int64) error {
	return c.send(protocol.RequestMore, protocol.MoreRequest{Target: channelID, LastID: beforeID})
}

// SendInput forwards a line of user input to the server
func (c *Connection) SendInput(target int64, text string) error {
	return c.send(protocol.RequestInput, protocol.InputRequest{Target: target, Text: text})
}

// send enqueues an event without blocking
func (c *Connection) send(name string, payload interface{}) error {
	text, err := protocol.EncodeEvent(name, payload)
	if err != nil {
		c.metrics.RecordRequestFailed(name)
		return fmt.Errorf("encode %s: %w", name, err)
	}

	select {
	case <-c.shutdown:
		c.metrics.RecordRequestFailed(name)
		return ErrConnClosed
	default:
	}

	select {
	case c.outgoing <- outboundRequest{name: name, text: text}:
		return nil
	default:
		c.metrics.RecordRequestFailed(name)
		return ErrQueueFull
	}
}

// Errors returns the channel for connection errors
func (c *Connection) Errors() <-chan error {
	return c.errors
}

// StateChanges returns the channel for connection state updates
func (c *Connection) StateChanges() <-chan ConnectionStateUpdate {
	return c.stateChange
}

// IsConnected returns whether the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// GetAddress returns the server address
func (c *Connection) GetAddress() string {
	return c.server
}

// GetBytesSent returns the total bytes sent
func (c *Connection) GetBytesSent() uint64 {
	return c.bytesSent.Load()
}

// GetBytesReceived returns the total bytes received
func (c *Connection) GetBytesReceived() uint64 {
	return c.bytesReceived.Load()
}

// readLoop reads frames from one socket until it fails or is replaced
func (c *Connection) readLoop(sock *SocketConn, done chan struct{}) {
	defer c.wg.Done()

	for {
		c.mu.RLock()
		timeout := c.readTimeout
		c.mu.RUnlock()

		if err := sock.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			c.handleDisconnect(sock, err)
			return
		}

		text, err := sock.ReadText()
		if errors.Is(err, protocol.ErrBinaryUnsupported) {
			c.logf("Dropping binary message")
			c.metrics.RecordFrameDropped("binary")
			continue
		}
		if err != nil {
			select {
			case <-done:
				// Closed locally
			default:
				c.logf("Read error: %v", err)
				c.handleDisconnect(sock, fmt.Errorf("read error: %w", err))
			}
			return
		}

		c.metrics.RecordFrameReceived()
		if c.debug {
			c.logf("← RECV: %s", truncateForLog(text))
		}

		frame, err := protocol.DecodeFrame(text)
		if err != nil {
			c.logf("Dropping undecodable frame: %v", err)
			c.metrics.RecordFrameDropped("decode")
			continue
		}

		if !c.handleFrame(sock, frame) {
			return
		}
	}
}

// handleFrame reacts to one decoded frame. It returns false once the socket
// has been torn down.
func (c *Connection) handleFrame(sock *SocketConn, frame *protocol.Frame) bool {
	switch frame.Engine {
	case protocol.EnginePing:
		pong, _ := protocol.EncodeFrame(&protocol.Frame{Engine: protocol.EnginePong, AckID: -1, Data: frame.Data})
		if err := sock.WriteText(pong); err != nil {
			c.handleDisconnect(sock, fmt.Errorf("write error: %w", err))
			return false
		}
		return true
	case protocol.EngineClose:
		c.logf("Server closed the session")
		c.handleDisconnect(sock, fmt.Errorf("server closed the session"))
		return false
	case protocol.EngineMessage:
	default:
		return true
	}

	switch frame.Socket {
	case protocol.SocketEvent:
		name, payload, err := protocol.SplitEvent(frame.Data)
		if err != nil {
			c.logf("Dropping malformed event: %v", err)
			c.metrics.RecordFrameDropped("malformed")
			return true
		}
		return c.handleEvent(sock, name, payload)
	case protocol.SocketConnectError:
		c.logf("Namespace connect refused: %s", string(frame.Data))
		c.handleDisconnect(sock, fmt.Errorf("server refused connection: %s", string(frame.Data)))
		return false
	case protocol.SocketDisconnect:
		c.handleDisconnect(sock, fmt.Errorf("server disconnected the namespace"))
		return false
	}
	return true
}

// handleEvent routes a Socket.IO event: auth is handled here, state events
// are decoded and published, anything else is ignored.
func (c *Connection) handleEvent(sock *SocketConn, name string, payload json.RawMessage) bool {
	switch name {
	case protocol.EventAuthStart:
		if err := c.performAuth(sock); err != nil {
			c.reportError(err)
		}
		return true
	case protocol.EventAuthSuccess:
		c.logf("Authenticated as %s", c.user)
		return true
	case protocol.EventAuthFailed:
		c.handleAuthFailed(sock, payload)
		return true
	}

	if !protocol.IsStateEvent(name) {
		if c.debug {
			c.logf("Ignoring event %q", name)
		}
		c.metrics.RecordFrameDropped("unhandled")
		return true
	}

	ev, err := protocol.DecodeEvent(name, payload)
	if err != nil {
		c.logf("Dropping %s event: %v", name, err)
		c.metrics.RecordFrameDropped("decode")
		return true
	}

	if initEv, ok := ev.(*protocol.InitEvent); ok && initEv.Token != "" {
		c.storeToken(initEv.Token)
	}

	if err := c.publisher.Publish(ev); err != nil {
		c.logf("Failed to publish %s event: %v", name, err)
	}
	return true
}

// performAuth answers auth:start with the stored token when there is one,
// otherwise with the configured password
func (c *Connection) performAuth(sock *SocketConn) error {
	c.mu.Lock()
	token := c.token
	password := c.password
	c.authByToken = token != ""
	c.mu.Unlock()

	req := protocol.AuthRequest{User: c.user}
	switch {
	case token != "":
		req.Token = token
		if open := c.openChannel.Load(); open >= 0 {
			req.OpenChannel = open
			req.LastMessage = c.lastMessage.Load()
		}
		c.logf("Authenticating %s with stored token", c.user)
	case password != "":
		req.Password = password
		c.logf("Authenticating %s with password", c.user)
	default:
		c.metrics.RecordRequestFailed(protocol.RequestAuthPerform)
		return ErrNoCredentials
	}

	text, err := protocol.EncodeEvent(protocol.RequestAuthPerform, req)
	if err != nil {
		c.metrics.RecordRequestFailed(protocol.RequestAuthPerform)
		return fmt.Errorf("encode auth: %w", err)
	}
	if err := sock.WriteText(text); err != nil {
		c.metrics.RecordRequestFailed(protocol.RequestAuthPerform)
		return fmt.Errorf("send auth: %w", err)
	}
	c.metrics.RecordRequestSent(protocol.RequestAuthPerform)
	return nil
}

// handleAuthFailed forgets a rejected token and falls back to the password
// once; a rejected password is reported to the caller.
func (c *Connection) handleAuthFailed(sock *SocketConn, payload json.RawMessage) {
	var failed protocol.AuthFailedPayload
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &failed)
	}

	c.mu.RLock()
	byToken := c.authByToken
	hasPassword := c.password != ""
	c.mu.RUnlock()

	if byToken {
		c.logf("Stored token rejected, falling back to password")
		c.storeToken("")
		if hasPassword {
			if err := c.performAuth(sock); err != nil {
				c.reportError(err)
			}
			return
		}
	}

	err := ErrAuthFailed
	if failed.Reason != "" {
		err = fmt.Errorf("%w: %s", ErrAuthFailed, failed.Reason)
	}
	c.logf("Authentication failed for %s", c.user)
	c.reportError(err)
}

// Authenticate replaces the password and, when a socket is up, logs in with
// it right away. A stored token is discarded.
func (c *Connection) Authenticate(password string) error {
	if password == "" {
		return ErrNoCredentials
	}
	c.mu.Lock()
	c.password = password
	sock := c.conn
	c.mu.Unlock()
	c.storeToken("")

	if sock == nil {
		return nil
	}
	return c.performAuth(sock)
}

// storeToken keeps the resume token in memory and in state
func (c *Connection) storeToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if c.state == nil {
		return
	}
	if err := c.state.SetSessionToken(c.server, c.user, token); err != nil {
		c.logf("Failed to persist session token: %v", err)
	}
}

// writeLoop drains the outgoing queue onto one socket
func (c *Connection) writeLoop(sock *SocketConn, done chan struct{}) {
	defer c.wg.Done()

	for {
		select {
		case req := <-c.outgoing:
			if err := sock.WriteText(req.text); err != nil {
				c.metrics.RecordRequestFailed(req.name)
				select {
				case <-done:
					c.logf("Dropped %s request: socket closed", req.name)
				default:
					c.logf("Write error: %v", err)
					c.handleDisconnect(sock, fmt.Errorf("write error: %w", err))
				}
				return
			}
			c.metrics.RecordRequestSent(req.name)
			if c.debug {
				c.logf("→ SEND: %s", truncateForLog(req.text))
			}

		case <-done:
			return
		case <-c.shutdown:
			return
		}
	}
}

// handleDisconnect tears down sock if it is still the current socket.
// A nil cause means the disconnect was requested locally.
func (c *Connection) handleDisconnect(sock *SocketConn, cause error) {
	c.mu.Lock()
	if c.conn != sock || !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.conn = nil
	close(c.connDone)
	sock.Close()
	autoReconnect := c.autoReconnect
	c.mu.Unlock()

	c.logf("Disconnected from server")
	c.metrics.RecordConnected(false)

	disconnectErr := cause
	if disconnectErr == nil {
		disconnectErr = fmt.Errorf("disconnected from server")
	}
	if cause != nil {
		c.reportError(disconnectErr)
	}
	c.notifyState(ConnectionStateUpdate{State: StateTypeDisconnected, Err: disconnectErr})

	select {
	case <-c.shutdown:
		return
	default:
	}

	if autoReconnect {
		c.logf("Auto-reconnect enabled, starting reconnect loop")
		c.wg.Add(1)
		go c.reconnectLoop()
	}
}

// reconnectLoop attempts to reconnect with exponential backoff
func (c *Connection) reconnectLoop() {
	defer c.wg.Done()

	c.mu.Lock()
	if c.reconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	delay := c.reconnectDelay
	attempt := 1

	for {
		timer := time.NewTimer(delay)
		select {
		case <-c.shutdown:
			timer.Stop()
			c.logf("Reconnect loop cancelled (shutdown)")
			return
		case <-timer.C:
		}

		c.logf("Reconnect attempt %d to %s", attempt, c.server)
		c.metrics.RecordReconnect()
		c.notifyState(ConnectionStateUpdate{State: StateTypeReconnecting, Attempt: attempt})

		err := c.Connect(c.ctx)
		if err == nil || errors.Is(err, ErrAlreadyRunning) {
			c.logf("Reconnected successfully after %d attempts", attempt)
			return
		}
		if errors.Is(err, ErrConnClosed) {
			return
		}

		c.logf("Reconnect attempt %d failed: %v", attempt, err)

		// Exponential backoff
		delay = delay * 2
		if delay > c.maxReconnectDelay {
			delay = c.maxReconnectDelay
		}
		c.logf("Next reconnect attempt in %v", delay)
		attempt++
	}
}

// reportError delivers err without blocking; it is logged when nobody listens
func (c *Connection) reportError(err error) {
	select {
	case <-c.shutdown:
		return
	default:
	}
	select {
	case c.errors <- err:
	default:
		c.logf("Error channel full, dropping: %v", err)
	}
}

func (c *Connection) notifyState(update ConnectionStateUpdate) {
	select {
	case <-c.shutdown:
		return
	default:
	}
	select {
	case c.stateChange <- update:
	default:
	}
}

func truncateForLog(text string) string {
	const max = 200
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

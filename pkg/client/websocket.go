package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aeolun/loungechat/pkg/protocol"
	"github.com/gorilla/websocket"
)

// SocketConn wraps a websocket carrying Engine.IO text messages.
// Reads happen on one goroutine; writes may come from several.
type SocketConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	closed  bool
	closeMu sync.Mutex
	addr    string

	// Traffic counters (bytes of message text)
	bytesSent     *atomic.Uint64
	bytesReceived *atomic.Uint64
}

// DialSocket connects to an Engine.IO websocket endpoint (ws:// or wss://)
func DialSocket(ctx context.Context, socketURL string, header http.Header) (*SocketConn, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   64 * 1024,
		WriteBufferSize:  64 * 1024,
	}

	ws, _, err := dialer.DialContext(ctx, socketURL, header)
	if err != nil {
		// Improve error message for common TLS/handshake issues
		errStr := err.Error()
		if strings.Contains(errStr, "bad handshake") {
			if strings.HasPrefix(socketURL, "wss://") {
				return nil, fmt.Errorf("TLS handshake failed - server may not support https (try http:// instead): %w", err)
			}
			return nil, fmt.Errorf("handshake failed - is this a websocket-enabled bouncer? %w", err)
		}
		return nil, err
	}

	// Leave room for the packet type prefix around a max-size payload
	ws.SetReadLimit(protocol.MaxFrameSize + 64)

	return &SocketConn{
		ws:            ws,
		addr:          socketURL,
		bytesSent:     &atomic.Uint64{},
		bytesReceived: &atomic.Uint64{},
	}, nil
}

// ReadText returns the next text message. Binary messages are consumed and
// reported as protocol.ErrBinaryUnsupported so the caller can skip them.
func (c *SocketConn) ReadText() (string, error) {
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		return "", err
	}
	c.bytesReceived.Add(uint64(len(data)))

	if messageType != websocket.TextMessage {
		return "", protocol.ErrBinaryUnsupported
	}
	return string(data), nil
}

// WriteText sends one text message
func (c *SocketConn) WriteText(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return net.ErrClosed
	}
	c.closeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return err
	}
	c.bytesSent.Add(uint64(len(text)))
	return nil
}

// Close closes the socket; repeated calls are no-ops
func (c *SocketConn) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	return c.ws.Close()
}

// RemoteAddr returns the server's network address
func (c *SocketConn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}

// SetReadDeadline bounds the next ReadText
func (c *SocketConn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

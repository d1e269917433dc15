package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxFrameSize matches the Engine.IO default maxPayload (1 MB)
	MaxFrameSize = 1000000

	// EngineVersion is the Engine.IO protocol revision spoken on the socket
	EngineVersion = 4
)

// Engine.IO packet types (first character of every websocket text message)
const (
	EngineOpen    byte = '0'
	EngineClose   byte = '1'
	EnginePing    byte = '2'
	EnginePong    byte = '3'
	EngineMessage byte = '4'
	EngineUpgrade byte = '5'
	EngineNoop    byte = '6'
)

// Socket.IO packet types (second character of an Engine.IO message)
const (
	SocketConnect      byte = '0'
	SocketDisconnect   byte = '1'
	SocketEvent        byte = '2'
	SocketAck          byte = '3'
	SocketConnectError byte = '4'
	SocketBinaryEvent  byte = '5'
	SocketBinaryAck    byte = '6'
)

var (
	ErrEmptyFrame         = errors.New("empty frame")
	ErrFrameTooLarge      = errors.New("frame exceeds maximum size (1 MB)")
	ErrUnknownFrameType   = errors.New("unknown frame type")
	ErrBinaryUnsupported  = errors.New("binary attachments are not supported")
	ErrMalformedEventData = errors.New("malformed event data")
)

// Frame is one decoded websocket text message.
// Format: <engine type>[<socket type>[<namespace>,][<ack id>]][<JSON data>]
type Frame struct {
	Engine    byte            // Engine.IO packet type
	Socket    byte            // Socket.IO packet type, only set when Engine == EngineMessage
	Namespace string          // Socket.IO namespace, "/" when omitted
	AckID     int64           // -1 when absent
	Data      json.RawMessage // Remaining payload (JSON for socket packets, raw text otherwise)
}

// IsEvent reports whether the frame carries a Socket.IO event
func (f *Frame) IsEvent() bool {
	return f.Engine == EngineMessage && f.Socket == SocketEvent
}

// DecodeFrame parses a websocket text message
func DecodeFrame(text string) (*Frame, error) {
	if len(text) == 0 {
		return nil, ErrEmptyFrame
	}
	if len(text) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	f := &Frame{Engine: text[0], Namespace: "/", AckID: -1}
	rest := text[1:]

	switch f.Engine {
	case EngineOpen, EngineClose, EnginePing, EnginePong, EngineUpgrade, EngineNoop:
		if rest != "" {
			f.Data = json.RawMessage(rest)
		}
		return f, nil
	case EngineMessage:
	default:
		return nil, fmt.Errorf("%w: engine type %q", ErrUnknownFrameType, f.Engine)
	}

	if rest == "" {
		return nil, fmt.Errorf("%w: missing socket packet type", ErrUnknownFrameType)
	}

	f.Socket = rest[0]
	rest = rest[1:]
	switch f.Socket {
	case SocketConnect, SocketDisconnect, SocketEvent, SocketAck, SocketConnectError:
	case SocketBinaryEvent, SocketBinaryAck:
		return nil, ErrBinaryUnsupported
	default:
		return nil, fmt.Errorf("%w: socket type %q", ErrUnknownFrameType, f.Socket)
	}

	if strings.HasPrefix(rest, "/") {
		comma := strings.IndexByte(rest, ',')
		if comma < 0 {
			f.Namespace = rest
			return f, nil
		}
		f.Namespace = rest[:comma]
		rest = rest[comma+1:]
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.ParseInt(rest[:digits], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ack id: %w", err)
		}
		f.AckID = id
		rest = rest[digits:]
	}

	if rest != "" {
		f.Data = json.RawMessage(rest)
	}
	return f, nil
}

// EncodeFrame renders a frame as a websocket text message
func EncodeFrame(f *Frame) (string, error) {
	var b strings.Builder
	b.WriteByte(f.Engine)

	if f.Engine == EngineMessage {
		b.WriteByte(f.Socket)
		if f.Namespace != "" && f.Namespace != "/" {
			b.WriteString(f.Namespace)
			b.WriteByte(',')
		}
		if f.AckID >= 0 {
			b.WriteString(strconv.FormatInt(f.AckID, 10))
		}
	}

	b.Write(f.Data)

	if b.Len() > MaxFrameSize {
		return "", ErrFrameTooLarge
	}
	return b.String(), nil
}

// EncodeEvent builds a "42[name,payload]" event message on the default namespace.
// A nil payload sends an event with no arguments.
func EncodeEvent(name string, payload interface{}) (string, error) {
	args := []interface{}{name}
	if payload != nil {
		args = append(args, payload)
	}

	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}

	return EncodeFrame(&Frame{
		Engine:    EngineMessage,
		Socket:    SocketEvent,
		Namespace: "/",
		AckID:     -1,
		Data:      data,
	})
}

// SplitEvent extracts the event name and its first argument from event data
func SplitEvent(data json.RawMessage) (string, json.RawMessage, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(data, &args); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedEventData, err)
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: missing event name", ErrMalformedEventData)
	}

	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, fmt.Errorf("%w: event name is not a string", ErrMalformedEventData)
	}

	if len(args) == 1 {
		return name, nil, nil
	}
	return name, args[1], nil
}

// OpenInfo is the handshake payload of the Engine.IO open packet
type OpenInfo struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"` // milliseconds
	PingTimeout  int      `json:"pingTimeout"`  // milliseconds
	MaxPayload   int      `json:"maxPayload"`
}

// DecodeOpen parses an Engine.IO open packet
func DecodeOpen(f *Frame) (*OpenInfo, error) {
	if f.Engine != EngineOpen {
		return nil, fmt.Errorf("expected open packet, got %q", f.Engine)
	}
	info := &OpenInfo{}
	if err := json.Unmarshal(f.Data, info); err != nil {
		return nil, fmt.Errorf("invalid open packet: %w", err)
	}
	return info, nil
}

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names
const (
	EventInit        = "init"
	EventMsg         = "msg"
	EventMore        = "more"
	EventNames       = "names"
	EventJoin        = "join"
	EventTopic       = "topic"
	EventNick        = "nick"
	EventAuthStart   = "auth:start"
	EventAuthSuccess = "auth:success"
	EventAuthFailed  = "auth:failed"
)

// Outbound request names
const (
	RequestOpen        = "open"
	RequestNames       = "names"
	RequestMore        = "more"
	RequestInput       = "input"
	RequestAuthPerform = "auth:perform"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrMalformedEvent = errors.New("malformed event payload")
)

// Event is a typed server-pushed state change
type Event interface {
	EventName() string
}

// InitEvent carries the full state snapshot sent after authentication
type InitEvent struct {
	Active   int64      `json:"active"`
	Networks []*Network `json:"networks"`
	Token    string     `json:"token"`
}

func (InitEvent) EventName() string { return EventInit }

// MessageEvent is a live message for one channel
type MessageEvent struct {
	Chan      int64   `json:"chan"`
	Msg       Message `json:"msg"`
	Unread    int     `json:"unread"`
	Highlight int     `json:"highlight"`
}

func (MessageEvent) EventName() string { return EventMsg }

// HistoryEvent is a backfill page, oldest first
type HistoryEvent struct {
	Chan          int64     `json:"chan"`
	Messages      []Message `json:"messages"`
	TotalMessages int       `json:"totalMessages"`
}

func (HistoryEvent) EventName() string { return EventMore }

// RosterEvent replaces a channel's user list
type RosterEvent struct {
	ID    int64         `json:"id"`
	Users []RosterEntry `json:"users"`
}

func (RosterEvent) EventName() string { return EventNames }

// JoinEvent announces a new channel inside a network
type JoinEvent struct {
	Network    string   `json:"network"`
	Chan       *Channel `json:"chan"`
	Index      int      `json:"index"`
	ShouldOpen bool     `json:"shouldOpen"`
}

func (JoinEvent) EventName() string { return EventJoin }

// TopicEvent updates a channel topic
type TopicEvent struct {
	Chan  int64  `json:"chan"`
	Topic string `json:"topic"`
}

func (TopicEvent) EventName() string { return EventTopic }

// NickEvent reports our own nick change on a network
type NickEvent struct {
	Network string `json:"network"`
	Nick    string `json:"nick"`
}

func (NickEvent) EventName() string { return EventNick }

// IsStateEvent reports whether name is an event the reconciler consumes
func IsStateEvent(name string) bool {
	switch name {
	case EventInit, EventMsg, EventMore, EventNames, EventJoin, EventTopic, EventNick:
		return true
	}
	return false
}

// DecodeEvent turns a named JSON payload into a typed event.
// It never panics; bad payloads come back as ErrMalformedEvent.
func DecodeEvent(name string, payload json.RawMessage) (Event, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: %s has no payload", ErrMalformedEvent, name)
	}

	switch name {
	case EventInit:
		ev := &InitEvent{}
		if err := decodeInto(name, payload, ev); err != nil {
			return nil, err
		}
		for _, n := range ev.Networks {
			if n == nil {
				return nil, fmt.Errorf("%w: init contains a null network", ErrMalformedEvent)
			}
			if err := checkChannels(name, n.Channels); err != nil {
				return nil, err
			}
		}
		return ev, nil

	case EventMsg:
		ev := &MessageEvent{}
		if err := decodeInto(name, payload, ev); err != nil {
			return nil, err
		}
		return ev, nil

	case EventMore:
		ev := &HistoryEvent{}
		if err := decodeInto(name, payload, ev); err != nil {
			return nil, err
		}
		return ev, nil

	case EventNames:
		ev := &RosterEvent{}
		if err := decodeInto(name, payload, ev); err != nil {
			return nil, err
		}
		return ev, nil

	case EventJoin:
		ev := &JoinEvent{}
		if err := decodeInto(name, payload, ev); err != nil {
			return nil, err
		}
		if ev.Chan == nil {
			return nil, fmt.Errorf("%w: join without channel", ErrMalformedEvent)
		}
		if ev.Network == "" {
			return nil, fmt.Errorf("%w: join without network", ErrMalformedEvent)
		}
		return ev, nil

	case EventTopic:
		ev := &TopicEvent{}
		if err := decodeInto(name, payload, ev); err != nil {
			return nil, err
		}
		return ev, nil

	case EventNick:
		ev := &NickEvent{}
		if err := decodeInto(name, payload, ev); err != nil {
			return nil, err
		}
		return ev, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
}

func decodeInto(name string, payload json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, name, err)
	}
	return nil
}

func checkChannels(name string, channels []*Channel) error {
	for _, c := range channels {
		if c == nil {
			return fmt.Errorf("%w: %s contains a null channel", ErrMalformedEvent, name)
		}
	}
	return nil
}

// NamesRequest asks for a channel roster
type NamesRequest struct {
	Target int64 `json:"target"`
}

// MoreRequest asks for history older than LastID
type MoreRequest struct {
	Target    int64 `json:"target"`
	LastID    int64 `json:"lastId"`
	Condensed bool  `json:"condensed"`
}

// InputRequest sends a line of user input to a channel
type InputRequest struct {
	Target int64  `json:"target"`
	Text   string `json:"text"`
}

// AuthRequest is the auth:perform payload. Token auth resumes a previous session.
type AuthRequest struct {
	User        string `json:"user"`
	Password    string `json:"password,omitempty"`
	Token       string `json:"token,omitempty"`
	LastMessage int64  `json:"lastMessage,omitempty"`
	OpenChannel int64  `json:"openChannel,omitempty"`
	HasConfig   bool   `json:"hasConfig"`
}

// AuthFailedPayload is sent with auth:failed by some servers
type AuthFailedPayload struct {
	Reason string `json:"reason"`
}

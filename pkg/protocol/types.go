package protocol

import (
	"strings"
	"time"
)

// ChannelKind is the closed set of channel types the bouncer reports
type ChannelKind string

const (
	KindLobby   ChannelKind = "lobby"   // Network status buffer
	KindChannel ChannelKind = "channel" // Multi-user channel
	KindQuery   ChannelKind = "query"   // Private conversation
	KindSpecial ChannelKind = "special" // Lists, ban lists and other server output
)

// IsMultiUser reports whether the channel has a roster worth fetching
func (k ChannelKind) IsMultiUser() bool {
	return k == KindChannel
}

// MessageKind distinguishes chat lines from status events
type MessageKind string

const (
	MessageKindMessage MessageKind = "message"
	MessageKindAction  MessageKind = "action"
	MessageKindNotice  MessageKind = "notice"
	MessageKindJoin    MessageKind = "join"
	MessageKindPart    MessageKind = "part"
	MessageKindQuit    MessageKind = "quit"
	MessageKindNick    MessageKind = "nick"
	MessageKindTopic   MessageKind = "topic"
	MessageKindError   MessageKind = "error"
)

// IsChat reports whether the message is something a user typed
func (k MessageKind) IsChat() bool {
	return k == MessageKindMessage || k == MessageKindAction || k == MessageKindNotice
}

// User is a nick with an optional rank marker (e.g. "@", "+").
// Both fields may be empty for system entries.
type User struct {
	Mode string `json:"mode,omitempty"`
	Nick string `json:"nick,omitempty"`
}

// HasNick reports whether the user carries a nick
func (u User) HasNick() bool {
	return u.Nick != ""
}

// Message is a single line in a channel
type Message struct {
	ID        int64       `json:"id"`
	From      User        `json:"from"`
	Text      string      `json:"text"`
	Type      MessageKind `json:"type"`
	Time      time.Time   `json:"time"`
	Self      bool        `json:"self"`
	Highlight bool        `json:"highlight"`
}

// Mentions reports whether the message text contains nick (case-insensitive)
func (m Message) Mentions(nick string) bool {
	if nick == "" {
		return false
	}
	return strings.Contains(strings.ToLower(m.Text), strings.ToLower(nick))
}

// Channel is a conversation context. IDs are unique across all networks.
type Channel struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Type          ChannelKind `json:"type"`
	Topic         string      `json:"topic"`
	Messages      []Message   `json:"messages"`
	TotalMessages int         `json:"totalMessages"`
	Unread        int         `json:"unread"`
	Highlight     int         `json:"highlight"`
	Muted         bool        `json:"muted"`

	// Client-side state, never sent by the server
	Users  []User `json:"-"`
	Loaded bool   `json:"-"`
}

// OldestMessageID returns the id of the first message, or false when empty
func (c *Channel) OldestMessageID() (int64, bool) {
	if len(c.Messages) == 0 {
		return 0, false
	}
	return c.Messages[0].ID, true
}

// Network is one connected IRC network; channel order is traversal order
type Network struct {
	UUID     string     `json:"uuid"`
	Name     string     `json:"name"`
	Nick     string     `json:"nick"`
	Channels []*Channel `json:"channels"`
}

// RosterEntry is a user as delivered by a names event
type RosterEntry struct {
	Nick        string   `json:"nick"`
	Modes       []string `json:"modes"`
	LastMessage int64    `json:"lastMessage"`
}

// ToUser converts a roster entry, keeping only the first rank marker
func (e RosterEntry) ToUser() User {
	u := User{Nick: e.Nick}
	if len(e.Modes) > 0 {
		u.Mode = e.Modes[0]
	}
	return u
}

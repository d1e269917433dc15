package mirror

import (
	"github.com/aeolun/loungechat/pkg/protocol"
)

// apply dispatches one event. It returns false when the event referenced a
// channel or network the model does not hold.
func (m *Mirror) apply(ev protocol.Event) bool {
	switch e := ev.(type) {
	case *protocol.InitEvent:
		m.applyInit(e)
		return true
	case *protocol.MessageEvent:
		return m.applyMessage(e)
	case *protocol.HistoryEvent:
		return m.applyHistory(e)
	case *protocol.RosterEvent:
		return m.applyRoster(e)
	case *protocol.JoinEvent:
		return m.applyJoin(e)
	case *protocol.TopicEvent:
		return m.applyTopic(e)
	case *protocol.NickEvent:
		return m.applyNick(e)
	default:
		m.logf("Ignoring unhandled event %T (%s)", ev, ev.EventName())
		return false
	}
}

// applyInit replaces the whole model with a snapshot
func (m *Mirror) applyInit(e *protocol.InitEvent) {
	m.networks = make([]*protocol.Network, 0, len(e.Networks))
	for _, net := range e.Networks {
		if net == nil {
			continue
		}
		channels := net.Channels[:0]
		for _, ch := range net.Channels {
			if ch != nil {
				channels = append(channels, ch)
			}
		}
		net.Channels = channels
		m.networks = append(m.networks, net)
	}
	m.initialized = true
	m.snapshots++
	m.lastMessageID = 0
	m.moreInFlight = make(map[int64]bool)
	for _, net := range m.networks {
		for _, ch := range net.Channels {
			if n := len(ch.Messages); n > 0 && ch.Messages[n-1].ID > m.lastMessageID {
				m.lastMessageID = ch.Messages[n-1].ID
			}
		}
	}

	m.rebuildIndex()
	m.activeID = e.Active
	if _, ok := m.index[m.activeID]; !ok {
		if first, ok := m.first(); ok {
			_, ch := m.resolve(first)
			m.logf("Init declared active channel %d which does not exist, using %d", e.Active, ch.ID)
			m.activeID = ch.ID
		}
	}
	m.RecomputeSelection()

	net, ch := m.Active()
	if ch == nil {
		m.logf("Init with no channels")
		return
	}
	m.logf("Init: %d networks, %d channels, active %s/%s (%d)", len(m.networks), len(m.index), net.Name, ch.Name, ch.ID)

	// The server primes the active channel, so it only needs an open and a roster
	ch.Loaded = true
	ch.Unread = 0
	ch.Highlight = 0
	m.sendOpen(ch.ID)
	if ch.Type.IsMultiUser() {
		m.sendNames(ch.ID)
	}
}

// applyMessage appends a live message to the tail of its channel
func (m *Mirror) applyMessage(e *protocol.MessageEvent) bool {
	net, ch, ok := m.Channel(e.Chan)
	if !ok {
		return false
	}

	ch.Messages = append(ch.Messages, e.Msg)
	if ch.TotalMessages > 0 {
		ch.TotalMessages++
	}
	if e.Msg.ID > m.lastMessageID {
		m.lastMessageID = e.Msg.ID
	}

	if ch.ID == m.activeID || e.Msg.Self {
		return true
	}

	ch.Unread++
	if e.Msg.Highlight || (e.Msg.Type.IsChat() && e.Msg.Mentions(net.Nick)) {
		ch.Highlight++
		if m.onHighlight != nil {
			m.onHighlight(net, ch, e.Msg)
		}
	}
	return true
}

// applyHistory prepends a backfill page in the order it was delivered
func (m *Mirror) applyHistory(e *protocol.HistoryEvent) bool {
	_, ch, ok := m.Channel(e.Chan)
	if !ok {
		return false
	}
	delete(m.moreInFlight, ch.ID)

	page := e.Messages
	if m.dedupHistory {
		page = withoutKnown(ch.Messages, page)
		if dropped := len(e.Messages) - len(page); dropped > 0 {
			m.logf("Dropped %d duplicate history messages for channel %d", dropped, ch.ID)
		}
	}

	merged := make([]protocol.Message, 0, len(page)+len(ch.Messages))
	merged = append(merged, page...)
	merged = append(merged, ch.Messages...)
	ch.Messages = merged

	if e.TotalMessages > 0 {
		ch.TotalMessages = e.TotalMessages
	}
	return true
}

// withoutKnown returns page minus messages whose ids already appear in existing
func withoutKnown(existing, page []protocol.Message) []protocol.Message {
	known := make(map[int64]struct{}, len(existing))
	for _, msg := range existing {
		known[msg.ID] = struct{}{}
	}
	out := make([]protocol.Message, 0, len(page))
	for _, msg := range page {
		if _, dup := known[msg.ID]; dup {
			continue
		}
		known[msg.ID] = struct{}{}
		out = append(out, msg)
	}
	return out
}

// applyRoster replaces a channel's user list
func (m *Mirror) applyRoster(e *protocol.RosterEvent) bool {
	_, ch, ok := m.Channel(e.ID)
	if !ok {
		return false
	}

	users := make([]protocol.User, 0, len(e.Users))
	for _, entry := range e.Users {
		users = append(users, entry.ToUser())
	}
	ch.Users = users
	return true
}

// applyJoin inserts a new channel into its network and focuses it. Open and
// the lazy loads only go out when the server marked the join shouldOpen
// (the user asked for it); otherwise they wait for the first activation.
func (m *Mirror) applyJoin(e *protocol.JoinEvent) bool {
	if e.Chan == nil {
		return false
	}
	ni := m.networkIndex(e.Network)
	if ni < 0 {
		return false
	}

	if pos, exists := m.index[e.Chan.ID]; exists {
		// Ids are unique; a repeated join only refocuses the channel we already hold
		m.logf("Join for channel %d which already exists, refocusing it", e.Chan.ID)
		m.focusJoined(pos, e.ShouldOpen)
		return true
	}

	net := m.networks[ni]
	if e.Index >= 0 && e.Index < len(net.Channels) {
		net.Channels = append(net.Channels, nil)
		copy(net.Channels[e.Index+1:], net.Channels[e.Index:])
		net.Channels[e.Index] = e.Chan
	} else {
		net.Channels = append(net.Channels, e.Chan)
	}

	m.rebuildIndex()
	m.activeID = e.Chan.ID
	m.RecomputeSelection()
	if e.ShouldOpen {
		m.activate(m.pos)
	}
	return true
}

func (m *Mirror) focusJoined(pos Position, open bool) {
	if open {
		m.activate(pos)
		return
	}
	if _, ch := m.resolve(pos); ch != nil {
		m.activeID = ch.ID
		m.pos = pos
	}
}

// applyTopic updates a channel topic
func (m *Mirror) applyTopic(e *protocol.TopicEvent) bool {
	_, ch, ok := m.Channel(e.Chan)
	if !ok {
		return false
	}
	ch.Topic = e.Topic
	return true
}

// applyNick updates the user's nick on one network
func (m *Mirror) applyNick(e *protocol.NickEvent) bool {
	ni := m.networkIndex(e.Network)
	if ni < 0 {
		return false
	}
	m.networks[ni].Nick = e.Nick
	return true
}

// networkIndex returns the position of the network with uuid, or -1
func (m *Mirror) networkIndex(uuid string) int {
	for i, net := range m.networks {
		if net.UUID == uuid {
			return i
		}
	}
	return -1
}

package mirror

import (
	"strings"

	"github.com/aeolun/loungechat/pkg/protocol"
)

// Position is a (network, channel) index pair into the model
type Position struct {
	Network int
	Channel int
}

// rebuildIndex recomputes the id to position map.
// Every structural mutation of the channel lists must call it.
func (m *Mirror) rebuildIndex() {
	index := make(map[int64]Position, len(m.index))
	for ni, net := range m.networks {
		for ci, ch := range net.Channels {
			if prev, dup := index[ch.ID]; dup {
				m.logf("Duplicate channel id %d at %v and %v, keeping the first", ch.ID, prev, Position{ni, ci})
				continue
			}
			index[ch.ID] = Position{Network: ni, Channel: ci}
		}
	}
	m.index = index
}

// resolve returns the network and channel at pos, or nils when out of range
func (m *Mirror) resolve(pos Position) (*protocol.Network, *protocol.Channel) {
	if pos.Network < 0 || pos.Network >= len(m.networks) {
		return nil, nil
	}
	net := m.networks[pos.Network]
	if pos.Channel < 0 || pos.Channel >= len(net.Channels) {
		return net, nil
	}
	return net, net.Channels[pos.Channel]
}

// first returns the position of the first channel in traversal order
func (m *Mirror) first() (Position, bool) {
	for ni, net := range m.networks {
		if len(net.Channels) > 0 {
			return Position{Network: ni}, true
		}
	}
	return Position{}, false
}

// RecomputeSelection points the cached position at the active channel.
// If the active id is unknown the position falls back to (0, 0); callers
// must check Empty before trusting it.
func (m *Mirror) RecomputeSelection() {
	if pos, ok := m.index[m.activeID]; ok {
		m.pos = pos
		return
	}
	m.pos = Position{}
}

// ensureSelection recomputes the cached position if it no longer resolves to the active id
func (m *Mirror) ensureSelection() {
	if _, ch := m.resolve(m.pos); ch == nil || ch.ID != m.activeID {
		m.RecomputeSelection()
	}
}

// NextChannel moves to the following channel, crossing into the next
// network at the end of a list. It is a no-op on the last channel of the
// last network and reports whether the selection moved.
func (m *Mirror) NextChannel() bool {
	if m.Empty() {
		return false
	}
	m.ensureSelection()

	net := m.networks[m.pos.Network]
	if m.pos.Channel+1 < len(net.Channels) {
		m.activate(Position{Network: m.pos.Network, Channel: m.pos.Channel + 1})
		return true
	}
	for ni := m.pos.Network + 1; ni < len(m.networks); ni++ {
		if len(m.networks[ni].Channels) > 0 {
			m.activate(Position{Network: ni, Channel: 0})
			return true
		}
	}
	return false
}

// PrevChannel moves to the preceding channel, crossing into the last
// channel of the previous network. It is a no-op on the very first channel.
func (m *Mirror) PrevChannel() bool {
	if m.Empty() {
		return false
	}
	m.ensureSelection()

	if m.pos.Channel > 0 {
		m.activate(Position{Network: m.pos.Network, Channel: m.pos.Channel - 1})
		return true
	}
	for ni := m.pos.Network - 1; ni >= 0; ni-- {
		if n := len(m.networks[ni].Channels); n > 0 {
			m.activate(Position{Network: ni, Channel: n - 1})
			return true
		}
	}
	return false
}

// ActivateID focuses the channel with id. It reports false if no such channel exists.
func (m *Mirror) ActivateID(id int64) bool {
	pos, ok := m.index[id]
	if !ok {
		return false
	}
	m.activate(pos)
	return true
}

// JumpByName focuses the channel named name (case-insensitive) in the active network
func (m *Mirror) JumpByName(name string) bool {
	net, _ := m.Active()
	if net == nil {
		return false
	}
	for _, ch := range net.Channels {
		if strings.EqualFold(ch.Name, name) {
			return m.ActivateID(ch.ID)
		}
	}
	return false
}

package mirror

// activate focuses the channel at pos, tells the server about it and, the
// first time only, fetches its roster and older history.
func (m *Mirror) activate(pos Position) {
	_, ch := m.resolve(pos)
	if ch == nil {
		return
	}

	m.activeID = ch.ID
	m.pos = pos
	ch.Unread = 0
	ch.Highlight = 0

	m.sendOpen(ch.ID)

	if ch.Loaded {
		return
	}
	if ch.Type.IsMultiUser() {
		m.sendNames(ch.ID)
	}
	if oldest, ok := ch.OldestMessageID(); ok {
		m.sendMore(ch.ID, oldest)
	}
	ch.Loaded = true
}

func (m *Mirror) sendOpen(id int64) {
	if m.out == nil {
		return
	}
	if err := m.out.Open(id); err != nil {
		m.logf("Failed to send open for channel %d: %v", id, err)
	}
}

func (m *Mirror) sendNames(id int64) {
	m.metrics.RecordLazyLoad("names")
	if m.out == nil {
		return
	}
	if err := m.out.RequestNames(id); err != nil {
		m.logf("Failed to request roster for channel %d: %v", id, err)
	}
}

// LoadOlder asks for the page before the active channel's oldest message.
// It does nothing while a page for that channel is outstanding or when the
// server said everything is already loaded, and reports whether it sent.
func (m *Mirror) LoadOlder() bool {
	_, ch := m.Active()
	if ch == nil || m.moreInFlight[ch.ID] {
		return false
	}
	if ch.TotalMessages > 0 && len(ch.Messages) >= ch.TotalMessages {
		return false
	}
	oldest, ok := ch.OldestMessageID()
	if !ok {
		return false
	}
	m.sendMore(ch.ID, oldest)
	return true
}

// HistoryPending reports whether a history page for id has been requested
// and not yet applied
func (m *Mirror) HistoryPending(id int64) bool {
	return m.moreInFlight[id]
}

func (m *Mirror) sendMore(id, before int64) {
	m.metrics.RecordLazyLoad("more")
	m.moreInFlight[id] = true
	if m.out == nil {
		return
	}
	if err := m.out.RequestMore(id, before); err != nil {
		m.logf("Failed to request history before %d for channel %d: %v", before, id, err)
	}
}

// ReadMarkFunc reports the newest message id the user has read in a channel
type ReadMarkFunc func(channelID int64) (lastRead int64, ok bool)

// SeedUnread raises the unread count of every inactive channel to the number
// of held messages newer than its read mark. Counts from the server are never
// lowered. Returns how many channels changed.
func (m *Mirror) SeedUnread(mark ReadMarkFunc) int {
	changed := 0
	for _, net := range m.networks {
		for _, ch := range net.Channels {
			if ch.ID == m.activeID {
				continue
			}
			lastRead, ok := mark(ch.ID)
			if !ok {
				continue
			}
			n := 0
			for i := len(ch.Messages) - 1; i >= 0 && ch.Messages[i].ID > lastRead; i-- {
				n++
			}
			if n > ch.Unread {
				ch.Unread = n
				changed++
			}
		}
	}
	return changed
}

package mirror

import (
	"testing"

	"github.com/aeolun/loungechat/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextChannelTraversal(t *testing.T) {
	m, q, out := newTestMirror(t)
	publishApply(t, m, q, snapshot(1))
	out.Reset()

	steps := []struct {
		active   int64
		pos      Position
		requests []string
	}{
		{2, Position{0, 1}, []string{"open 2", "names 2"}},
		{3, Position{0, 2}, []string{"open 3"}},
		{10, Position{1, 0}, []string{"open 10"}},
		{11, Position{1, 1}, []string{"open 11", "names 11", "more 11 before 100"}},
	}

	for _, step := range steps {
		out.Reset()
		require.True(t, m.NextChannel())
		assert.Equal(t, step.active, m.ActiveID())
		assert.Equal(t, step.pos, m.Position())
		assert.Equal(t, step.requests, out.Requests(), "activating %d", step.active)
	}

	// Clamped at the very end, repeatedly
	for i := 0; i < 3; i++ {
		out.Reset()
		assert.False(t, m.NextChannel())
		assert.Equal(t, int64(11), m.ActiveID())
		assert.Equal(t, Position{1, 1}, m.Position())
		assert.Empty(t, out.Requests())
	}
}

func TestPrevChannelTraversal(t *testing.T) {
	m, q, out := newTestMirror(t)
	publishApply(t, m, q, snapshot(10))

	require.True(t, m.PrevChannel())
	assert.Equal(t, int64(3), m.ActiveID(), "crosses to the last channel of the previous network")
	assert.Equal(t, Position{0, 2}, m.Position())

	require.True(t, m.PrevChannel())
	require.True(t, m.PrevChannel())
	assert.Equal(t, int64(1), m.ActiveID())

	out.Reset()
	assert.False(t, m.PrevChannel())
	assert.False(t, m.PrevChannel())
	assert.Equal(t, int64(1), m.ActiveID())
	assert.Empty(t, out.Requests())
}

func TestNavigationSkipsEmptyNetworks(t *testing.T) {
	m, q, _ := newTestMirror(t)
	publishApply(t, m, q, &protocol.InitEvent{
		Active: 1,
		Networks: []*protocol.Network{
			{UUID: "a", Channels: []*protocol.Channel{{ID: 1, Type: protocol.KindLobby}}},
			{UUID: "empty"},
			{UUID: "c", Channels: []*protocol.Channel{{ID: 3, Type: protocol.KindLobby}}},
		},
	})

	require.True(t, m.NextChannel())
	assert.Equal(t, int64(3), m.ActiveID())
	assert.Equal(t, Position{2, 0}, m.Position())

	require.True(t, m.PrevChannel())
	assert.Equal(t, int64(1), m.ActiveID())
}

// The concrete two-channel scenario: next loads channel 2 once, then clamps.
func TestNextChannelLazyLoadScenario(t *testing.T) {
	m, q, out := newTestMirror(t)
	publishApply(t, m, q, &protocol.InitEvent{
		Active: 1,
		Networks: []*protocol.Network{{
			UUID: "u1",
			Name: "N1",
			Channels: []*protocol.Channel{
				{ID: 1, Type: protocol.KindLobby},
				{ID: 2, Type: protocol.KindChannel},
			},
		}},
	})
	out.Reset()

	require.True(t, m.NextChannel())
	assert.Equal(t, int64(2), m.ActiveID())
	assert.Equal(t, []string{"open 2", "names 2"}, out.Requests())
	_, ch, _ := m.Channel(2)
	assert.True(t, ch.Loaded)

	out.Reset()
	assert.False(t, m.NextChannel())
	assert.Equal(t, int64(2), m.ActiveID())
	assert.Equal(t, Position{0, 1}, m.Position())
	assert.Empty(t, out.Requests())
}

func TestActivateTwiceLoadsOnce(t *testing.T) {
	m, q, out := newTestMirror(t)
	publishApply(t, m, q, snapshot(1))
	out.Reset()

	require.True(t, m.ActivateID(11))
	require.True(t, m.ActivateID(11))
	require.True(t, m.ActivateID(1))
	require.True(t, m.ActivateID(11))

	assert.Equal(t, 1, out.Count("names 11"))
	assert.Equal(t, 1, out.Count("more 11 before 100"))
	assert.Equal(t, 3, out.Count("open 11"), "open is sent on every activation")
}

func TestLazyLoadUsesOldestKnownMessage(t *testing.T) {
	m, q, out := newTestMirror(t)
	publishApply(t, m, q, snapshot(1))
	// A backfill page arrives before the first visit
	publishApply(t, m, q, &protocol.HistoryEvent{Chan: 11, Messages: msgs(80, 81)})
	out.Reset()

	require.True(t, m.ActivateID(11))
	assert.Contains(t, out.Requests(), "more 11 before 80")
}

func TestActivateUnknownID(t *testing.T) {
	m, q, out := newTestMirror(t)
	publishApply(t, m, q, snapshot(1))
	out.Reset()

	assert.False(t, m.ActivateID(404))
	assert.Equal(t, int64(1), m.ActiveID())
	assert.Empty(t, out.Requests())
}

func TestJumpByName(t *testing.T) {
	m, q, _ := newTestMirror(t)
	publishApply(t, m, q, snapshot(1))

	assert.True(t, m.JumpByName("#GO"))
	assert.Equal(t, int64(2), m.ActiveID())

	// Only the active network is searched
	assert.False(t, m.JumpByName("#rust"))
	assert.Equal(t, int64(2), m.ActiveID())

	require.True(t, m.ActivateID(10))
	assert.True(t, m.JumpByName("#rust"))
	assert.Equal(t, int64(11), m.ActiveID())
}

func TestJumpByNameEmptyModel(t *testing.T) {
	m, _, _ := newTestMirror(t)
	assert.False(t, m.JumpByName("#go"))
}

func TestSelectionFollowsInsertBeforeActive(t *testing.T) {
	m, q, _ := newTestMirror(t)
	publishApply(t, m, q, snapshot(3))
	assert.Equal(t, Position{0, 2}, m.Position())

	// Inserting ahead of the old active channel shifts its index
	publishApply(t, m, q, &protocol.JoinEvent{Network: "u1", Chan: &protocol.Channel{ID: 5, Type: protocol.KindQuery}, Index: 0})
	assert.Equal(t, Position{0, 0}, m.Position())

	require.True(t, m.ActivateID(3))
	assert.Equal(t, Position{0, 3}, m.Position())
	require.True(t, m.PrevChannel())
	assert.Equal(t, int64(2), m.ActiveID())
}

func TestRecomputeSelectionUnknownActive(t *testing.T) {
	m, q, _ := newTestMirror(t)
	publishApply(t, m, q, snapshot(11))

	m.activeID = 404
	m.RecomputeSelection()
	assert.Equal(t, Position{}, m.Position())
}

func TestLoadOlder(t *testing.T) {
	m, q, out := newTestMirror(t)
	publishApply(t, m, q, snapshot(1))

	// Nothing to page from in an empty lobby
	assert.False(t, m.LoadOlder())

	require.True(t, m.ActivateID(11))
	assert.True(t, m.HistoryPending(11), "the activation fetch is outstanding")

	out.Reset()
	assert.False(t, m.LoadOlder(), "one page at a time")
	assert.Empty(t, out.Requests())

	publishApply(t, m, q, &protocol.HistoryEvent{Chan: 11, Messages: msgs(98, 99), TotalMessages: 10})
	assert.False(t, m.HistoryPending(11))

	require.True(t, m.LoadOlder())
	assert.Equal(t, []string{"more 11 before 98"}, out.Requests())

	// Everything the server has is loaded
	publishApply(t, m, q, &protocol.HistoryEvent{Chan: 11, Messages: msgs(90, 91, 92, 93, 94, 95), TotalMessages: 10})
	out.Reset()
	assert.False(t, m.LoadOlder())
	assert.Empty(t, out.Requests())
}

package modal

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModalStack(t *testing.T) {
	var s ModalStack
	assert.True(t, s.IsEmpty())
	assert.Equal(t, ModalNone, s.TopType())
	assert.Nil(t, s.Pop())

	s.Push(nil)
	assert.True(t, s.IsEmpty())

	s.Push(NewConnectingModal("http://lounge"))
	s.Push(NewHelpModal(nil, nil))
	assert.Equal(t, 2, s.Size())
	assert.Equal(t, ModalHelp, s.TopType())
	assert.True(t, s.Contains(ModalConnecting))

	s.RemoveType(ModalConnecting)
	assert.Equal(t, 1, s.Size())
	assert.False(t, s.Contains(ModalConnecting))
	assert.Equal(t, ModalHelp, s.Pop().Type())
	assert.True(t, s.IsEmpty())
}

func TestModalStack_HandleKey(t *testing.T) {
	var s ModalStack

	handled, _ := s.HandleKey(runes("x"))
	assert.False(t, handled)

	// Help swallows keys and closes on esc
	s.Push(NewHelpModal([][]string{{"?", "help"}}, nil))
	handled, _ = s.HandleKey(runes("x"))
	assert.True(t, handled)
	assert.Equal(t, ModalHelp, s.TopType())

	handled, _ = s.HandleKey(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, handled)
	assert.True(t, s.IsEmpty())

	// Connecting lets keys fall through
	s.Push(NewConnectingModal("http://lounge"))
	handled, _ = s.HandleKey(runes("x"))
	assert.False(t, handled)
	assert.Equal(t, ModalConnecting, s.TopType())
}

func TestPasswordAuthModal(t *testing.T) {
	var submitted string
	cancelled := false
	m := NewPasswordAuthModal("alice", "",
		func(p string) tea.Cmd { submitted = p; return nil },
		func() tea.Cmd { cancelled = true; return nil },
	)

	// Empty submit is rejected locally
	handled, next, _ := m.HandleKey(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, handled)
	assert.Same(t, m, next)
	assert.Empty(t, submitted)
	assert.Contains(t, m.Render(80, 24), "Password cannot be empty")

	for _, r := range "hunter2" {
		m.HandleKey(runes(string(r)))
	}
	assert.NotContains(t, m.Render(80, 24), "hunter2")

	_, next, _ = m.HandleKey(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Same(t, m, next)
	assert.Equal(t, "hunter2", submitted)
	assert.True(t, m.IsAuthenticating())

	// Typing is ignored while pending
	m.HandleKey(runes("z"))
	m.SetError("Authentication failed")
	assert.False(t, m.IsAuthenticating())
	assert.Contains(t, m.Render(80, 24), "Authentication failed")

	handled, _, _ = m.HandleKey(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.False(t, handled)

	_, next, _ = m.HandleKey(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, next)
	assert.True(t, cancelled)
}

func TestConnectingModal_Render(t *testing.T) {
	m := NewConnectingModal("https://lounge.example.com")
	require.NotNil(t, m.Init())

	out := m.Render(80, 24)
	assert.Contains(t, out, "Connecting...")
	assert.Contains(t, out, "lounge.example.com")
	assert.NotContains(t, out, "Attempt")

	m.SetStatus("Reconnecting")
	m.SetAttempt(3)
	out = m.Render(80, 24)
	assert.Contains(t, out, "Reconnecting...")
	assert.Contains(t, out, "Attempt 3")
	assert.Equal(t, "Reconnecting", m.Status())
}

func TestHelpModal_Render(t *testing.T) {
	m := NewHelpModal(
		[][]string{{"alt+down", "next channel"}},
		[][]string{{"/jump <name>", "switch channel"}},
	)
	out := m.Render(100, 30)
	assert.Contains(t, out, "alt+down")
	assert.Contains(t, out, "/jump <name>")
	assert.Contains(t, out, "Commands")

	handled, next, _ := m.HandleKey(runes("?"))
	assert.True(t, handled)
	assert.Nil(t, next)
}

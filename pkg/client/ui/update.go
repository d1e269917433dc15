package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aeolun/loungechat/pkg/client"
	"github.com/aeolun/loungechat/pkg/client/ui/modal"
)

// authCancelledMsg is sent when the password prompt is dismissed
type authCancelledMsg struct{}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case EventsReadyMsg:
		return m.handleEventsReady()

	case ConnectResultMsg:
		if msg.Err == nil || errors.Is(msg.Err, client.ErrAlreadyRunning) {
			return m, nil
		}
		m.logf("Connect failed: %v", msg.Err)
		m.connectionState = StateDisconnected
		m.errorMessage = msg.Err.Error()
		if cm := m.connectingModal(); cm != nil {
			cm.SetStatus("Connection failed, retrying")
		}
		return m, retryConnect(m.conn)

	case ConnectedMsg:
		m.connectionState = StateConnected
		m.reconnectAttempt = 0
		m.errorMessage = ""
		if cm := m.connectingModal(); cm != nil {
			cm.SetStatus("Syncing")
			cm.SetAttempt(0)
		}
		return m, listenForConnection(m.conn)

	case DisconnectedMsg:
		m.connectionState = StateDisconnected
		if msg.Err != nil {
			m.errorMessage = msg.Err.Error()
		}
		return m, listenForConnection(m.conn)

	case ReconnectingMsg:
		m.connectionState = StateReconnecting
		m.reconnectAttempt = msg.Attempt
		if cm := m.connectingModal(); cm != nil {
			cm.SetStatus("Reconnecting")
			cm.SetAttempt(msg.Attempt)
		}
		return m, listenForConnection(m.conn)

	case ErrorMsg:
		if errors.Is(msg.Err, client.ErrAuthFailed) || errors.Is(msg.Err, client.ErrNoCredentials) {
			m.showPasswordModal(msg.Err)
		} else {
			m.errorMessage = msg.Err.Error()
		}
		return m, listenForConnection(m.conn)

	case AuthResultMsg:
		if msg.Err != nil {
			if pm := m.passwordModal(); pm != nil {
				pm.SetError(msg.Err.Error())
			} else {
				m.errorMessage = msg.Err.Error()
			}
		}
		return m, nil

	case authCancelledMsg:
		m.errorMessage = "Not signed in; reconnect or restart to try again"
		return m, nil

	case TickMsg:
		m.persistResumePoint()
		m.refreshMessages(false)
		return m, tickCmd()

	case VersionCheckMsg:
		m.latestVersion = msg.LatestVersion
		m.updateAvailable = msg.UpdateAvailable
		return m, nil

	case spinner.TickMsg:
		if cm := m.connectingModal(); cm != nil {
			return m, cm.Update(msg)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKeyPress routes keys: commands opted into the open modal first,
// then the modal, then main-view commands, then the input line
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if top := m.modalStack.TopType(); top != modal.ModalNone {
		if cmd := m.keys.GetCommand(key, top, &m); cmd != nil {
			return m, cmd.Execute(&m)
		}
		_, cmd := m.modalStack.HandleKey(msg)
		return m, cmd
	}

	if cmd := m.keys.GetCommand(key, modal.ModalNone, &m); cmd != nil {
		return m, cmd.Execute(&m)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleEventsReady applies exactly one queued event, then either waits for
// the next signal or, when more are queued, schedules itself again
func (m Model) handleEventsReady() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.mirror.ApplyOne() {
		cmd = m.afterApply()
	}

	next := waitForEvents(m.queue)
	if m.queue.Len() > 0 {
		next = applyNext
	}
	return m, tea.Batch(cmd, next)
}

// afterApply reacts to whatever the last event changed
func (m *Model) afterApply() tea.Cmd {
	if snapshots := m.mirror.Snapshots(); snapshots != m.snapshots {
		m.snapshots = snapshots
		m.modalStack.RemoveType(modal.ModalConnecting)
		m.modalStack.RemoveType(modal.ModalPasswordAuth)
		m.connectionState = StateConnected
		m.errorMessage = ""
		m.seedUnread()
	}

	if m.conn != nil {
		m.conn.SetResumePoint(m.mirror.ActiveID(), m.mirror.LastMessageID())
	}
	return m.syncActive()
}

// syncActive picks up a changed active channel and redraws the scrollback
func (m *Model) syncActive() tea.Cmd {
	id := m.mirror.ActiveID()
	changed := id != m.activeID
	if changed {
		m.markRead(m.activeID)
		m.activeID = id
		m.renderedFirst = 0
		m.renderedLines = 0
		m.updatePlaceholder()
		m.persistResumePoint()
	}
	m.refreshMessages(changed)
	return nil
}

// markRead records the newest message of a channel we are leaving
func (m *Model) markRead(channelID int64) {
	if m.state == nil || channelID < 0 {
		return
	}
	_, ch, ok := m.mirror.Channel(channelID)
	if !ok || len(ch.Messages) == 0 {
		return
	}
	last := ch.Messages[len(ch.Messages)-1].ID
	if err := m.state.UpdateReadState(channelID, time.Now().Unix(), &last); err != nil {
		m.logf("Failed to update read state for %d: %v", channelID, err)
	}
}

// seedUnread restores unread counts from the read marks stored on earlier runs
func (m *Model) seedUnread() {
	if m.state == nil {
		return
	}
	n := m.mirror.SeedUnread(func(channelID int64) (int64, bool) {
		_, last, err := m.state.GetReadState(channelID)
		if err != nil {
			m.logf("Failed to load read state for %d: %v", channelID, err)
			return 0, false
		}
		if last == nil {
			return 0, false
		}
		return *last, true
	})
	if n > 0 {
		m.logf("Restored unread counts for %d channels", n)
	}
}

// persistResumePoint saves the active channel and newest message id when they changed
func (m *Model) persistResumePoint() {
	if m.mirror == nil || m.mirror.Empty() {
		return
	}
	active, last := m.mirror.ActiveID(), m.mirror.LastMessageID()
	if active == m.savedActive && last == m.savedLastMsg {
		return
	}
	if m.conn != nil {
		m.conn.SetResumePoint(active, last)
	}
	if m.state == nil {
		return
	}
	if err := m.state.SetResumePoint(m.serverURL, active, last); err != nil {
		m.logf("Failed to persist resume point: %v", err)
		return
	}
	m.savedActive, m.savedLastMsg = active, last
}

// submitInput hands the input line to the interceptor
func (m *Model) submitInput() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	res := m.interceptor.HandleInput(text, m.mirror.ActiveID())
	if res.Err != nil {
		// Keep the line so it can be fixed
		m.errorMessage = res.Err.Error()
		return nil
	}

	m.input.Reset()
	m.errorMessage = ""
	m.statusMessage = res.Notice
	if !res.Forwarded {
		return m.syncActive()
	}
	return nil
}

// showPasswordModal asks for the password, or updates an open prompt
func (m *Model) showPasswordModal(err error) {
	message := ""
	if !errors.Is(err, client.ErrNoCredentials) {
		message = err.Error()
	}

	if pm := m.passwordModal(); pm != nil {
		pm.SetError(message)
		return
	}

	conn := m.conn
	m.modalStack.Push(modal.NewPasswordAuthModal(
		m.user,
		message,
		func(password string) tea.Cmd {
			return authenticateCmd(conn, password)
		},
		func() tea.Cmd {
			return func() tea.Msg { return authCancelledMsg{} }
		},
	))
}

func (m *Model) connectingModal() *modal.ConnectingModal {
	return findModal[*modal.ConnectingModal](&m.modalStack)
}

func (m *Model) passwordModal() *modal.PasswordAuthModal {
	return findModal[*modal.PasswordAuthModal](&m.modalStack)
}

// findModal returns the topmost open modal of type T
func findModal[T modal.Modal](s *modal.ModalStack) T {
	var zero T
	for i := s.Size() - 1; i >= 0; i-- {
		if found, ok := s.At(i).(T); ok {
			return found
		}
	}
	return zero
}

// updatePlaceholder names the active channel in the empty input line
func (m *Model) updatePlaceholder() {
	_, ch := m.mirror.Active()
	if ch == nil {
		m.input.Placeholder = "Type a message, /help for commands"
		return
	}
	m.input.Placeholder = fmt.Sprintf("Message %s", ch.Name)
}

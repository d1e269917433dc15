package ui

import (
	"io"
	"log"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeolun/loungechat/pkg/client"
	slash "github.com/aeolun/loungechat/pkg/client/commands"
	"github.com/aeolun/loungechat/pkg/client/events"
	"github.com/aeolun/loungechat/pkg/client/mirror"
	"github.com/aeolun/loungechat/pkg/client/ui/modal"
	"github.com/aeolun/loungechat/pkg/protocol"
)

const testServer = "wss://lounge.example.org"

type testEnv struct {
	conn  *client.MockConnection
	state *client.MockState
	queue *events.Queue
	mir   *mirror.Mirror
}

func newTestModel(t *testing.T) (Model, *testEnv) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	env := &testEnv{
		conn:  client.NewMockConnection(testServer),
		state: client.NewMockState(),
		queue: events.NewQueue(),
	}
	env.mir = mirror.New(env.queue, env.conn, mirror.WithLogger(logger))

	m := NewModel(Options{
		Conn:        env.conn,
		State:       env.state,
		Queue:       env.queue,
		Mirror:      env.mir,
		Interceptor: slash.NewInterceptor(env.mir, env.conn),
		UI:          client.UISection{ShowChannels: true, ShowUsers: true},
		ServerURL:   testServer,
		User:        "me",
		Version:     "1.2.3",
		Logger:      logger,
	})
	return m, env
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	case "alt+down":
		return tea.KeyMsg{Type: tea.KeyDown, Alt: true}
	case "alt+up":
		return tea.KeyMsg{Type: tea.KeyUp, Alt: true}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// snapshot: network "Libera" with 1 lobby, 2 #go, 3 alice; network "OFTC"
// with 10 lobby and 11 #rust holding messages 100 and 101
func snapshot(active int64) *protocol.InitEvent {
	return &protocol.InitEvent{
		Active: active,
		Networks: []*protocol.Network{
			{
				UUID: "u1",
				Name: "Libera",
				Nick: "me",
				Channels: []*protocol.Channel{
					{ID: 1, Name: "Libera", Type: protocol.KindLobby},
					{ID: 2, Name: "#go", Type: protocol.KindChannel, Topic: "gophers"},
					{ID: 3, Name: "alice", Type: protocol.KindQuery},
				},
			},
			{
				UUID: "u2",
				Name: "OFTC",
				Nick: "me2",
				Channels: []*protocol.Channel{
					{ID: 10, Name: "OFTC", Type: protocol.KindLobby},
					{ID: 11, Name: "#rust", Type: protocol.KindChannel, Messages: []protocol.Message{
						{ID: 100, From: protocol.User{Nick: "bob"}, Text: "hi", Type: protocol.MessageKindMessage, Time: time.Unix(1700000000, 0)},
						{ID: 101, From: protocol.User{Nick: "carol"}, Text: "hey", Type: protocol.MessageKindMessage, Time: time.Unix(1700000060, 0)},
					}},
				},
			},
		},
	}
}

// synced returns a model that has applied a snapshot with active channel
func synced(t *testing.T, active int64) (Model, *testEnv) {
	t.Helper()
	m, env := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	require.NoError(t, env.queue.Publish(snapshot(active)))
	m, _ = update(t, m, EventsReadyMsg{})
	require.Equal(t, active, env.mir.ActiveID())
	env.conn.ResetRequests()
	return m, env
}

func TestNewModelStartsConnecting(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Equal(t, StateConnecting, m.connectionState)
	assert.Equal(t, modal.ModalConnecting, m.modalStack.TopType())
	assert.Equal(t, int64(-1), m.activeID)
	assert.Equal(t, "Loading...", m.View())
}

func TestEventsAppliedOnePerUpdate(t *testing.T) {
	m, env := newTestModel(t)

	require.NoError(t, env.queue.Publish(snapshot(2)))
	require.NoError(t, env.queue.Publish(&protocol.MessageEvent{
		Chan: 2,
		Msg:  protocol.Message{ID: 500, From: protocol.User{Nick: "bob"}, Text: "first", Type: protocol.MessageKindMessage},
	}))

	m, cmd := update(t, m, EventsReadyMsg{})
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, env.queue.Len(), "only one event per update")
	_, ch := env.mir.Active()
	require.NotNil(t, ch)
	assert.Empty(t, ch.Messages)

	_, _ = update(t, m, EventsReadyMsg{})
	assert.Equal(t, 0, env.queue.Len())
	_, ch = env.mir.Active()
	require.Len(t, ch.Messages, 1)
	assert.Equal(t, int64(500), ch.Messages[0].ID)
}

func TestEventsReadyWithEmptyQueue(t *testing.T) {
	m, env := newTestModel(t)

	m, cmd := update(t, m, EventsReadyMsg{})
	assert.NotNil(t, cmd, "keeps waiting for the next signal")
	assert.False(t, env.mir.Initialized())
	assert.Equal(t, modal.ModalConnecting, m.modalStack.TopType())
}

func TestSnapshotClosesConnectingModal(t *testing.T) {
	m, env := synced(t, 2)

	assert.Equal(t, modal.ModalNone, m.modalStack.TopType())
	assert.Equal(t, StateConnected, m.connectionState)
	assert.Equal(t, int64(2), m.activeID)
	assert.Equal(t, "Message #go", m.input.Placeholder)

	open, last := env.conn.ResumePoint()
	assert.Equal(t, int64(2), open)
	assert.Equal(t, int64(101), last)

	session, err := env.state.GetSession(testServer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), session.LastActiveChannel)
}

func TestKeyNavigationOpensChannel(t *testing.T) {
	m, env := synced(t, 2)

	m, _ = update(t, m, key("alt+down"))
	assert.Equal(t, int64(3), env.mir.ActiveID())
	assert.Equal(t, int64(3), m.activeID)
	assert.Contains(t, env.conn.Requests(), "open 3")

	m, _ = update(t, m, key("alt+up"))
	m, _ = update(t, m, key("alt+up"))
	assert.Equal(t, int64(1), m.activeID)

	session, err := env.state.GetSession(testServer)
	require.NoError(t, err)
	assert.Equal(t, int64(1), session.LastActiveChannel)
}

func TestLeavingChannelMarksRead(t *testing.T) {
	m, env := synced(t, 11)

	_, _ = update(t, m, key("alt+up"))
	assert.Equal(t, int64(10), env.mir.ActiveID())

	rs := env.state.GetAllReadState()
	require.Contains(t, rs, int64(11))
	require.NotNil(t, rs[11].LastReadMessageID)
	assert.Equal(t, int64(101), *rs[11].LastReadMessageID)
}

func TestEnterForwardsInput(t *testing.T) {
	m, env := synced(t, 2)

	m.input.SetValue("hello there")
	m, _ = update(t, m, key("enter"))

	assert.Equal(t, []string{"input 2 hello there"}, env.conn.Requests())
	assert.Empty(t, m.input.Value())
	assert.Empty(t, m.errorMessage)
}

func TestEnterRunsLocalJump(t *testing.T) {
	m, env := synced(t, 2)

	m.input.SetValue("/jump alice")
	m, _ = update(t, m, key("enter"))

	assert.Equal(t, int64(3), env.mir.ActiveID())
	assert.Equal(t, int64(3), m.activeID)
	assert.NotContains(t, strings.Join(env.conn.Requests(), "\n"), "input")
	assert.Empty(t, m.input.Value())
}

func TestUnresolvedJumpGoesToServer(t *testing.T) {
	m, env := synced(t, 2)

	m.input.SetValue("/jump zzz")
	m, _ = update(t, m, key("enter"))

	assert.Equal(t, []string{"input 2 /jump zzz"}, env.conn.Requests())
	assert.Equal(t, int64(2), env.mir.ActiveID())
	assert.Empty(t, m.input.Value())
	assert.Empty(t, m.errorMessage)
}

func TestSendErrorKeepsInput(t *testing.T) {
	m, env := synced(t, 2)
	env.conn.SetSendError(client.ErrQueueFull)

	m.input.SetValue("hello")
	m, _ = update(t, m, key("enter"))

	assert.Equal(t, "hello", m.input.Value())
	assert.Contains(t, m.errorMessage, client.ErrQueueFull.Error())

	// esc clears the error
	m, _ = update(t, m, key("esc"))
	assert.Empty(t, m.errorMessage)
}

func TestSlashHelpShowsNotice(t *testing.T) {
	m, env := synced(t, 2)

	m.input.SetValue("/help")
	m, _ = update(t, m, key("enter"))

	assert.Contains(t, m.statusMessage, "/jump")
	assert.Empty(t, env.conn.Requests())
}

func TestHelpKeyOnlyWithEmptyInput(t *testing.T) {
	m, _ := synced(t, 2)

	m.input.SetValue("why")
	m, _ = update(t, m, key("?"))
	assert.Equal(t, modal.ModalNone, m.modalStack.TopType())
	assert.Equal(t, "why?", m.input.Value())

	m.input.SetValue("")
	m, _ = update(t, m, key("?"))
	assert.Equal(t, modal.ModalHelp, m.modalStack.TopType())

	m, _ = update(t, m, key("esc"))
	assert.Equal(t, modal.ModalNone, m.modalStack.TopType())
}

func TestPageUpWhileHistoryInFlight(t *testing.T) {
	m, env := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	require.NoError(t, env.queue.Publish(snapshot(11)))
	m, _ = update(t, m, EventsReadyMsg{})

	assert.Contains(t, env.conn.Requests(), "more 11 before 100")
	assert.True(t, env.mir.HistoryPending(11))

	env.conn.ResetRequests()
	_, _ = update(t, m, key("pgup"))
	assert.Empty(t, env.conn.Requests())
}

func TestPageUpAtTopLoadsOlder(t *testing.T) {
	m, env := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	require.NoError(t, env.queue.Publish(snapshot(11)))
	require.NoError(t, env.queue.Publish(&protocol.HistoryEvent{
		Chan: 11,
		Messages: []protocol.Message{
			{ID: 90, From: protocol.User{Nick: "dave"}, Text: "old", Type: protocol.MessageKindMessage},
		},
		TotalMessages: 10,
	}))
	m, _ = update(t, m, EventsReadyMsg{})
	m, _ = update(t, m, EventsReadyMsg{})
	require.False(t, env.mir.HistoryPending(11))
	require.True(t, m.messages.AtTop(), "three lines fit the viewport")

	env.conn.ResetRequests()
	m, _ = update(t, m, key("pgup"))
	assert.Equal(t, []string{"more 11 before 90"}, env.conn.Requests())
	assert.Equal(t, "Loading older messages...", m.statusMessage)
}

func TestAuthErrorOpensPasswordModal(t *testing.T) {
	m, env := newTestModel(t)

	m, _ = update(t, m, ErrorMsg{Err: client.ErrAuthFailed})
	require.Equal(t, modal.ModalPasswordAuth, m.modalStack.TopType())

	m, _ = update(t, m, key("secret"))
	m, cmd := update(t, m, key("enter"))
	require.NotNil(t, cmd)

	msg := cmd()
	result, ok := msg.(AuthResultMsg)
	require.True(t, ok)
	assert.NoError(t, result.Err)
	assert.Equal(t, []string{"secret"}, env.conn.Passwords())

	// The prompt stays until the server sends a fresh snapshot
	assert.Equal(t, modal.ModalPasswordAuth, m.modalStack.TopType())
	require.NoError(t, env.queue.Publish(snapshot(2)))
	m, _ = update(t, m, EventsReadyMsg{})
	assert.Equal(t, modal.ModalNone, m.modalStack.TopType())
}

func TestAuthResultErrorShownInModal(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = update(t, m, ErrorMsg{Err: client.ErrAuthFailed})
	m, _ = update(t, m, AuthResultMsg{Err: client.ErrAuthFailed})

	pm := m.passwordModal()
	require.NotNil(t, pm)
	assert.False(t, pm.IsAuthenticating())
	assert.Empty(t, m.errorMessage)
}

func TestQuitFromPasswordModal(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(t, m, ErrorMsg{Err: client.ErrNoCredentials})
	require.Equal(t, modal.ModalPasswordAuth, m.modalStack.TopType())

	_, cmd := update(t, m, key("ctrl+c"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestConnectionStateMessages(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = update(t, m, ReconnectingMsg{Attempt: 3})
	assert.Equal(t, StateReconnecting, m.connectionState)
	assert.Equal(t, 3, m.reconnectAttempt)

	m, _ = update(t, m, ConnectedMsg{})
	assert.Equal(t, StateConnected, m.connectionState)
	assert.Equal(t, 0, m.reconnectAttempt)

	m, _ = update(t, m, DisconnectedMsg{Err: client.ErrConnClosed})
	assert.Equal(t, StateDisconnected, m.connectionState)
	assert.Equal(t, client.ErrConnClosed.Error(), m.errorMessage)
}

func TestConnectFailureSchedulesRetry(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := update(t, m, ConnectResultMsg{Err: client.ErrConnClosed})
	assert.NotNil(t, cmd)
	assert.Equal(t, StateDisconnected, m.connectionState)
	assert.Equal(t, "Connection failed, retrying", m.connectingModal().Status())

	_, cmd = update(t, m, ConnectResultMsg{Err: client.ErrAlreadyRunning})
	assert.Nil(t, cmd)
}

func TestVersionCheckMsg(t *testing.T) {
	m, _ := synced(t, 2)

	m, _ = update(t, m, VersionCheckMsg{LatestVersion: "v1.3.0", UpdateAvailable: true})
	assert.Contains(t, m.View(), "update: v1.3.0")
}

func TestSnapshotRestoresUnreadFromReadState(t *testing.T) {
	m, env := newTestModel(t)
	read := int64(100)
	require.NoError(t, env.state.UpdateReadState(11, 1700000000, &read))

	require.NoError(t, env.queue.Publish(snapshot(2)))
	_, _ = update(t, m, EventsReadyMsg{})

	_, rust, ok := env.mir.Channel(11)
	require.True(t, ok)
	assert.Equal(t, 1, rust.Unread)
}

func TestReadStateErrorsDoNotBlockSync(t *testing.T) {
	m, env := newTestModel(t)
	env.state.SetGetReadStateError(assert.AnError)
	env.state.SetUpdateReadStateError(assert.AnError)

	require.NoError(t, env.queue.Publish(snapshot(11)))
	m, _ = update(t, m, EventsReadyMsg{})
	assert.Equal(t, StateConnected, m.connectionState)

	_, rust, _ := env.mir.Channel(11)
	assert.Zero(t, rust.Unread)

	m, _ = update(t, m, key("alt+up"))
	assert.Equal(t, int64(10), m.activeID)
	assert.Empty(t, env.state.GetAllReadState())
}

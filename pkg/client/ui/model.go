package ui

import (
	"context"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aeolun/loungechat/pkg/client"
	slash "github.com/aeolun/loungechat/pkg/client/commands"
	"github.com/aeolun/loungechat/pkg/client/mirror"
	"github.com/aeolun/loungechat/pkg/client/ui/commands"
	"github.com/aeolun/loungechat/pkg/client/ui/modal"
	"github.com/aeolun/loungechat/pkg/updater"
)

// ConnectionState represents the connection status
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateConnected
	StateDisconnected
	StateReconnecting
)

const (
	tickInterval      = 30 * time.Second
	connectRetryDelay = 5 * time.Second
)

// EventSource is the consumer side of the ingress queue as seen by the
// render loop: a wake-up signal plus a depth check
type EventSource interface {
	Ready() <-chan struct{}
	Len() int
}

// Options wires the model to the rest of the client
type Options struct {
	Conn        client.ConnectionInterface
	State       client.StateInterface
	Queue       EventSource
	Mirror      *mirror.Mirror
	Interceptor *slash.Interceptor

	UI        client.UISection
	ServerURL string
	User      string
	Version   string

	// Updater checks for a newer release when UI.CheckUpdates is set
	Updater *updater.Checker
	Logger  *log.Logger
}

// Model represents the application state
type Model struct {
	// Connection and state
	conn             client.ConnectionInterface
	state            client.StateInterface
	connectionState  ConnectionState
	reconnectAttempt int
	serverURL        string
	user             string

	// Core
	queue       EventSource
	mirror      *mirror.Mirror
	interceptor *slash.Interceptor

	// Tracking what the view last saw of the mirror
	activeID      int64
	snapshots     int
	savedActive   int64
	savedLastMsg  int64
	renderedFirst int64
	renderedLines int

	// UI state
	width        int
	height       int
	showChannels bool
	showUsers    bool
	input        textinput.Model
	messages     viewport.Model
	modalStack   modal.ModalStack
	uiConfig     client.UISection

	// Error and status
	errorMessage  string
	statusMessage string

	// Version tracking
	currentVersion  string
	latestVersion   string
	updateAvailable bool
	updater         *updater.Checker

	// Command system
	keys *commands.Registry[*Model]

	logger *log.Logger
}

// NewModel creates a new application model
func NewModel(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message, /help for commands"
	ti.CharLimit = 4096
	ti.Focus()

	m := Model{
		conn:            opts.Conn,
		state:           opts.State,
		connectionState: StateConnecting,
		serverURL:       opts.ServerURL,
		user:            opts.User,
		queue:           opts.Queue,
		mirror:          opts.Mirror,
		interceptor:     opts.Interceptor,
		activeID:        -1,
		savedActive:     -1,
		showChannels:    opts.UI.ShowChannels,
		showUsers:       opts.UI.ShowUsers,
		input:           ti,
		messages:        viewport.New(0, 0),
		uiConfig:        opts.UI,
		currentVersion:  opts.Version,
		updater:         opts.Updater,
		logger:          opts.Logger,
	}

	if m.serverURL == "" && m.conn != nil {
		m.serverURL = m.conn.GetAddress()
	}

	m.modalStack.Push(modal.NewConnectingModal(m.serverURL))

	m.keys = commands.NewRegistry[*Model]()
	m.registerCommands()

	return m
}

// logf logs a message if a logger is set
func (m *Model) logf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

// registerCommands sets up all keyboard commands
func (m *Model) registerCommands() {
	allModals := []modal.ModalType{modal.ModalHelp, modal.ModalConnecting, modal.ModalPasswordAuth}

	// === Global ===

	m.keys.Register(commands.NewCommand[*Model]().
		Keys("ctrl+c", "ctrl+q").
		Name("Quit").
		Help("Quit the application").
		InModals(allModals...).
		Do(func(model *Model) tea.Cmd {
			return tea.Quit
		}).
		Priority(900).
		Build())

	m.keys.Register(commands.NewCommand[*Model]().
		Keys("?", "f1").
		Name("Help").
		Help("Show keys and commands (? only with an empty input line)").
		InModals(modal.ModalConnecting).
		When(func(model *Model) bool {
			return model.input.Value() == ""
		}).
		Do(func(model *Model) tea.Cmd {
			model.modalStack.Push(modal.NewHelpModal(model.keys.GenerateHelp(), slash.GenerateHelpContent()))
			return nil
		}).
		Priority(800).
		Build())

	// === Navigation ===

	m.keys.Register(commands.NewCommand[*Model]().
		Keys("alt+up").
		Name("Prev").
		Help("Previous channel").
		When(func(model *Model) bool {
			return !model.mirror.Empty()
		}).
		Do(func(model *Model) tea.Cmd {
			model.mirror.PrevChannel()
			return model.syncActive()
		}).
		Priority(10).
		Build())

	m.keys.Register(commands.NewCommand[*Model]().
		Keys("alt+down").
		Name("Next").
		Help("Next channel").
		When(func(model *Model) bool {
			return !model.mirror.Empty()
		}).
		Do(func(model *Model) tea.Cmd {
			model.mirror.NextChannel()
			return model.syncActive()
		}).
		Priority(11).
		Build())

	m.keys.Register(commands.NewCommand[*Model]().
		Keys("pgup").
		Name("Scroll").
		Help("Scroll up; at the top, load older history").
		When(func(model *Model) bool {
			return !model.mirror.Empty()
		}).
		Do(func(model *Model) tea.Cmd {
			if model.messages.AtTop() {
				if model.mirror.LoadOlder() {
					model.statusMessage = "Loading older messages..."
				}
				return nil
			}
			model.messages.SetYOffset(model.messages.YOffset - model.messages.Height)
			return nil
		}).
		Priority(20).
		Build())

	m.keys.Register(commands.NewCommand[*Model]().
		Keys("pgdown").
		Help("Scroll down").
		Do(func(model *Model) tea.Cmd {
			model.messages.SetYOffset(model.messages.YOffset + model.messages.Height)
			return nil
		}).
		Priority(21).
		Build())

	// === Layout ===

	m.keys.Register(commands.NewCommand[*Model]().
		Keys("alt+b").
		Name("Channels").
		Help("Toggle the channel list").
		Do(func(model *Model) tea.Cmd {
			model.showChannels = !model.showChannels
			model.resize()
			return nil
		}).
		Priority(30).
		Build())

	m.keys.Register(commands.NewCommand[*Model]().
		Keys("alt+v").
		Name("Users").
		Help("Toggle the user list").
		Do(func(model *Model) tea.Cmd {
			model.showUsers = !model.showUsers
			model.resize()
			return nil
		}).
		Priority(31).
		Build())

	// === Input ===

	m.keys.Register(commands.NewCommand[*Model]().
		Keys("enter").
		Help("Send the line (or run a /command)").
		Hidden().
		Do(func(model *Model) tea.Cmd {
			return model.submitInput()
		}).
		Priority(40).
		Build())

	m.keys.Register(commands.NewCommand[*Model]().
		Keys("esc").
		Help("Clear status and errors").
		Hidden().
		When(func(model *Model) bool {
			return model.errorMessage != "" || model.statusMessage != ""
		}).
		Do(func(model *Model) tea.Cmd {
			model.errorMessage = ""
			model.statusMessage = ""
			return nil
		}).
		Priority(41).
		Build())
}

// EventsReadyMsg means the ingress queue has (or may have) events to apply
type EventsReadyMsg struct{}

// ErrorMsg represents an error from the transport
type ErrorMsg struct {
	Err error
}

// ConnectedMsg is sent when the socket is up
type ConnectedMsg struct{}

// DisconnectedMsg is sent when the socket goes away
type DisconnectedMsg struct {
	Err error
}

// ReconnectingMsg is sent before each reconnect attempt
type ReconnectingMsg struct {
	Attempt int
}

// ConnectResultMsg carries the outcome of the initial Connect
type ConnectResultMsg struct {
	Err error
}

// AuthResultMsg carries the outcome of submitting a password
type AuthResultMsg struct {
	Err error
}

// TickMsg is sent periodically
type TickMsg time.Time

// VersionCheckMsg is sent with version check results
type VersionCheckMsg struct {
	LatestVersion   string
	UpdateAvailable bool
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		waitForEvents(m.queue),
		listenForConnection(m.conn),
		connectCmd(m.conn),
		tickCmd(),
	}
	if top, ok := m.modalStack.Top().(modal.Animated); ok {
		cmds = append(cmds, top.Init())
	}
	if m.uiConfig.CheckUpdates && m.updater != nil {
		cmds = append(cmds, checkForUpdates(m.updater, m.currentVersion))
	}
	return tea.Batch(cmds...)
}

// waitForEvents blocks until the ingress queue signals new events
func waitForEvents(q EventSource) tea.Cmd {
	if q == nil {
		return nil
	}
	return func() tea.Msg {
		<-q.Ready()
		return EventsReadyMsg{}
	}
}

// applyNext schedules the next event right away, so a burst is applied one
// event per update with rendering in between
func applyNext() tea.Msg {
	return EventsReadyMsg{}
}

// listenForConnection turns transport errors and state changes into messages
func listenForConnection(conn client.ConnectionInterface) tea.Cmd {
	if conn == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case err, ok := <-conn.Errors():
			if !ok {
				return nil
			}
			return ErrorMsg{Err: err}
		case update, ok := <-conn.StateChanges():
			if !ok {
				return nil
			}
			switch update.State {
			case client.StateTypeConnected:
				return ConnectedMsg{}
			case client.StateTypeDisconnected:
				return DisconnectedMsg{Err: update.Err}
			case client.StateTypeReconnecting:
				return ReconnectingMsg{Attempt: update.Attempt}
			}
		}
		return nil
	}
}

// connectCmd runs the initial Connect off the update loop
func connectCmd(conn client.ConnectionInterface) tea.Cmd {
	if conn == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return ConnectResultMsg{Err: conn.Connect(ctx)}
	}
}

// retryConnect waits and then tries the initial Connect again
func retryConnect(conn client.ConnectionInterface) tea.Cmd {
	return tea.Tick(connectRetryDelay, func(time.Time) tea.Msg {
		return connectCmd(conn)()
	})
}

// authenticateCmd submits a password off the update loop
func authenticateCmd(conn client.ConnectionInterface, password string) tea.Cmd {
	return func() tea.Msg {
		return AuthResultMsg{Err: conn.Authenticate(password)}
	}
}

// tickCmd refreshes relative timestamps and persists the resume point
func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// checkForUpdates checks for available updates in the background
func checkForUpdates(checker *updater.Checker, currentVersion string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		latestVersion, err := checker.CheckLatestVersion(ctx)
		if err != nil {
			// Silently fail - don't bother user with update check failures
			return nil
		}

		return VersionCheckMsg{
			LatestVersion:   latestVersion,
			UpdateAvailable: updater.CompareVersions(currentVersion, latestVersion),
		}
	}
}

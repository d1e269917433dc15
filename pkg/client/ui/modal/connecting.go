package modal

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConnectingModal shows a spinner while the socket is being established or
// the first init snapshot has not arrived yet
type ConnectingModal struct {
	address string
	status  string
	attempt int
	spinner spinner.Model
}

// NewConnectingModal creates a new connecting modal
func NewConnectingModal(address string) *ConnectingModal {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return &ConnectingModal{
		address: address,
		status:  "Connecting",
		spinner: s,
	}
}

// SetStatus changes the headline ("Connecting", "Syncing", ...)
func (m *ConnectingModal) SetStatus(status string) {
	m.status = status
}

// SetAttempt shows the reconnect attempt number; 0 hides it
func (m *ConnectingModal) SetAttempt(attempt int) {
	m.attempt = attempt
}

// Status returns the current headline
func (m *ConnectingModal) Status() string {
	return m.status
}

// Type returns the modal type
func (m *ConnectingModal) Type() ModalType {
	return ModalConnecting
}

// HandleKey lets keys through so quit still works
func (m *ConnectingModal) HandleKey(msg tea.KeyMsg) (bool, Modal, tea.Cmd) {
	return false, m, nil
}

// Update handles bubbletea messages for animation
func (m *ConnectingModal) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return cmd
}

// Init returns the initial command to start the spinner
func (m *ConnectingModal) Init() tea.Cmd {
	return m.spinner.Tick
}

// Render returns the modal content
func (m *ConnectingModal) Render(width, height int) string {
	primaryColor := lipgloss.Color("#7D56F4")

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor).
		MarginBottom(1)

	addressStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	content := titleStyle.Render(m.spinner.View()+" "+m.status+"...") + "\n\n"
	content += addressStyle.Render("Server: "+m.address) + "\n"
	if m.attempt > 0 {
		content += addressStyle.Render(fmt.Sprintf("Attempt %d", m.attempt)) + "\n"
	}
	content += "\n" + lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Render("Ctrl+C to quit")

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor).
		Padding(1, 2)

	modalWidth := 50
	if width < modalWidth+4 {
		modalWidth = width - 4
	}
	if modalWidth < 10 {
		modalWidth = 10
	}

	box := borderStyle.Width(modalWidth - 4).Render(content)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
	)
}

// IsBlockingInput returns false; typing is pointless but quitting must work
func (m *ConnectingModal) IsBlockingInput() bool {
	return false
}

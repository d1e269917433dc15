package modal

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PasswordAuthModal asks for the bouncer account password after the server
// rejected (or never had) credentials
type PasswordAuthModal struct {
	user             string
	input            textinput.Model
	errorMessage     string
	isAuthenticating bool
	onConfirm        func(password string) tea.Cmd
	onCancel         func() tea.Cmd
}

// NewPasswordAuthModal creates a new password authentication modal
func NewPasswordAuthModal(
	user string,
	errorMessage string,
	onConfirm func(string) tea.Cmd,
	onCancel func() tea.Cmd,
) *PasswordAuthModal {
	ti := textinput.New()
	ti.Placeholder = "password"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 256
	ti.Width = 36
	ti.Focus()

	return &PasswordAuthModal{
		user:         user,
		input:        ti,
		errorMessage: errorMessage,
		onConfirm:    onConfirm,
		onCancel:     onCancel,
	}
}

// Type returns the modal type
func (m *PasswordAuthModal) Type() ModalType {
	return ModalPasswordAuth
}

// SetError shows a new failure and re-enables input
func (m *PasswordAuthModal) SetError(message string) {
	m.errorMessage = message
	m.isAuthenticating = false
	m.input.SetValue("")
}

// IsAuthenticating reports whether a submitted password is pending
func (m *PasswordAuthModal) IsAuthenticating() bool {
	return m.isAuthenticating
}

// HandleKey processes keyboard input
func (m *PasswordAuthModal) HandleKey(msg tea.KeyMsg) (bool, Modal, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.isAuthenticating {
			return true, m, nil
		}
		password := m.input.Value()
		if password == "" {
			m.errorMessage = "Password cannot be empty"
			return true, m, nil
		}

		var cmd tea.Cmd
		if m.onConfirm != nil {
			cmd = m.onConfirm(password)
		}
		m.isAuthenticating = true
		m.errorMessage = ""
		m.input.SetValue("")
		return true, m, cmd

	case "esc":
		m.input.SetValue("")
		var cmd tea.Cmd
		if m.onCancel != nil {
			cmd = m.onCancel()
		}
		return true, nil, cmd

	case "ctrl+c":
		// Let the global quit binding see it
		return false, m, nil
	}

	if m.isAuthenticating {
		return true, m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return true, m, cmd
}

// Render returns the modal content
func (m *PasswordAuthModal) Render(width, height int) string {
	primaryColor := lipgloss.Color("205")
	mutedColor := lipgloss.Color("240")
	errorColor := lipgloss.Color("196")

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor).
		MarginBottom(1).
		Render(fmt.Sprintf("Sign in as '%s'", m.user))

	prompt := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		MarginBottom(1).
		Render("The bouncer needs your password:")

	field := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("170")).
		Padding(0, 1).
		Width(40).
		Render(m.input.View())

	var errorMsg string
	if m.errorMessage != "" {
		errorMsg = "\n" + lipgloss.NewStyle().
			Foreground(errorColor).
			Render(m.errorMessage)
	}

	status := "[Enter] Sign in  [ESC] Cancel"
	if m.isAuthenticating {
		status = "Authenticating..."
	}
	statusMsg := lipgloss.NewStyle().
		Foreground(mutedColor).
		MarginTop(1).
		Render(status)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		prompt,
		field,
		errorMsg,
		statusMsg,
	)

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor).
		Padding(1, 3).
		Width(60).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}

// IsBlockingInput returns true (this modal blocks all input)
func (m *PasswordAuthModal) IsBlockingInput() bool {
	return true
}

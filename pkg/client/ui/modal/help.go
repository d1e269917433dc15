package modal

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModal lists key bindings and slash commands
type HelpModal struct {
	keys     [][]string // [key, description] pairs
	commands [][]string // [usage, description] pairs
}

// NewHelpModal creates a help modal from key and command rows
func NewHelpModal(keys, commands [][]string) *HelpModal {
	return &HelpModal{
		keys:     keys,
		commands: commands,
	}
}

// Type returns the modal type
func (m *HelpModal) Type() ModalType {
	return ModalHelp
}

// HandleKey closes on ? or esc and swallows everything else
func (m *HelpModal) HandleKey(msg tea.KeyMsg) (bool, Modal, tea.Cmd) {
	switch msg.String() {
	case "?", "esc", "q":
		return true, nil, nil
	default:
		return true, m, nil
	}
}

// Render returns the modal content
func (m *HelpModal) Render(width, height int) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("252")).
		MarginTop(1)

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("170")).
		Width(20)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	mutedTextStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("205")).
		Padding(1, 2)

	rows := func(pairs [][]string) string {
		lines := make([]string, 0, len(pairs))
		for _, p := range pairs {
			if len(p) < 2 {
				continue
			}
			lines = append(lines, keyStyle.Render(p[0])+"  "+descStyle.Render(p[1]))
		}
		return strings.Join(lines, "\n")
	}

	parts := []string{titleStyle.Render("Help")}
	if len(m.keys) > 0 {
		parts = append(parts, sectionStyle.Render("Keys"), rows(m.keys))
	}
	if len(m.commands) > 0 {
		parts = append(parts, sectionStyle.Render("Commands"), rows(m.commands))
	}
	parts = append(parts, "", mutedTextStyle.Render("[Press ? or esc to close]"))

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)),
	)
}

// IsBlockingInput returns true (this modal blocks all input)
func (m *HelpModal) IsBlockingInput() bool {
	return true
}

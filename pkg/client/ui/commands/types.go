package commands

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aeolun/loungechat/pkg/client/ui/modal"
)

// Command is a single key binding. M is the model the binding operates on.
type Command[M any] struct {
	// Keys that trigger this command (e.g. "alt+down", "ctrl+c")
	Keys []string

	// Name shown in the footer; empty keeps the binding out of the footer
	Name string

	// Description for the help modal
	HelpText string

	// ModalStates lists the modals this command also works in.
	// Empty means the command only works with no modal open.
	ModalStates []modal.ModalType

	// IsAvailable gates the command on model state; nil means always
	IsAvailable func(M) bool

	// Execute runs the command
	Execute func(M) tea.Cmd

	// Priority orders footer and help (lower first)
	Priority int

	// Hidden keeps the command out of the footer but not out of help
	Hidden bool
}

// FooterText renders "[keys] Name"
// Examples: "[Alt+↓] Next", "[Ctrl+C/Ctrl+Q] Quit"
func (c *Command[M]) FooterText() string {
	if c.Name == "" || c.Hidden || len(c.Keys) == 0 {
		return ""
	}

	formatted := make([]string, len(c.Keys))
	for i, k := range c.Keys {
		formatted[i] = formatKey(k)
	}
	return "[" + strings.Join(formatted, "/") + "] " + c.Name
}

// formatKey converts a key string to display format
// Examples: "ctrl+d" -> "Ctrl+D", "alt+up" -> "Alt+↑"
func formatKey(key string) string {
	for _, mod := range []string{"ctrl+", "alt+", "shift+"} {
		if rest, ok := strings.CutPrefix(key, mod); ok {
			return strings.ToUpper(mod[:1]) + mod[1:] + formatKey(rest)
		}
	}

	switch key {
	case "up":
		return "↑"
	case "down":
		return "↓"
	case "left":
		return "←"
	case "right":
		return "→"
	case "enter":
		return "Enter"
	case "esc":
		return "Esc"
	case "tab":
		return "Tab"
	case "pgup":
		return "PgUp"
	case "pgdown":
		return "PgDn"
	default:
		if len(key) == 1 {
			return strings.ToUpper(key)
		}
		return key
	}
}

// CommandBuilder provides a fluent interface for building commands
type CommandBuilder[M any] struct {
	cmd Command[M]
}

// NewCommand creates a new command builder with sensible defaults
func NewCommand[M any]() *CommandBuilder[M] {
	return &CommandBuilder[M]{
		cmd: Command[M]{Priority: 100},
	}
}

// Keys sets the key bindings for this command
func (b *CommandBuilder[M]) Keys(keys ...string) *CommandBuilder[M] {
	b.cmd.Keys = keys
	return b
}

// Name sets the footer name
func (b *CommandBuilder[M]) Name(name string) *CommandBuilder[M] {
	b.cmd.Name = name
	return b
}

// Help sets the help text description
func (b *CommandBuilder[M]) Help(text string) *CommandBuilder[M] {
	b.cmd.HelpText = text
	return b
}

// InModals lets the command run while one of these modals is on top
func (b *CommandBuilder[M]) InModals(modals ...modal.ModalType) *CommandBuilder[M] {
	b.cmd.ModalStates = modals
	return b
}

// When sets the availability condition function
func (b *CommandBuilder[M]) When(fn func(M) bool) *CommandBuilder[M] {
	b.cmd.IsAvailable = fn
	return b
}

// Do sets the command execution function
func (b *CommandBuilder[M]) Do(fn func(M) tea.Cmd) *CommandBuilder[M] {
	b.cmd.Execute = fn
	return b
}

// Priority sets the display priority (lower = shown first)
func (b *CommandBuilder[M]) Priority(p int) *CommandBuilder[M] {
	b.cmd.Priority = p
	return b
}

// Hidden keeps the command out of the footer
func (b *CommandBuilder[M]) Hidden() *CommandBuilder[M] {
	b.cmd.Hidden = true
	return b
}

// Build returns the constructed Command
func (b *CommandBuilder[M]) Build() *Command[M] {
	c := b.cmd
	return &c
}

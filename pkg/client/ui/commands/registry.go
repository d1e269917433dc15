package commands

import (
	"slices"
	"sort"
	"strings"

	"github.com/aeolun/loungechat/pkg/client/ui/modal"
)

// Registry dispatches keys to commands
type Registry[M any] struct {
	commands []*Command[M]
	keyMap   map[string][]*Command[M]
}

// NewRegistry creates a new command registry
func NewRegistry[M any]() *Registry[M] {
	return &Registry[M]{
		keyMap: make(map[string][]*Command[M]),
	}
}

// Register adds a command; earlier registrations win on shared keys
func (r *Registry[M]) Register(cmd *Command[M]) {
	if cmd == nil {
		return
	}
	r.commands = append(r.commands, cmd)
	for _, key := range cmd.Keys {
		r.keyMap[key] = append(r.keyMap[key], cmd)
	}
}

// GetCommand finds the first available command for a key
func (r *Registry[M]) GetCommand(key string, activeModal modal.ModalType, model M) *Command[M] {
	for _, cmd := range r.keyMap[key] {
		if r.isCommandAvailable(cmd, activeModal, model) {
			return cmd
		}
	}
	return nil
}

func (r *Registry[M]) isCommandAvailable(cmd *Command[M], activeModal modal.ModalType, model M) bool {
	if activeModal != modal.ModalNone && !slices.Contains(cmd.ModalStates, activeModal) {
		return false
	}
	if cmd.IsAvailable != nil && !cmd.IsAvailable(model) {
		return false
	}
	return true
}

// GetAvailableCommands returns available commands sorted by priority
func (r *Registry[M]) GetAvailableCommands(activeModal modal.ModalType, model M) []*Command[M] {
	var available []*Command[M]
	for _, cmd := range r.commands {
		if r.isCommandAvailable(cmd, activeModal, model) {
			available = append(available, cmd)
		}
	}

	sort.SliceStable(available, func(i, j int) bool {
		return available[i].Priority < available[j].Priority
	})
	return available
}

// GenerateFooter creates footer text for the current context
// Returns a string like "[Alt+↑] Prev  [Alt+↓] Next  [?] Help"
func (r *Registry[M]) GenerateFooter(activeModal modal.ModalType, model M) string {
	var parts []string
	for _, cmd := range r.GetAvailableCommands(activeModal, model) {
		if text := cmd.FooterText(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "  ")
}

// GenerateHelp returns [key, description] pairs for every command with help
// text, regardless of current availability
func (r *Registry[M]) GenerateHelp() [][]string {
	sorted := slices.Clone(r.commands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	var help [][]string
	seen := make(map[string]bool)
	for _, cmd := range sorted {
		key := strings.Join(cmd.Keys, " / ")
		if cmd.HelpText == "" || key == "" || seen[key] {
			continue
		}
		seen[key] = true
		help = append(help, []string{key, cmd.HelpText})
	}
	return help
}

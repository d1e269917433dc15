// Package commands intercepts slash commands the client handles itself and
// forwards everything else to the server unchanged.
package commands

import (
	"sort"
	"strings"
)

// CommandDefinition is a slash command the client handles itself
type CommandDefinition struct {
	// Name without the leading slash (e.g. "jump")
	Name string

	// Aliases are alternate names (e.g. "j")
	Aliases []string

	// Usage shown in help
	Usage string

	// HelpText for the help listing
	HelpText string

	// Run executes the command against the interceptor's navigator. line is
	// the input as typed, for commands that fall back to forwarding it.
	Run func(i *Interceptor, activeID int64, args, line string) Result

	// Priority for display ordering (lower = shown first)
	Priority int
}

// LocalCommands contains every command the interceptor recognizes
var LocalCommands = []CommandDefinition{
	{
		Name:     "jump",
		Aliases:  []string{"j"},
		Usage:    "/jump <channel>",
		HelpText: "Switch to a channel in the current network",
		Run:      runJump,
		Priority: 10,
	},
	{
		Name:     "next",
		Usage:    "/next",
		HelpText: "Switch to the next channel",
		Run:      runNext,
		Priority: 20,
	},
	{
		Name:     "prev",
		Usage:    "/prev",
		HelpText: "Switch to the previous channel",
		Run:      runPrev,
		Priority: 21,
	},
	{
		Name:     "help",
		Aliases:  []string{"?"},
		Usage:    "/help",
		HelpText: "List client commands",
		Priority: 99,
	},
}

func init() {
	// help lists LocalCommands, so it can only be attached once the table exists
	for i := range LocalCommands {
		if LocalCommands[i].Name == "help" {
			LocalCommands[i].Run = runHelp
		}
	}
}

// FindCommand returns the local command with name or alias (case-insensitive), or nil
func FindCommand(name string) *CommandDefinition {
	for i := range LocalCommands {
		cmd := &LocalCommands[i]
		if strings.EqualFold(cmd.Name, name) {
			return cmd
		}
		for _, alias := range cmd.Aliases {
			if strings.EqualFold(alias, name) {
				return cmd
			}
		}
	}
	return nil
}

// GenerateHelpContent returns [usage, description] pairs sorted by priority
func GenerateHelpContent() [][]string {
	sorted := make([]CommandDefinition, len(LocalCommands))
	copy(sorted, LocalCommands)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	help := make([][]string, 0, len(sorted))
	for _, cmd := range sorted {
		help = append(help, []string{cmd.Usage, cmd.HelpText})
	}
	help = append(help, []string{"//text", "Send text starting with a slash"})
	return help
}

// CommandNames returns all names and aliases with their slash, sorted
func CommandNames() []string {
	var names []string
	for _, cmd := range LocalCommands {
		names = append(names, "/"+cmd.Name)
		for _, alias := range cmd.Aliases {
			names = append(names, "/"+alias)
		}
	}
	sort.Strings(names)
	return names
}

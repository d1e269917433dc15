package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Color scheme
	PrimaryColor   = lipgloss.Color("39")  // Blue
	SecondaryColor = lipgloss.Color("213") // Pink
	SuccessColor   = lipgloss.Color("42")  // Green
	ErrorColor     = lipgloss.Color("196") // Red
	WarningColor   = lipgloss.Color("214") // Orange
	MutedColor     = lipgloss.Color("243") // Gray
	BorderColor    = lipgloss.Color("238") // Dark gray

	// Base styles
	BaseStyle = lipgloss.NewStyle()

	// Header styles
	HeaderStyle = BaseStyle.
			Bold(true).
			Foreground(PrimaryColor).
			Padding(0, 1)

	StatusStyle = BaseStyle.
			Foreground(MutedColor).
			Padding(0, 1)

	// Footer styles
	FooterStyle = BaseStyle.
			Foreground(MutedColor).
			Padding(0, 1)

	// List styles
	SelectedItemStyle = BaseStyle.
				Foreground(PrimaryColor).
				Bold(true)

	UnselectedItemStyle = BaseStyle.
				Foreground(lipgloss.Color("252"))

	UnreadItemStyle = BaseStyle.
			Foreground(lipgloss.Color("255")).
			Bold(true)

	HighlightStyle = BaseStyle.
			Foreground(WarningColor).
			Bold(true)

	// Pane styles
	ChannelPaneStyle = BaseStyle.
				Border(lipgloss.RoundedBorder()).
				BorderForeground(BorderColor).
				Padding(0, 1)

	ChatPaneStyle = BaseStyle.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor)

	UserPaneStyle = BaseStyle.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	ChannelTitleStyle = BaseStyle.
				Bold(true).
				Foreground(PrimaryColor)

	// Message styles
	MessageAuthorStyle = BaseStyle.
				Foreground(SecondaryColor)

	MessageOwnAuthorStyle = BaseStyle.
				Foreground(SuccessColor).
				Bold(true)

	MessageTimeStyle = BaseStyle.
				Foreground(MutedColor).
				Italic(true)

	MessageContentStyle = BaseStyle.
				Foreground(lipgloss.Color("252"))

	MessageActionStyle = BaseStyle.
				Foreground(SecondaryColor).
				Italic(true)

	// Input styles
	InputFocusedStyle = BaseStyle.
				Border(lipgloss.RoundedBorder()).
				BorderForeground(PrimaryColor).
				Padding(0, 1)

	// Error/success styles
	ErrorStyle = BaseStyle.
			Foreground(ErrorColor).
			Bold(true)

	SuccessStyle = BaseStyle.
			Foreground(SuccessColor).
			Bold(true)

	WarningStyle = BaseStyle.
			Foreground(WarningColor).
			Bold(true)

	MutedTextStyle = BaseStyle.
			Foreground(MutedColor)
)

// RenderError renders an error message
func RenderError(msg string) string {
	return ErrorStyle.Render("✗ " + msg)
}

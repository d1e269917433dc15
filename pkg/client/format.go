package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/aeolun/loungechat/pkg/protocol"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

// IRC formatting control bytes
const (
	ircBold          = '\x02'
	ircColor         = '\x03'
	ircHexColor      = '\x04'
	ircReset         = '\x0f'
	ircMonospace     = '\x11'
	ircReverse       = '\x16'
	ircItalic        = '\x1d'
	ircStrikethrough = '\x1e'
	ircUnderline     = '\x1f'
)

// FormatBytes formats bytes into human-readable form (B, KiB, MiB, etc.)
func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}

// FormatRelativeTime formats a timestamp relative to now
// Returns strings like "now", "5 minutes ago", "2 hours ago"
func FormatRelativeTime(t time.Time) string {
	if time.Since(t) < time.Minute {
		return "just now"
	}
	return humanize.Time(t)
}

// FormatTimestamp renders a message time for the chat pane.
// format is "relative" or "absolute" (the [ui] timestamp_format setting).
func FormatTimestamp(t time.Time, format string) string {
	if t.IsZero() {
		return ""
	}
	if format == "relative" {
		return FormatRelativeTime(t)
	}
	local := t.Local()
	if time.Since(local) > 24*time.Hour {
		return local.Format("Jan 02 15:04")
	}
	return local.Format("15:04")
}

// FormatNick renders a user with its rank marker ("@op", "+voice")
func FormatNick(u protocol.User) string {
	return u.Mode + u.Nick
}

// FormatMessageBody renders the text part of a chat line by message kind.
// Formatting codes are stripped.
func FormatMessageBody(msg protocol.Message) string {
	text := StripIRCFormatting(msg.Text)
	nick := msg.From.Nick

	switch msg.Type {
	case protocol.MessageKindAction:
		return fmt.Sprintf("* %s %s", nick, text)
	case protocol.MessageKindNotice:
		return fmt.Sprintf("-%s- %s", nick, text)
	case protocol.MessageKindJoin:
		return fmt.Sprintf("→ %s joined", nick)
	case protocol.MessageKindPart:
		if text != "" {
			return fmt.Sprintf("← %s left (%s)", nick, text)
		}
		return fmt.Sprintf("← %s left", nick)
	case protocol.MessageKindQuit:
		if text != "" {
			return fmt.Sprintf("← %s quit (%s)", nick, text)
		}
		return fmt.Sprintf("← %s quit", nick)
	case protocol.MessageKindNick:
		return fmt.Sprintf("%s is now known as %s", nick, text)
	case protocol.MessageKindTopic:
		return fmt.Sprintf("%s changed the topic to: %s", nick, text)
	}
	return text
}

// FormatChannelLabel renders a channel list entry with its unread badge
func FormatChannelLabel(ch *protocol.Channel) string {
	if ch == nil {
		return ""
	}
	name := ch.Name
	if ch.Type == protocol.KindLobby {
		name = "[" + name + "]"
	}
	switch {
	case ch.Highlight > 0:
		return fmt.Sprintf("%s (%d!)", name, ch.Unread)
	case ch.Unread > 0:
		return fmt.Sprintf("%s (%d)", name, ch.Unread)
	}
	return name
}

// TruncateText cuts text to width display cells, ANSI aware
func TruncateText(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(text, width, "…")
}

// StripIRCFormatting removes mIRC bold/colour/reset style control codes
func StripIRCFormatting(text string) string {
	if !strings.ContainsAny(text, "\x02\x03\x04\x0f\x11\x16\x1d\x1e\x1f") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case ircBold, ircReset, ircMonospace, ircReverse, ircItalic, ircStrikethrough, ircUnderline:
			continue
		case ircColor:
			// \x03[fg[,bg]] with 1-2 digit colour numbers
			i += skipColorDigits(text[i+1:], isDigit, 2)
		case ircHexColor:
			// \x04[RRGGBB[,RRGGBB]]
			i += skipColorDigits(text[i+1:], isHexDigit, 6)
		default:
			b.WriteByte(text[i])
		}
	}
	return b.String()
}

// skipColorDigits returns how many bytes of a "fg[,bg]" colour code lead s
func skipColorDigits(s string, valid func(byte) bool, max int) int {
	n := countLeading(s, valid, max)
	if n == 0 {
		return 0
	}
	if n < len(s) && s[n] == ',' {
		if bg := countLeading(s[n+1:], valid, max); bg > 0 {
			return n + 1 + bg
		}
	}
	return n
}

func countLeading(s string, valid func(byte) bool, max int) int {
	n := 0
	for n < len(s) && n < max && valid(s[n]) {
		n++
	}
	return n
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

package ui

import (
	"fmt"
	"strings"

	"github.com/76creates/stickers/flexbox"
	"github.com/charmbracelet/lipgloss"

	"github.com/aeolun/loungechat/pkg/client"
	"github.com/aeolun/loungechat/pkg/protocol"
)

const (
	headerHeight = 1
	inputHeight  = 3 // rounded border around one line
	footerHeight = 1

	// flexbox ratios for the body columns
	channelsRatio = 1
	chatRatio     = 4
	usersRatio    = 1
)

// View renders the current view
func (m Model) View() string {
	// Don't render until we have dimensions
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if top := m.modalStack.Top(); top != nil {
		return top.Render(m.width, m.height)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderBody(),
		m.renderInput(),
		m.renderFooter(),
	)
}

// bodyHeight is what is left between the header and the input line
func (m Model) bodyHeight() int {
	return max(1, m.height-headerHeight-inputHeight-footerHeight)
}

// chatWidth approximates the width flexbox gives the chat column, minus its border
func (m Model) chatWidth() int {
	total := chatRatio
	if m.showChannels {
		total += channelsRatio
	}
	if m.showUsers {
		total += usersRatio
	}
	return max(10, m.width*chatRatio/total-2)
}

// resize fits the scrollback and input to the terminal
func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.messages.Width = m.chatWidth()
	// Border (2) and the channel title line
	m.messages.Height = max(1, m.bodyHeight()-3)
	m.input.Width = max(10, m.width-4-lipgloss.Width(m.input.Prompt))
	m.renderedLines = 0
	m.refreshMessages(true)
}

// refreshMessages re-renders the active channel into the viewport. It keeps
// the view pinned to the bottom when it was there and holds the reading
// position steady when older history is prepended.
func (m *Model) refreshMessages(jumpToBottom bool) {
	if m.mirror == nil {
		return
	}
	_, ch := m.mirror.Active()

	var first int64 = -1
	if ch != nil && len(ch.Messages) > 0 {
		first = ch.Messages[0].ID
	}

	atBottom := m.messages.AtBottom()
	offset := m.messages.YOffset
	prevLines := m.renderedLines
	prepended := prevLines > 0 && first != m.renderedFirst

	content := m.buildChatMessages(ch)
	m.messages.SetContent(content)
	lines := m.messages.TotalLineCount()

	switch {
	case jumpToBottom || atBottom:
		m.messages.GotoBottom()
	case prepended:
		m.messages.SetYOffset(offset + lines - prevLines)
	}
	if prepended {
		m.statusMessage = ""
	}

	m.renderedFirst = first
	m.renderedLines = lines
}

// buildChatMessages renders every message of ch, wrapped to the viewport width
func (m Model) buildChatMessages(ch *protocol.Channel) string {
	if ch == nil {
		return MutedTextStyle.Render("No channels yet")
	}
	if len(ch.Messages) == 0 {
		return MutedTextStyle.Render("No messages")
	}

	width := max(10, m.messages.Width)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, msg := range ch.Messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(wrap.Render(m.formatChatMessage(msg)))
	}
	return b.String()
}

// formatChatMessage renders "[time] <nick> text" or a muted status line
func (m Model) formatChatMessage(msg protocol.Message) string {
	var parts []string

	if m.uiConfig.ShowTimestamps {
		if ts := client.FormatTimestamp(msg.Time, m.uiConfig.TimestampFormat); ts != "" {
			parts = append(parts, MessageTimeStyle.Render(ts))
		}
	}

	body := client.StripIRCFormatting(client.FormatMessageBody(msg))

	switch {
	case !msg.Type.IsChat():
		parts = append(parts, MutedTextStyle.Render(body))
	case msg.Type == protocol.MessageKindMessage:
		nickStyle := MessageAuthorStyle
		if msg.Self {
			nickStyle = MessageOwnAuthorStyle
		}
		parts = append(parts, nickStyle.Render("<"+client.FormatNick(msg.From)+">"))
		if msg.Highlight {
			parts = append(parts, HighlightStyle.Render(body))
		} else {
			parts = append(parts, MessageContentStyle.Render(body))
		}
	default:
		parts = append(parts, MessageActionStyle.Render(body))
	}

	return strings.Join(parts, " ")
}

// renderHeader renders the title on the left and connection status on the right
func (m Model) renderHeader() string {
	title := "loungechat"
	if m.currentVersion != "" {
		title += " " + m.currentVersion
	}
	left := HeaderStyle.Render(title)
	if m.updateAvailable {
		left += WarningStyle.Render(fmt.Sprintf(" (update: %s)", m.latestVersion))
	}

	var status string
	switch m.connectionState {
	case StateConnecting:
		status = "Connecting..."
	case StateReconnecting:
		status = WarningStyle.Render(fmt.Sprintf("Reconnecting (attempt %d)", m.reconnectAttempt))
	case StateDisconnected:
		status = ErrorStyle.Render("Disconnected")
	case StateConnected:
		status = "Connected"
		if net, _ := m.mirror.Active(); net != nil && net.Nick != "" {
			status = fmt.Sprintf("%s on %s", net.Nick, net.Name)
		}
		if m.conn != nil {
			status += MutedTextStyle.Render(fmt.Sprintf("  ↑%s ↓%s",
				client.FormatBytes(m.conn.GetBytesSent()),
				client.FormatBytes(m.conn.GetBytesReceived())))
		}
	}
	right := StatusStyle.Render(status)

	spacer := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right)))
	return client.TruncateText(left+spacer+right, m.width)
}

// renderBody lays out channels, chat and users side by side
func (m Model) renderBody() string {
	layout := flexbox.NewHorizontal(m.width, m.bodyHeight())

	var columns []*flexbox.Column
	if m.showChannels {
		columns = append(columns, layout.NewColumn().AddCells(
			flexbox.NewCell(channelsRatio, 1).
				SetStyle(ChannelPaneStyle).
				SetContent(m.buildChannelPane()),
		))
	}

	columns = append(columns, layout.NewColumn().AddCells(
		flexbox.NewCell(chatRatio, 1).
			SetStyle(ChatPaneStyle).
			SetContent(m.buildChatPane()),
	))

	if m.showUsers {
		columns = append(columns, layout.NewColumn().AddCells(
			flexbox.NewCell(usersRatio, 1).
				SetStyle(UserPaneStyle).
				SetContent(m.buildUserPane()),
		))
	}

	layout.AddColumns(columns)
	return layout.Render()
}

// buildChannelPane lists every channel of every network, active one marked
func (m Model) buildChannelPane() string {
	width := max(4, m.width*channelsRatio/(chatRatio+channelsRatio+usersRatio)-4)

	var items []string
	for _, net := range m.mirror.Networks() {
		for _, ch := range net.Channels {
			label := client.TruncateText(client.FormatChannelLabel(ch), width-2)
			switch {
			case ch.ID == m.mirror.ActiveID():
				items = append(items, SelectedItemStyle.Render("▶ "+label))
			case ch.Highlight > 0:
				items = append(items, HighlightStyle.Render("  "+label))
			case ch.Unread > 0:
				items = append(items, UnreadItemStyle.Render("  "+label))
			default:
				items = append(items, UnselectedItemStyle.Render("  "+label))
			}
		}
	}

	if len(items) == 0 {
		items = append(items, MutedTextStyle.Render("(no channels)"))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		ChannelTitleStyle.Render("Channels"),
		strings.Join(items, "\n"),
	)
}

// buildChatPane is the channel title line over the scrollback
func (m Model) buildChatPane() string {
	title := ""
	if _, ch := m.mirror.Active(); ch != nil {
		title = ch.Name
		if ch.Topic != "" {
			title += MutedTextStyle.Render(" | " + client.StripIRCFormatting(ch.Topic))
		}
		if m.mirror.HistoryPending(ch.ID) {
			title += MutedTextStyle.Render("  (loading history)")
		}
	}
	title = client.TruncateText(title, m.messages.Width)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		ChannelTitleStyle.Render(title),
		m.messages.View(),
	)
}

// buildUserPane lists the roster of the active channel
func (m Model) buildUserPane() string {
	_, ch := m.mirror.Active()
	if ch == nil || !ch.Type.IsMultiUser() {
		return ChannelTitleStyle.Render("Users")
	}

	width := max(4, m.width*usersRatio/(chatRatio+channelsRatio+usersRatio)-4)
	items := make([]string, 0, len(ch.Users))
	for _, u := range ch.Users {
		items = append(items, UnselectedItemStyle.Render(client.TruncateText(client.FormatNick(u), width)))
	}
	if len(items) == 0 {
		items = append(items, MutedTextStyle.Render("(loading)"))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		ChannelTitleStyle.Render(fmt.Sprintf("Users (%d)", len(ch.Users))),
		strings.Join(items, "\n"),
	)
}

// renderInput renders the input line
func (m Model) renderInput() string {
	return InputFocusedStyle.Width(max(1, m.width-2)).Render(m.input.View())
}

// renderFooter renders key hints followed by status and errors
func (m Model) renderFooter() string {
	footerContent := m.keys.GenerateFooter(m.modalStack.TopType(), &m)

	if m.statusMessage != "" {
		footerContent += "  " + SuccessStyle.Render(m.statusMessage)
	}
	if m.errorMessage != "" {
		footerContent += "  " + RenderError(m.errorMessage)
	}

	// FooterStyle has Padding(0, 1)
	return FooterStyle.Render(client.TruncateText(footerContent, max(1, m.width-2)))
}

package ui

import (
	"fmt"
	"log"

	"github.com/gen2brain/beeep"

	"github.com/aeolun/loungechat/pkg/client"
	"github.com/aeolun/loungechat/pkg/client/mirror"
	"github.com/aeolun/loungechat/pkg/protocol"
)

// notifyFunc is swapped in tests
var notifyFunc = func(title, body, iconPath string) error {
	return beeep.Notify(title, body, iconPath)
}

// DesktopNotifier returns a highlight callback that raises a desktop
// notification. Sending is best-effort and happens off the update loop.
func DesktopNotifier(iconPath string, logger *log.Logger) mirror.HighlightFunc {
	return func(network *protocol.Network, channel *protocol.Channel, msg protocol.Message) {
		title, body := notificationText(network, channel, msg)
		go func() {
			if err := notifyFunc(title, body, iconPath); err != nil && logger != nil {
				logger.Printf("Failed to send desktop notification: %v", err)
			}
		}()
	}
}

// notificationText builds "nick in #chan (Network)" and the stripped,
// truncated line
func notificationText(network *protocol.Network, channel *protocol.Channel, msg protocol.Message) (string, string) {
	title := "loungechat"
	if channel != nil {
		title = channel.Name
		if network != nil && network.Name != "" && network.Name != channel.Name {
			title = fmt.Sprintf("%s (%s)", channel.Name, network.Name)
		}
	}
	if msg.From.HasNick() {
		title = msg.From.Nick + " in " + title
	}

	body := client.TruncateText(client.StripIRCFormatting(msg.Text), 100)
	return title, body
}

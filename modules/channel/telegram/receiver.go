package telegram

import (
	"errors"
	"log/slog"

	"github.com/flemzord/dashbot/internal/channel"
	"github.com/flemzord/dashbot/pkg/message"
)

// receiver turns raw updates into inbound messages for the inbox. Polling
// and webhook delivery share it.
type receiver struct {
	inbox       func(message.InboundMessage) error
	allowList   *channel.AllowList
	logger      *slog.Logger
	botUsername string
	channelName string
}

// deliver converts, filters and forwards one update. Updates that are not
// for the bot are dropped silently; only inbox failures are returned.
func (r *receiver) deliver(update *Update) error {
	msg, err := convertInbound(update, r.botUsername, r.channelName)
	if err != nil {
		if !errors.Is(err, errNoText) {
			r.logger.Debug("skipping update", "update_id", update.UpdateID, "reason", err)
		}
		return nil
	}

	if !r.allowList.IsAllowed(msg) {
		r.logger.Warn("update denied by allow list",
			"update_id", update.UpdateID,
			"sender", msg.Sender.ID,
			"chat", msg.Chat.ID,
		)
		return nil
	}

	return r.inbox(msg)
}

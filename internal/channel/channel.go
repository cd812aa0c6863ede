// Package channel defines the bridge between messaging platforms and the bot
// handlers. It provides the Channel interface, outbound dispatch and
// allow-list filtering.
package channel

import (
	"context"

	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/pkg/message"
)

// Channel is the bridge between a messaging platform and the bot.
//
// A channel receives messages from its platform, checks the allow-list, and
// pushes them to the inbox callback. Replies come back through Send and
// temporary status messages are removed with Delete.
type Channel interface {
	core.Module

	// Send delivers an outbound message and returns its platform message ID.
	Send(ctx context.Context, msg message.OutboundMessage) (string, error)

	// Delete removes a message previously returned by Send.
	Delete(ctx context.Context, chat message.Chat, messageID string) error

	// SetInbox gives the channel a function to push inbound messages to.
	// It is called during wiring, before Start().
	SetInbox(fn func(msg message.InboundMessage) error)
}

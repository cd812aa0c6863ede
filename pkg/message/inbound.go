package message

import (
	"encoding/json"
	"strings"
	"time"
)

// InboundMessage represents a text message received from a channel.
type InboundMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Sender    Sender    `json:"sender"`
	Chat      Chat      `json:"chat"`
	Text      string    `json:"text"`

	// Command is the leading bot command without slash or bot suffix
	// ("start" for "/start@okk_bot"), empty for plain text.
	Command string `json:"command,omitempty"`

	Raw json.RawMessage `json:"raw,omitempty"`
}

// IsCommand reports whether the message starts with the given command.
func (m *InboundMessage) IsCommand(name string) bool {
	return m.Command != "" && strings.EqualFold(m.Command, name)
}

// IsGroup reports whether the message was sent in a group chat.
func (m *InboundMessage) IsGroup() bool {
	return m.Chat.IsGroup()
}

// ParseCommand extracts the command name from text starting with '/'.
// Returns "" when text is not a command.
func ParseCommand(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	word, _, _ := strings.Cut(text[1:], " ")
	word, _, _ = strings.Cut(word, "\n")
	word, _, _ = strings.Cut(word, "@")
	return word
}

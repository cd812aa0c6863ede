package channel

import (
	"context"
	"strconv"
	"sync"

	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/pkg/message"
)

// MockChannel is a test double that implements Channel. It records sent
// and deleted messages and allows simulating inbound messages.
type MockChannel struct {
	name      string
	inbox     func(msg message.InboundMessage) error
	allowList *AllowList

	mu      sync.Mutex
	nextID  int
	sent    []message.OutboundMessage
	deleted []string

	// SendFunc, if set, is called instead of the default recording behavior.
	SendFunc func(ctx context.Context, msg message.OutboundMessage) (string, error)
}

// Compile-time interface guards.
var _ Channel = (*MockChannel)(nil)

// NewMockChannel creates a MockChannel named "channel.<name>" with an
// optional allow-list. A nil allowList lets everyone through.
func NewMockChannel(name string, allowList *AllowList) *MockChannel {
	return &MockChannel{
		name:      name,
		allowList: allowList,
	}
}

// Name returns the channel name used in message routing.
func (m *MockChannel) Name() string {
	return "channel." + m.name
}

// ModuleInfo implements core.Module.
func (m *MockChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID: core.ModuleID(m.Name()),
		New: func() core.Module {
			return NewMockChannel(m.name, m.allowList)
		},
	}
}

// Send records the outbound message and returns a sequential ID.
func (m *MockChannel) Send(ctx context.Context, msg message.OutboundMessage) (string, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sent = append(m.sent, msg)
	return strconv.Itoa(m.nextID), nil
}

// Delete records the deleted message ID.
func (m *MockChannel) Delete(_ context.Context, _ message.Chat, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

// SetInbox stores the inbox callback.
func (m *MockChannel) SetInbox(fn func(msg message.InboundMessage) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// SimulateMessage pushes an inbound message through the allow-list and into
// the inbox. It returns ErrDenied if the sender is not allowed, and ErrNoInbox
// if SetInbox has not been called.
func (m *MockChannel) SimulateMessage(msg message.InboundMessage) error {
	m.mu.Lock()
	al := m.allowList
	inbox := m.inbox
	m.mu.Unlock()

	if !al.IsAllowed(msg) {
		return ErrDenied
	}
	if inbox == nil {
		return ErrNoInbox
	}

	msg.Channel = m.Name()
	if msg.Command == "" {
		msg.Command = message.ParseCommand(msg.Text)
	}
	return inbox(msg)
}

// SentMessages returns a copy of all recorded outbound messages.
func (m *MockChannel) SentMessages() []message.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]message.OutboundMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// DeletedMessages returns a copy of all deleted message IDs.
func (m *MockChannel) DeletedMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.deleted))
	copy(out, m.deleted)
	return out
}

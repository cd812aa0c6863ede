package channel

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/flemzord/dashbot/pkg/message"
)

// Dispatcher routes outbound messages to the channel an inbound message
// came from. Bot handlers reply through it without knowing the platform.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel under the given name.
// Returns ErrDuplicateChannel if the name is already taken.
func (d *Dispatcher) Register(name string, ch Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.channels[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	d.channels[name] = ch
	return nil
}

// Get returns the channel registered under name, or false if none.
func (d *Dispatcher) Get(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ch, ok := d.channels[name]
	return ch, ok
}

// Send dispatches an outbound message to the channel identified by
// msg.Channel and returns the platform message ID.
func (d *Dispatcher) Send(ctx context.Context, msg message.OutboundMessage) (string, error) {
	ch, err := d.lookup(msg.Channel)
	if err != nil {
		return "", err
	}
	return ch.Send(ctx, msg)
}

// Delete removes a message through the named channel.
func (d *Dispatcher) Delete(ctx context.Context, channelName string, chat message.Chat, messageID string) error {
	ch, err := d.lookup(channelName)
	if err != nil {
		return err
	}
	return ch.Delete(ctx, chat, messageID)
}

func (d *Dispatcher) lookup(name string) (Channel, error) {
	d.mu.RLock()
	ch, ok := d.channels[name]
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoChannel, name)
	}
	return ch, nil
}

// Channels returns the sorted names of all registered channels.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

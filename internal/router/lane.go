package router

import (
	"sync"

	"github.com/flemzord/dashbot/pkg/message"
)

// ChatKey identifies a conversation by channel and chat.
type ChatKey struct {
	Channel string
	ChatID  string
}

// ChatKeyFromMessage derives the ChatKey of an inbound message.
func ChatKeyFromMessage(msg message.InboundMessage) ChatKey {
	return ChatKey{Channel: msg.Channel, ChatID: msg.Chat.ID}
}

// LaneLock provides per-chat serialization: messages of one chat are
// handled in arrival order while different chats proceed in parallel.
//
// A global mutex protects the lane map; each lane has its own mutex. Lanes
// are dropped as soon as nobody holds or waits on them.
type LaneLock struct {
	mu    sync.Mutex
	lanes map[ChatKey]*lane
}

type lane struct {
	mu   sync.Mutex
	refs int
}

// NewLaneLock creates a ready-to-use LaneLock.
func NewLaneLock() *LaneLock {
	return &LaneLock{
		lanes: make(map[ChatKey]*lane),
	}
}

// Acquire gets or creates the per-chat mutex and locks it.
// The caller must call Release with the same key when done.
func (l *LaneLock) Acquire(key ChatKey) {
	l.mu.Lock()
	ln, ok := l.lanes[key]
	if !ok {
		ln = &lane{}
		l.lanes[key] = ln
	}
	ln.refs++
	l.mu.Unlock()

	// Lock outside the global mutex so other chats are not blocked.
	ln.mu.Lock()
}

// Release unlocks the per-chat mutex for the given key.
func (l *LaneLock) Release(key ChatKey) {
	l.mu.Lock()
	ln, ok := l.lanes[key]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 {
		delete(l.lanes, key)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}

// Len returns the number of live lanes.
func (l *LaneLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

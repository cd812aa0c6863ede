package router

import (
	"sync"
	"testing"
	"time"

	"github.com/flemzord/dashbot/pkg/message"
)

func TestLaneLock_DifferentChatsRunInParallel(t *testing.T) {
	l := NewLaneLock()
	a := ChatKey{Channel: "telegram", ChatID: "1"}
	b := ChatKey{Channel: "telegram", ChatID: "2"}

	l.Acquire(a)
	done := make(chan struct{})
	go func() {
		l.Acquire(b)
		l.Release(b)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lane b blocked by lane a")
	}
	l.Release(a)
}

func TestLaneLock_SameChatBlocks(t *testing.T) {
	l := NewLaneLock()
	key := ChatKey{Channel: "telegram", ChatID: "1"}

	l.Acquire(key)
	acquired := make(chan struct{})
	go func() {
		l.Acquire(key)
		close(acquired)
		l.Release(key)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire did not block")
	case <-time.After(20 * time.Millisecond):
	}
	l.Release(key)
	<-acquired
}

func TestLaneLock_DropsIdleLanes(t *testing.T) {
	l := NewLaneLock()
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := ChatKey{Channel: "telegram", ChatID: string(rune('0' + i%3))}
			l.Acquire(key)
			l.Release(key)
		}()
	}
	wg.Wait()
	if n := l.Len(); n != 0 {
		t.Fatalf("Len() = %d after all releases, want 0", n)
	}
	l.Release(ChatKey{ChatID: "unknown"})
}

func TestChatKeyFromMessage(t *testing.T) {
	msg := message.InboundMessage{Channel: "telegram", Chat: message.Chat{ID: "-100"}}
	if got := ChatKeyFromMessage(msg); got != (ChatKey{Channel: "telegram", ChatID: "-100"}) {
		t.Fatalf("ChatKeyFromMessage = %+v", got)
	}
}

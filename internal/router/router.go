package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/flemzord/dashbot/internal/security"
	"github.com/flemzord/dashbot/pkg/message"
)

const defaultInboxSize = 64

// Handler processes one inbound message.
type Handler interface {
	Handle(ctx context.Context, msg message.InboundMessage)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg message.InboundMessage)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, msg message.InboundMessage) {
	f(ctx, msg)
}

// Config holds the configuration for a Router.
type Config struct {
	WorkerCount int
	InboxSize   int
	Handler     Handler
	Logger      *slog.Logger

	// MaxMessageSize is the maximum accepted text size in bytes.
	// Zero means use the default (1 MiB).
	MaxMessageSize int
}

// withDefaults returns a copy of the config with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

type envelope struct {
	Message message.InboundMessage
	Key     ChatKey
}

// Router queues inbound messages and hands them to the Handler.
type Router struct {
	config   Config
	inbox    chan envelope
	inboxMu  sync.RWMutex
	laneLock *LaneLock
	pool     *WorkerPool
	cancel   context.CancelFunc
	stopOnce sync.Once
	logger   *slog.Logger
	stopped  atomic.Bool
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(cfg Config) (*Router, error) {
	cfg = cfg.withDefaults()

	if cfg.Handler == nil {
		return nil, ErrNoHandler
	}

	return &Router{
		config:   cfg,
		inbox:    make(chan envelope, cfg.InboxSize),
		laneLock: NewLaneLock(),
		pool:     NewWorkerPool(cfg.WorkerCount),
		logger:   cfg.Logger,
	}, nil
}

// Start launches the worker pool and begins processing messages.
func (r *Router) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.inboxMu.Lock()
	if r.stopped.Load() {
		r.inboxMu.Unlock()
		cancel()
		r.logger.Warn("router: start ignored, router already stopped")
		return
	}
	r.cancel = cancel
	r.inboxMu.Unlock()

	r.pool.Start(ctx, r.inbox, r.execute)
	r.logger.Info("router: started", "workers", r.config.WorkerCount, "inbox_size", r.config.InboxSize)
}

func (r *Router) execute(ctx context.Context, env envelope) {
	r.laneLock.Acquire(env.Key)
	defer r.laneLock.Release(env.Key)

	r.config.Handler.Handle(ctx, env.Message)
}

// Submit enqueues an inbound message for processing. It never blocks:
// if the inbox is full the message is dropped with a warning log.
// Submit matches the channel inbox callback signature.
func (r *Router) Submit(msg message.InboundMessage) error {
	r.inboxMu.RLock()
	defer r.inboxMu.RUnlock()

	if r.stopped.Load() {
		return ErrRouterStopped
	}

	if err := security.ValidateMessageSize([]byte(msg.Text), r.config.MaxMessageSize); err != nil {
		r.logger.Warn("router: message too large, rejected",
			"size", len(msg.Text),
			"channel", msg.Channel,
		)
		return err
	}

	key := ChatKeyFromMessage(msg)
	select {
	case r.inbox <- envelope{Message: msg, Key: key}:
		return nil
	default:
		r.logger.Warn("router: inbox full, message dropped",
			"channel", key.Channel,
			"chat_id", key.ChatID,
		)
		return ErrInboxFull
	}
}

// Stop closes the inbox and waits for in-flight messages to finish.
// Handlers see their context cancelled once ctx is done.
func (r *Router) Stop(ctx context.Context) {
	r.stopOnce.Do(func() {
		r.logger.Info("router: stopping")

		r.inboxMu.Lock()
		r.stopped.Store(true)
		close(r.inbox)
		cancel := r.cancel
		r.inboxMu.Unlock()

		done := make(chan struct{})
		go func() {
			r.pool.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			r.logger.Warn("router: stop deadline reached, cancelling handlers")
		}
		if cancel != nil {
			cancel()
		}
		<-done
		r.logger.Info("router: stopped")
	})
}

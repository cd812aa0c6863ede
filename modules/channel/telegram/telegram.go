package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/dashbot/internal/channel"
	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/internal/gateway"
	"github.com/flemzord/dashbot/pkg/message"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Telegram{})
}

// Compile-time interface guards.
var (
	_ channel.Channel   = (*Telegram)(nil)
	_ core.Configurable = (*Telegram)(nil)
	_ core.Provisioner  = (*Telegram)(nil)
	_ core.Validator    = (*Telegram)(nil)
	_ core.Starter      = (*Telegram)(nil)
	_ core.Stopper      = (*Telegram)(nil)
)

// Telegram implements the Telegram Bot API channel.
type Telegram struct {
	config    Config
	client    *Client
	logger    *slog.Logger
	allowList *channel.AllowList
	inbox     func(message.InboundMessage) error
	botUser   *User
	appCtx    *core.AppContext

	// Set during Start() depending on mode.
	poller          *Poller
	webhookReceiver *WebhookReceiver
}

// ModuleInfo implements core.Module.
func (t *Telegram) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.telegram",
		New: func() core.Module { return &Telegram{} },
	}
}

// Configure implements core.Configurable.
func (t *Telegram) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (t *Telegram) Provision(ctx *core.AppContext) error {
	t.appCtx = ctx
	t.logger = ctx.Logger
	t.client = NewClient(t.config.Token, t.config.APIURL, t.config.RequestTimeout)
	t.allowList = channel.NewAllowList(t.config.AllowUsers, t.config.AllowGroups)
	return nil
}

// Validate implements core.Validator.
func (t *Telegram) Validate() error {
	if t.config.Token == "" {
		return errors.New("telegram: token is required")
	}
	switch t.config.Mode {
	case modePolling, modeWebhook:
	default:
		return fmt.Errorf("telegram: invalid mode %q (must be \"polling\" or \"webhook\")", t.config.Mode)
	}
	if t.config.Mode == modeWebhook && t.config.WebhookURL == "" {
		return errors.New("telegram: webhook_url is required when mode is \"webhook\"")
	}
	return t.config.validate()
}

// Start implements core.Starter. It validates the bot token, then starts
// either polling or webhook mode.
func (t *Telegram) Start() error {
	if t.inbox == nil {
		return fmt.Errorf("telegram: %w", channel.ErrNoInbox)
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.config.RequestTimeout)
	defer cancel()

	user, err := t.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	t.botUser = user
	t.logger.Info("telegram bot authenticated",
		"id", user.ID,
		"username", user.Username,
	)

	if t.allowList.IsOpen() {
		t.logger.Warn("telegram allow list is empty, every user can generate dashboards; set allow_users or allow_groups to restrict access")
	}

	recv := &receiver{
		inbox:       t.inbox,
		allowList:   t.allowList,
		logger:      t.logger,
		botUsername: user.Username,
		channelName: string(t.ModuleInfo().ID),
	}

	switch t.config.Mode {
	case modePolling:
		// A leftover webhook makes getUpdates fail with 409.
		if err := t.client.DeleteWebhook(ctx); err != nil {
			t.logger.Warn("telegram: deleteWebhook before polling failed", "error", err)
		}
		t.poller = NewPoller(t.client, recv, t.logger, t.config)
		t.poller.Start()
		t.logger.Info("telegram polling started", "timeout", t.config.PollingTimeout)

	case modeWebhook:
		if t.config.WebhookSecret == "" {
			t.logger.Warn("telegram webhook running without webhook_secret, anyone who knows the URL can post updates")
		}
		t.webhookReceiver = NewWebhookReceiver(recv, t.config.WebhookSecret)

		if err := t.registerWebhook(); err != nil {
			return err
		}

		if err := t.client.SetWebhook(ctx, SetWebhookRequest{
			URL:            t.config.WebhookURL,
			SecretToken:    t.config.WebhookSecret,
			AllowedUpdates: t.config.AllowedUpdates,
		}); err != nil {
			return fmt.Errorf("telegram: setWebhook failed: %w", err)
		}
		t.logger.Info("telegram webhook configured", "url", t.config.WebhookURL)
	}

	return nil
}

// registerWebhook resolves the gateway webhook dispatcher from the service
// registry and registers the WebhookReceiver as a handler.
func (t *Telegram) registerWebhook() error {
	dispatcher, ok := core.Service[*gateway.WebhookDispatcher](t.appCtx, gateway.WebhookDispatcherService)
	if !ok {
		return fmt.Errorf("telegram: %s service not found (is the gateway module loaded?)", gateway.WebhookDispatcherService)
	}

	// Telegram authenticates with its own secret header, checked by the
	// receiver, so no HMAC secret is registered.
	dispatcher.Register("telegram", t.webhookReceiver, "")
	return nil
}

// Stop implements core.Stopper.
func (t *Telegram) Stop(ctx context.Context) error {
	t.logger.Info("telegram channel stopping")

	switch t.config.Mode {
	case modePolling:
		if t.poller != nil {
			t.poller.Stop()
		}
	case modeWebhook:
		if err := t.client.DeleteWebhook(ctx); err != nil {
			t.logger.Warn("telegram: failed to delete webhook on shutdown", "error", err)
		}
	}

	return nil
}

// SetInbox implements channel.Channel.
func (t *Telegram) SetInbox(fn func(msg message.InboundMessage) error) {
	t.inbox = fn
}

// BotUser returns the authenticated bot account, nil before Start.
func (t *Telegram) BotUser() *User {
	return t.botUser
}

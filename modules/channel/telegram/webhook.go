package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// secretHeader carries the secret_token given to setWebhook.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookReceiver processes incoming Telegram webhook payloads.
// It implements gateway.WebhookHandler.
type WebhookReceiver struct {
	recv   *receiver
	secret string
}

// NewWebhookReceiver creates a new WebhookReceiver.
func NewWebhookReceiver(recv *receiver, secret string) *WebhookReceiver {
	return &WebhookReceiver{recv: recv, secret: secret}
}

// HandleWebhook processes a payload forwarded by the gateway dispatcher.
// It validates the Telegram secret token header, parses the update, and
// hands it to the receiver.
func (w *WebhookReceiver) HandleWebhook(_ context.Context, _ string, body []byte, headers http.Header) error {
	if w.secret != "" {
		token := headers.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(w.secret), []byte(token)) != 1 {
			return errors.New("telegram: invalid webhook secret token")
		}
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("telegram: invalid update JSON: %w", err)
	}

	return w.recv.deliver(&update)
}

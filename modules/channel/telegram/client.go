package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	maxRetries       = 3
	initialBackoff   = time.Second
	maxResponseBytes = 10 << 20 // 10 MiB
)

// Client is a thin HTTP wrapper around the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a new Telegram Bot API client. timeout bounds each call
// whose context carries no deadline of its own.
func NewClient(token, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		token:   token,
		baseURL: baseURL,
		timeout: timeout,
		http:    &http.Client{},
	}
}

// requestBody is an encoded Bot API request body and its content type.
type requestBody struct {
	data        []byte
	contentType string
}

func jsonBody(method string, payload any) (*requestBody, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s request: %w", method, err)
	}
	return &requestBody{data: data, contentType: "application/json"}, nil
}

// do sends a POST request to the given Bot API method and decodes the response.
// It handles 429 rate limiting with Retry-After (max 3 retries, exponential backoff).
func do[T any](ctx context.Context, c *Client, method string, body *requestBody) (*T, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	backoff := initialBackoff

	for attempt := range maxRetries {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body.data)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
		if err != nil {
			return nil, fmt.Errorf("telegram: create %s request: %w", method, err)
		}
		if body != nil {
			req.Header.Set("Content-Type", body.contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			// The raw error embeds the token-bearing URL; the redacting log
			// handler scrubs it when this error is logged.
			return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries-1 {
			var apiResp APIResponse[json.RawMessage]
			if err := json.Unmarshal(respBody, &apiResp); err == nil && apiResp.Parameters != nil && apiResp.Parameters.RetryAfter > 0 {
				backoff = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
			}

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
			continue
		}

		var apiResp APIResponse[T]
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return nil, fmt.Errorf("telegram: decode %s response: %w", method, err)
		}

		if !apiResp.OK {
			apiErr := &APIError{
				Code:        apiResp.ErrorCode,
				Description: apiResp.Description,
			}
			if apiResp.Parameters != nil {
				apiErr.RetryAfter = apiResp.Parameters.RetryAfter
			}
			return nil, apiErr
		}

		return &apiResp.Result, nil
	}

	return nil, fmt.Errorf("telegram: %s: max retries exceeded", method)
}

func call[T any](ctx context.Context, c *Client, method string, payload any) (*T, error) {
	body, err := jsonBody(method, payload)
	if err != nil {
		return nil, err
	}
	return do[T](ctx, c, method, body)
}

// GetUpdatesRequest is the request body for the getUpdates method.
type GetUpdatesRequest struct {
	Offset         int      `json:"offset,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// SetWebhookRequest is the request body for the setWebhook method.
type SetWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
	MaxConnections int      `json:"max_connections,omitempty"`
}

// SendMessageRequest is the request body for the sendMessage method.
type SendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	ReplyToMessageID      int    `json:"reply_to_message_id,omitempty"`
}

// DeleteMessageRequest is the request body for the deleteMessage method.
type DeleteMessageRequest struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// SendDocumentRequest holds the form fields of a sendDocument upload.
type SendDocumentRequest struct {
	ChatID           int64
	Caption          string
	ParseMode        string
	ReplyToMessageID int
}

// GetMe returns the bot's user information.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	return call[User](ctx, c, "getMe", nil)
}

// GetUpdates fetches incoming updates using long polling. The call may
// block for req.Timeout seconds on top of the client timeout.
func (c *Client) GetUpdates(ctx context.Context, req GetUpdatesRequest) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout+time.Duration(req.Timeout)*time.Second)
	defer cancel()

	result, err := call[[]Update](ctx, c, "getUpdates", req)
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// SetWebhook configures the webhook URL for receiving updates.
func (c *Client) SetWebhook(ctx context.Context, req SetWebhookRequest) error {
	_, err := call[bool](ctx, c, "setWebhook", req)
	return err
}

// DeleteWebhook removes the current webhook integration.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := call[bool](ctx, c, "deleteWebhook", nil)
	return err
}

// SendMessage sends a text message to the specified chat.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	return call[Message](ctx, c, "sendMessage", req)
}

// DeleteMessage deletes a message previously sent by the bot.
func (c *Client) DeleteMessage(ctx context.Context, req DeleteMessageRequest) error {
	_, err := call[bool](ctx, c, "deleteMessage", req)
	return err
}

// SendDocument uploads the file at path to the specified chat.
func (c *Client) SendDocument(ctx context.Context, req SendDocumentRequest, path string) (*Message, error) {
	body, err := documentBody(req, path)
	if err != nil {
		return nil, err
	}
	return do[Message](ctx, c, "sendDocument", body)
}

// documentBody encodes a sendDocument request as multipart/form-data. The
// whole file is buffered so the body can be replayed on 429 retries.
func documentBody(req SendDocumentRequest, path string) (*requestBody, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("telegram: sendDocument: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{{"chat_id", strconv.FormatInt(req.ChatID, 10)}}
	if req.Caption != "" {
		fields = append(fields, [2]string{"caption", req.Caption})
	}
	if req.ParseMode != "" {
		fields = append(fields, [2]string{"parse_mode", req.ParseMode})
	}
	if req.ReplyToMessageID != 0 {
		fields = append(fields, [2]string{"reply_to_message_id", strconv.Itoa(req.ReplyToMessageID)})
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("telegram: sendDocument: write %s: %w", kv[0], err)
		}
	}

	part, err := w.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("telegram: sendDocument: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("telegram: sendDocument: read %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("telegram: sendDocument: %w", err)
	}

	return &requestBody{data: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

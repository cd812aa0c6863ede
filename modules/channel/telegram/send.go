package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/flemzord/dashbot/pkg/message"
)

const parseModeMarkdownV2 = "MarkdownV2"

// Send implements channel.Channel. Markdown messages whose markup the Bot
// API rejects are resent as plain text.
func (t *Telegram) Send(ctx context.Context, msg message.OutboundMessage) (string, error) {
	chatID, err := parseChatID(msg.Chat)
	if err != nil {
		return "", err
	}
	replyTo, _ := strconv.Atoi(msg.ReplyToID)

	if msg.Document != nil {
		return t.sendDocument(ctx, chatID, replyTo, msg)
	}

	if msg.Text == "" {
		return "", errors.New("telegram: send: empty message")
	}

	req := SendMessageRequest{
		ChatID:                chatID,
		Text:                  msg.Text,
		DisableWebPagePreview: true,
		ReplyToMessageID:      replyTo,
	}
	if msg.Format == message.FormatMarkdown {
		req.Text = FormatMarkdownV2(msg.Text)
		req.ParseMode = parseModeMarkdownV2
	}

	sent, err := t.client.SendMessage(ctx, req)
	if err != nil && req.ParseMode != "" && isEntityParseError(err) {
		t.logger.Warn("telegram rejected markdown, resending as plain text", "error", err)
		req.Text, req.ParseMode = msg.Text, ""
		sent, err = t.client.SendMessage(ctx, req)
	}
	if err != nil {
		return "", fmt.Errorf("telegram: sendMessage: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

func (t *Telegram) sendDocument(ctx context.Context, chatID int64, replyTo int, msg message.OutboundMessage) (string, error) {
	req := SendDocumentRequest{
		ChatID:           chatID,
		Caption:          msg.Document.Caption,
		ReplyToMessageID: replyTo,
	}
	if msg.Format == message.FormatMarkdown && req.Caption != "" {
		req.Caption = FormatMarkdownV2(req.Caption)
		req.ParseMode = parseModeMarkdownV2
	}

	sent, err := t.client.SendDocument(ctx, req, msg.Document.Path)
	if err != nil {
		return "", err
	}
	t.logger.Info("document sent", "chat", chatID, "file", msg.Document.Path)
	return strconv.Itoa(sent.MessageID), nil
}

// Delete implements channel.Channel.
func (t *Telegram) Delete(ctx context.Context, chat message.Chat, messageID string) error {
	chatID, err := parseChatID(chat)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("telegram: invalid message ID %q: %w", messageID, err)
	}
	if err := t.client.DeleteMessage(ctx, DeleteMessageRequest{ChatID: chatID, MessageID: id}); err != nil {
		return fmt.Errorf("telegram: deleteMessage: %w", err)
	}
	return nil
}

func parseChatID(chat message.Chat) (int64, error) {
	id, err := strconv.ParseInt(chat.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: invalid chat ID %q: %w", chat.ID, err)
	}
	return id, nil
}

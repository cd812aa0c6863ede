// Package telegram implements the Telegram Bot API channel of dashbot.
//
// It receives daily reports as text messages, either by long polling
// (default) or through a webhook registered on the gateway, and answers
// with status messages and the generated dashboard document.
//
// The module registers itself as "channel.telegram" via init(). It talks to
// the Bot API over raw net/http: JSON bodies for regular methods and
// multipart/form-data for sendDocument uploads.
package telegram

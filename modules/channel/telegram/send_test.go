package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/flemzord/dashbot/pkg/message"
)

func TestSend_Markdown(t *testing.T) {
	var got SendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(t, w, APIResponse[Message]{OK: true, Result: Message{MessageID: 31}})
	}))
	defer srv.Close()

	tg := newTestTelegram(srv.URL)
	id, err := tg.Send(context.Background(), message.OutboundMessage{
		Chat:   message.Chat{ID: "42"},
		Text:   "Привет! **Жирный**.",
		Format: message.FormatMarkdown,
	})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if id != "31" {
		t.Errorf("id = %q, want 31", id)
	}
	if got.ParseMode != "MarkdownV2" || got.Text != `Привет\! *Жирный*\.` {
		t.Errorf("request = %+v", got)
	}
	if !got.DisableWebPagePreview {
		t.Error("DisableWebPagePreview = false")
	}
}

func TestSend_MarkdownFallsBackToPlain(t *testing.T) {
	var (
		mu   sync.Mutex
		reqs []SendMessageRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		reqs = append(reqs, req)
		mu.Unlock()
		if req.ParseMode != "" {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(t, w, APIResponse[json.RawMessage]{ErrorCode: 400, Description: "Bad Request: can't parse entities"})
			return
		}
		writeJSON(t, w, APIResponse[Message]{OK: true, Result: Message{MessageID: 2}})
	}))
	defer srv.Close()

	tg := newTestTelegram(srv.URL)
	id, err := tg.Send(context.Background(), message.OutboundMessage{
		Chat:   message.Chat{ID: "42"},
		Text:   "**x**",
		Format: message.FormatMarkdown,
	})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if id != "2" {
		t.Errorf("id = %q, want 2", id)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(reqs) != 2 || reqs[1].Text != "**x**" {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestSend_Document(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest_dashboard.html")
	if err := os.WriteFile(path, []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendDocument") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("caption"); got != "✅ Ваш интерактивный дашборд готов!" {
			t.Errorf("caption = %q", got)
		}
		if got := r.FormValue("reply_to_message_id"); got != "5" {
			t.Errorf("reply_to_message_id = %q", got)
		}
		writeJSON(t, w, APIResponse[Message]{OK: true, Result: Message{MessageID: 77}})
	}))
	defer srv.Close()

	tg := newTestTelegram(srv.URL)
	msg := message.OutboundMessage{
		Chat:      message.Chat{ID: "42"},
		ReplyToID: "5",
		Document:  &message.Document{Path: path, Caption: "✅ Ваш интерактивный дашборд готов!"},
	}
	id, err := tg.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if id != "77" {
		t.Errorf("id = %q, want 77", id)
	}
}

func TestSend_InvalidInput(t *testing.T) {
	tg := newTestTelegram("http://127.0.0.1:1")
	if _, err := tg.Send(context.Background(), message.OutboundMessage{Chat: message.Chat{ID: "abc"}, Text: "x"}); err == nil {
		t.Error("expected error for non-numeric chat ID")
	}
	if _, err := tg.Send(context.Background(), message.OutboundMessage{Chat: message.Chat{ID: "1"}}); err == nil {
		t.Error("expected error for empty message")
	}
	if err := tg.Delete(context.Background(), message.Chat{ID: "1"}, "x"); err == nil {
		t.Error("expected error for non-numeric message ID")
	}
}

func TestDelete(t *testing.T) {
	var got DeleteMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/deleteMessage") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(t, w, APIResponse[bool]{OK: true, Result: true})
	}))
	defer srv.Close()

	if err := newTestTelegram(srv.URL).Delete(context.Background(), message.Chat{ID: "-100"}, "15"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if got.ChatID != -100 || got.MessageID != 15 {
		t.Errorf("request = %+v", got)
	}
}

package telegram

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

const testToken = "123456:TEST-token_abc"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func newTestClient(url string) *Client {
	return NewClient(testToken, url, 5*time.Second)
}

// newTestTelegram returns a provisioned channel talking to url.
func newTestTelegram(url string) *Telegram {
	tg := &Telegram{
		config: Config{Token: testToken, APIURL: url},
		logger: discardLogger(),
	}
	tg.config.defaults()
	tg.client = NewClient(tg.config.Token, tg.config.APIURL, 5*time.Second)
	return tg
}

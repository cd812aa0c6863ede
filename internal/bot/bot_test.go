package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/dashbot/internal/channel"
	"github.com/flemzord/dashbot/internal/dashboard"
	"github.com/flemzord/dashbot/internal/history"
	"github.com/flemzord/dashbot/internal/metrics"
	"github.com/flemzord/dashbot/internal/report"
	"github.com/flemzord/dashbot/internal/security"
	"github.com/flemzord/dashbot/internal/security/securitytest"
	"github.com/flemzord/dashbot/pkg/message"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeGenerator struct {
	cleanups int
	texts    []string
	result   *dashboard.Result
	err      error
	released int
}

func (g *fakeGenerator) Cleanup(context.Context) (dashboard.CleanupResult, error) {
	g.cleanups++
	return dashboard.CleanupResult{}, nil
}

func (g *fakeGenerator) Generate(_ context.Context, text string) (*dashboard.Result, error) {
	g.texts = append(g.texts, text)
	return g.result, g.err
}

func (g *fakeGenerator) Release(res *dashboard.Result, keepHost bool) error {
	g.released++
	if keepHost {
		return nil
	}
	return os.Remove(res.Host)
}

type fixture struct {
	handler *Handler
	mock    *channel.MockChannel
	gen     *fakeGenerator
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, gen *fakeGenerator, cfg Config) *fixture {
	t.Helper()
	mock := channel.NewMockChannel("telegram", nil)
	d := channel.NewDispatcher()
	if err := d.Register(mock.Name(), mock); err != nil {
		t.Fatal(err)
	}
	m := metrics.New()
	h := New(d, gen, cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(m),
	)
	return &fixture{handler: h, mock: mock, gen: gen, metrics: m}
}

func inbound(text string) message.InboundMessage {
	return message.InboundMessage{
		ID:      "10",
		Channel: "channel.telegram",
		Chat:    message.Chat{ID: "42", Type: message.ChatDM},
		Sender:  message.Sender{ID: "42"},
		Text:    text,
		Command: message.ParseCommand(text),
	}
}

func hostFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "latest_dashboard.html")
	if err := os.WriteFile(path, []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHandle_Start(t *testing.T) {
	f := newFixture(t, &fakeGenerator{}, Defaults())
	f.handler.Handle(context.Background(), inbound("/start"))

	sent := f.mock.SentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if sent[0].Text != greetingText || sent[0].Format != message.FormatMarkdown {
		t.Errorf("greeting = %+v", sent[0])
	}
	if len(f.gen.texts) != 0 {
		t.Error("Generate called for /start")
	}
	if got := testutil.ToFloat64(f.metrics.UpdatesTotal.WithLabelValues(kindStart)); got != 1 {
		t.Errorf("updates_total{kind=start} = %v, want 1", got)
	}
}

func TestHandle_OtherCommandIsReport(t *testing.T) {
	gen := &fakeGenerator{err: &report.ParseError{Err: report.ErrNoDate}}
	f := newFixture(t, gen, Defaults())
	f.handler.Handle(context.Background(), inbound("/help"))

	if len(gen.texts) != 1 || gen.texts[0] != "/help" {
		t.Fatalf("Generate texts = %v, want [/help]", gen.texts)
	}
	sent := f.mock.SentMessages()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sent))
	}
	if !strings.HasPrefix(sent[1].Text, parseErrorTitle) {
		t.Errorf("reply = %q, want format error", sent[1].Text)
	}
	if got := testutil.ToFloat64(f.metrics.UpdatesTotal.WithLabelValues(kindReport)); got != 1 {
		t.Errorf("updates_total{kind=report} = %v, want 1", got)
	}
}

func TestHandle_ReportSuccess(t *testing.T) {
	host := hostFile(t)
	gen := &fakeGenerator{result: &dashboard.Result{
		RunID:     "run-1",
		Date:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Host:      host,
		Pages:     []string{"p1"},
		Published: true,
	}}
	f := newFixture(t, gen, Defaults())
	f.handler.Handle(context.Background(), inbound("Отчет ОКК 01.02.2024"))

	if gen.cleanups != 1 {
		t.Errorf("cleanups = %d, want 1", gen.cleanups)
	}
	if len(gen.texts) != 1 || gen.texts[0] != "Отчет ОКК 01.02.2024" {
		t.Errorf("Generate texts = %v", gen.texts)
	}

	sent := f.mock.SentMessages()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sent))
	}
	if sent[0].Text != statusText {
		t.Errorf("status = %q", sent[0].Text)
	}
	doc := sent[1].Document
	if doc == nil || doc.Path != host || doc.Caption != readyCaption {
		t.Errorf("document = %+v", sent[1])
	}

	if deleted := f.mock.DeletedMessages(); len(deleted) != 1 || deleted[0] != "1" {
		t.Errorf("deleted = %v, want [1]", deleted)
	}
	if _, err := os.Stat(host); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("host file still present: %v", err)
	}
}

func TestHandle_KeepHostFile(t *testing.T) {
	host := hostFile(t)
	cfg := Defaults()
	cfg.KeepHostFile = true
	f := newFixture(t, &fakeGenerator{result: &dashboard.Result{Host: host}}, cfg)
	f.handler.Handle(context.Background(), inbound("report"))

	if _, err := os.Stat(host); err != nil {
		t.Errorf("host file removed: %v", err)
	}
}

func TestHandle_Failures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantText  string
		wantFmt   message.Format
		wantExtra string
	}{
		{
			name:     "no data",
			err:      dashboard.ErrNoData,
			wantText: noDataText,
		},
		{
			name:      "parse error",
			err:       &report.ParseError{Err: report.ErrNoDate},
			wantText:  parseErrorTitle,
			wantFmt:   message.FormatMarkdown,
			wantExtra: report.ErrNoDate.Error(),
		},
		{
			name:     "internal",
			err:      errors.New("dashboard: generate: disk full"),
			wantText: criticalText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeGenerator{err: tt.err}, Defaults())
			f.handler.Handle(context.Background(), inbound("garbage"))

			sent := f.mock.SentMessages()
			if len(sent) != 2 {
				t.Fatalf("sent %d messages, want 2", len(sent))
			}
			got := sent[1]
			if !strings.HasPrefix(got.Text, tt.wantText) {
				t.Errorf("reply = %q, want prefix %q", got.Text, tt.wantText)
			}
			if got.Format != tt.wantFmt {
				t.Errorf("format = %q, want %q", got.Format, tt.wantFmt)
			}
			if tt.wantExtra != "" {
				if want := tt.wantText + tt.wantExtra; got.Text != want {
					t.Errorf("reply = %q, want %q", got.Text, want)
				}
			}
			if deleted := f.mock.DeletedMessages(); len(deleted) != 1 {
				t.Errorf("status message not deleted: %v", deleted)
			}
		})
	}
}

func TestHandle_DocumentSendFailure(t *testing.T) {
	host := hostFile(t)
	f := newFixture(t, &fakeGenerator{result: &dashboard.Result{Host: host}}, Defaults())
	f.mock.SendFunc = func(_ context.Context, msg message.OutboundMessage) (string, error) {
		if msg.Document != nil {
			return "", errors.New("upload failed")
		}
		return "", nil
	}
	f.handler.Handle(context.Background(), inbound("report"))

	if f.gen.released != 1 {
		t.Errorf("released = %d, want 1", f.gen.released)
	}
	if _, err := os.Stat(host); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("host file kept after failed send: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults().Validate() = %v", err)
	}
	bad := Config{}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected error for zero config")
	}
	for _, field := range []string{"workers", "inbox_size", "max_report_bytes", "timeout"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}

func TestHandle_AuditAndRateLimit(t *testing.T) {
	audit, events := securitytest.NewTestAuditLogger()
	gen := &fakeGenerator{result: &dashboard.Result{RunID: "run-7", Host: hostFile(t)}}
	mock := channel.NewMockChannel("telegram", nil)
	d := channel.NewDispatcher()
	if err := d.Register(mock.Name(), mock); err != nil {
		t.Fatal(err)
	}
	h := New(d, gen, Defaults(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAudit(audit),
		WithRateLimiter(security.NewRateLimiter(security.RateLimitConfig{ReportsPerMin: 1})),
	)

	h.Handle(context.Background(), inbound("first"))
	h.Handle(context.Background(), inbound("second"))

	if len(gen.texts) != 1 {
		t.Fatalf("Generate called %d times, want 1", len(gen.texts))
	}
	sent := mock.SentMessages()
	if last := sent[len(sent)-1]; last.Text != rateLimitedText {
		t.Errorf("last reply = %q, want rate limit notice", last.Text)
	}

	got := events()
	if len(got) != 2 {
		t.Fatalf("audit events = %d, want 2", len(got))
	}
	if got[0].Type != security.EventReport || got[0].RunID != "run-7" || got[0].ChatID != "42" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].Type != security.EventRateLimit {
		t.Errorf("second event = %+v", got[1])
	}
}

// chatReplier records, per chat, the replies and the content of the sent
// document. onDocument runs before the document is read.
type chatReplier struct {
	mu         sync.Mutex
	texts      map[string][]string
	docs       map[string]string
	docErrs    map[string]error
	onDocument func(chatID string)
}

func newChatReplier() *chatReplier {
	return &chatReplier{
		texts:   map[string][]string{},
		docs:    map[string]string{},
		docErrs: map[string]error{},
	}
}

func (r *chatReplier) Send(_ context.Context, msg message.OutboundMessage) (string, error) {
	if msg.Document == nil {
		r.mu.Lock()
		r.texts[msg.Chat.ID] = append(r.texts[msg.Chat.ID], msg.Text)
		r.mu.Unlock()
		return "1", nil
	}
	if r.onDocument != nil {
		r.onDocument(msg.Chat.ID)
	}
	data, err := os.ReadFile(msg.Document.Path)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[msg.Chat.ID] = string(data)
	r.docErrs[msg.Chat.ID] = err
	return "2", err
}

func (r *chatReplier) Delete(context.Context, string, message.Chat, string) error { return nil }

type afterGenerate struct {
	*dashboard.Pipeline
	after func(text string)
}

func (g afterGenerate) Generate(ctx context.Context, text string) (*dashboard.Result, error) {
	res, err := g.Pipeline.Generate(ctx, text)
	g.after(text)
	return res, err
}

func TestHandle_ConcurrentChatsGetTheirOwnDashboard(t *testing.T) {
	renderer, err := dashboard.NewRenderer(dashboard.Config{})
	if err != nil {
		t.Fatal(err)
	}
	pipeline := dashboard.NewPipeline(history.NewInMemoryStore(), renderer, t.TempDir(),
		dashboard.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	const (
		reportA = "Отчет ОКК 14.10.2025\nАнна - поставлено 10/выполнено 8\n"
		reportB = "Отчет ОКК 15.10.2025\nАнна - поставлено 10/выполнено 9\n"
	)

	// Order: A reads its document, B generates, A finishes and cleans up,
	// then B reads its document.
	aSending := make(chan struct{})
	bGenerated := make(chan struct{})
	aDone := make(chan struct{})

	replier := newChatReplier()
	replier.onDocument = func(chatID string) {
		switch chatID {
		case "A":
			close(aSending)
			<-bGenerated
		case "B":
			<-aDone
		}
	}
	gen := afterGenerate{Pipeline: pipeline, after: func(text string) {
		if text == reportB {
			close(bGenerated)
		}
	}}
	h := New(replier, gen, Defaults(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	msg := func(chatID, text string) message.InboundMessage {
		return message.InboundMessage{
			Channel: "channel.telegram",
			Chat:    message.Chat{ID: chatID, Type: message.ChatDM},
			Sender:  message.Sender{ID: chatID},
			Text:    text,
		}
	}

	go func() {
		defer close(aDone)
		h.Handle(context.Background(), msg("A", reportA))
	}()
	<-aSending
	h.Handle(context.Background(), msg("B", reportB))
	<-aDone

	for chat, date := range map[string]string{"A": "14.10.2025", "B": "15.10.2025"} {
		if err := replier.docErrs[chat]; err != nil {
			t.Errorf("chat %s: reading document: %v", chat, err)
			continue
		}
		if !strings.Contains(replier.docs[chat], date) {
			t.Errorf("chat %s: document is not the dashboard of %s", chat, date)
		}
		for _, text := range replier.texts[chat] {
			if text == criticalText {
				t.Errorf("chat %s got the critical error reply", chat)
			}
		}
	}
}

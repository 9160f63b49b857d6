package digest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/edgard/groupscope/internal/ai"
	"github.com/edgard/groupscope/internal/database"
)

type fakeSource struct {
	chat     *database.Chat
	messages []database.DigestMessage
	counts   []database.DailyCount

	gotSince time.Time
	gotLimit int
}

func (f *fakeSource) ChatByID(ctx context.Context, chatID int64) (*database.Chat, error) {
	return f.chat, nil
}

func (f *fakeSource) MessagesForDigest(ctx context.Context, chatID int64, since time.Time, limit int) ([]database.DigestMessage, error) {
	f.gotSince = since
	f.gotLimit = limit
	return f.messages, nil
}

func (f *fakeSource) DailyMessageCounts(ctx context.Context, chatID int64, since time.Time) ([]database.DailyCount, error) {
	return f.counts, nil
}

type fakeCompleter struct {
	response string
	err      error

	called      bool
	gotReq      ai.CompletionRequest
	gotDeadline time.Time
	hadDeadline bool
}

func (f *fakeCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	f.called = true
	f.gotReq = req
	f.gotDeadline, f.hadDeadline = ctx.Deadline()
	return f.response, f.err
}

func newTestGenerator(source *fakeSource, completer *fakeCompleter, now time.Time) *Generator {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := NewGenerator(source, completer, log, 0)
	g.now = func() time.Time { return now }
	return g
}

func testChat() *database.Chat {
	return &database.Chat{
		ID:    100,
		Kind:  "supergroup",
		Title: sql.NullString{String: "Test Group", Valid: true},
	}
}

func TestGenerateUnknownChat(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{}
	g := newTestGenerator(&fakeSource{chat: nil}, completer, time.Now())

	result, err := g.Generate(context.Background(), 100)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Success {
		t.Error("expected failure for unknown chat")
	}
	if result.Error != "chat not found" {
		t.Errorf("unexpected error message %q", result.Error)
	}
	if completer.called {
		t.Error("completer must not run for unknown chat")
	}
}

func TestGenerateEmptyWindow(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{}
	source := &fakeSource{chat: testChat()}
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	g := newTestGenerator(source, completer, now)

	result, err := g.Generate(context.Background(), 100)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Success {
		t.Error("expected failure for empty window")
	}
	if result.Error != "no messages in the last 24 hours" {
		t.Errorf("unexpected error message %q", result.Error)
	}
	if completer.called {
		t.Error("completer must not run without messages")
	}

	wantSince := now.Add(-Window)
	if !source.gotSince.Equal(wantSince) {
		t.Errorf("window start: got %v, want %v", source.gotSince, wantSince)
	}
	if source.gotLimit != MessageLimit {
		t.Errorf("limit: got %d, want %d", source.gotLimit, MessageLimit)
	}
}

func TestGenerateSuccess(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{
		chat: testChat(),
		messages: []database.DigestMessage{
			{Text: "good morning", Author: "alice", SentAt: now.Add(-10 * time.Hour)},
			{Text: "shipping today", Author: "bob", SentAt: now.Add(-2 * time.Hour)},
		},
	}
	completer := &fakeCompleter{response: "  A digest.  \n"}
	g := newTestGenerator(source, completer, now)

	result, err := g.Generate(context.Background(), 100)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Digest != "A digest." {
		t.Errorf("digest not trimmed: %q", result.Digest)
	}
	if result.MessageCount != 2 {
		t.Errorf("message count: got %d, want 2", result.MessageCount)
	}

	wantPeriod := "14.03.2026 02:00 — 14.03.2026 10:00"
	if result.Period != wantPeriod {
		t.Errorf("period: got %q, want %q", result.Period, wantPeriod)
	}

	if completer.gotReq.SystemInstruction != DigestSystemInstruction {
		t.Error("system instruction not passed through")
	}
	prompt := completer.gotReq.Prompt
	if !strings.Contains(prompt, "[02:00] @alice: good morning") {
		t.Errorf("prompt missing formatted transcript line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Test Group") {
		t.Error("prompt missing chat title")
	}
}

func TestGenerateCompletionFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{
		chat: testChat(),
		messages: []database.DigestMessage{
			{Text: "hi", Author: "alice", SentAt: now.Add(-time.Hour)},
		},
	}
	completer := &fakeCompleter{err: fmt.Errorf("backend down")}
	g := newTestGenerator(source, completer, now)

	result, err := g.Generate(context.Background(), 100)
	if err != nil {
		t.Fatalf("Generate must not propagate completion errors, got %v", err)
	}
	if result.Success {
		t.Error("expected failure when completion fails")
	}
	if result.MessageCount != 1 || result.Period == "" {
		t.Errorf("failed result should keep context: %+v", result)
	}
}

func TestGenerateUsesConfiguredCompletionTimeout(t *testing.T) {
	t.Parallel()

	now := time.Now()
	source := &fakeSource{
		chat: testChat(),
		messages: []database.DigestMessage{
			{Text: "hi", Author: "alice", SentAt: now.Add(-time.Hour)},
		},
	}
	completer := &fakeCompleter{response: "ok"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := NewGenerator(source, completer, log, 5*time.Minute)
	g.now = func() time.Time { return now }

	if _, err := g.Generate(context.Background(), 100); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !completer.hadDeadline {
		t.Fatal("completion context has no deadline")
	}
	remaining := time.Until(completer.gotDeadline)
	if remaining <= defaultCompletionTimeout {
		t.Errorf("configured timeout ignored: %v left on completion context", remaining)
	}
	if remaining > 5*time.Minute {
		t.Errorf("completion deadline too far out: %v", remaining)
	}
}

func TestFormatTranscriptTruncatesLongMessages(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("я", messageTextLimit+50)
	messages := []database.DigestMessage{
		{Text: long, Author: "alice", SentAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)},
	}

	line := formatTranscript(messages)
	if strings.Contains(line, long) {
		t.Error("long message was not truncated")
	}
	wantPrefix := "[09:30] @alice: "
	if !strings.HasPrefix(line, wantPrefix) {
		t.Errorf("unexpected line format %q", line)
	}
	body := strings.TrimPrefix(line, wantPrefix)
	if got := len([]rune(body)); got != messageTextLimit {
		t.Errorf("truncated length: got %d runes, want %d", got, messageTextLimit)
	}
}

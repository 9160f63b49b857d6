// Package digest turns a chat's recent message history into an AI-written
// summary and weekly activity commentary.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/groupscope/internal/ai"
	"github.com/edgard/groupscope/internal/database"
)

const (
	// Window is how far back the digest looks.
	Window = 24 * time.Hour
	// MessageLimit caps how many messages feed one digest. When the window
	// holds more, the oldest messages win.
	MessageLimit = 500

	// messageTextLimit caps a single message's contribution to the prompt,
	// in runes.
	messageTextLimit = 500

	defaultCompletionTimeout = 30 * time.Second

	maxDigestTokens  = 500
	maxCommentTokens = 150

	periodLayout = "02.01.2006 15:04"
)

// MessageSource is the read-side subset of the store the digest pipeline
// depends on.
type MessageSource interface {
	ChatByID(ctx context.Context, chatID int64) (*database.Chat, error)
	MessagesForDigest(ctx context.Context, chatID int64, since time.Time, limit int) ([]database.DigestMessage, error)
	DailyMessageCounts(ctx context.Context, chatID int64, since time.Time) ([]database.DailyCount, error)
}

// Result is the outcome of one digest run. A failed run is not an error:
// Success is false and Error carries a human-readable reason, while
// transient infrastructure failures surface as Go errors instead.
type Result struct {
	Success      bool   `json:"success"`
	Digest       string `json:"digest,omitempty"`
	Error        string `json:"error,omitempty"`
	MessageCount int    `json:"messages_count"`
	Period       string `json:"period,omitempty"`
}

// Generator produces digests and activity reports for individual chats.
type Generator struct {
	store     MessageSource
	completer ai.Completer
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewGenerator creates a digest generator over the given message source and
// completion backend. timeout bounds each completion call; zero selects the
// default.
func NewGenerator(store MessageSource, completer ai.Completer, logger *slog.Logger, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = defaultCompletionTimeout
	}
	return &Generator{
		store:     store,
		completer: completer,
		logger:    logger.With("component", "digest"),
		timeout:   timeout,
		now:       time.Now,
	}
}

// Generate builds a digest of the chat's last 24 hours. An unknown chat or
// an empty window yields an unsuccessful Result, not an error.
func (g *Generator) Generate(ctx context.Context, chatID int64) (*Result, error) {
	chat, err := g.store.ChatByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat %d: %w", chatID, err)
	}
	if chat == nil {
		return &Result{Success: false, Error: "chat not found"}, nil
	}

	since := g.now().Add(-Window)
	messages, err := g.store.MessagesForDigest(ctx, chatID, since, MessageLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for chat %d: %w", chatID, err)
	}
	if len(messages) == 0 {
		return &Result{Success: false, Error: "no messages in the last 24 hours"}, nil
	}

	// The period reflects the messages actually included, not the window.
	period := fmt.Sprintf("%s — %s",
		messages[0].SentAt.Format(periodLayout),
		messages[len(messages)-1].SentAt.Format(periodLayout))

	prompt := fmt.Sprintf(DigestPromptTemplate,
		chatDisplayTitle(chat), period, len(messages), formatTranscript(messages))

	g.logger.InfoContext(ctx, "Generating digest", "chat_id", chatID, "messages", len(messages))

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.completer.Complete(cctx, ai.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: DigestSystemInstruction,
		MaxOutputTokens:   maxDigestTokens,
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "Digest generation failed", "chat_id", chatID, "error", err)
		return &Result{
			Success:      false,
			Error:        "failed to generate digest, try again later",
			MessageCount: len(messages),
			Period:       period,
		}, nil
	}

	return &Result{
		Success:      true,
		Digest:       strings.TrimSpace(text),
		MessageCount: len(messages),
		Period:       period,
	}, nil
}

// formatTranscript renders messages as prompt lines, one per message,
// oldest first. Long messages are cut at a fixed rune budget.
func formatTranscript(messages []database.DigestMessage) string {
	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(fmt.Sprintf("[%s] @%s: %s",
			msg.SentAt.Format("15:04"), msg.Author, truncateRunes(msg.Text, messageTextLimit)))
	}
	return sb.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func chatDisplayTitle(chat *database.Chat) string {
	if chat.Title.Valid && chat.Title.String != "" {
		return chat.Title.String
	}
	return fmt.Sprintf("Chat %d", chat.ID)
}

package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edgard/groupscope/internal/ai"
	"github.com/edgard/groupscope/internal/database"
)

const activityDays = 7

// Activity is a week of per-day message counts for one chat, with an
// optional AI comment on the shape of the activity.
type Activity struct {
	Success       bool                  `json:"success"`
	ChatKind      string                `json:"chat_kind,omitempty"`
	Period        string                `json:"period,omitempty"`
	DailyMessages []database.DailyCount `json:"daily_messages,omitempty"`
	Total         int64                 `json:"total"`
	Average       float64               `json:"average"`
	Comment       string                `json:"ai_comment,omitempty"`
	Error         string                `json:"error,omitempty"`
}

// WeeklyActivity reports the chat's last seven days of activity. Days
// without messages appear with a zero count. The AI comment is best effort:
// its absence never fails the report.
func (g *Generator) WeeklyActivity(ctx context.Context, chatID int64) (*Activity, error) {
	chat, err := g.store.ChatByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat %d: %w", chatID, err)
	}
	if chat == nil {
		return &Activity{Success: false, Error: "chat not found"}, nil
	}

	now := g.now()
	since := now.AddDate(0, 0, -(activityDays - 1))
	counts, err := g.store.DailyMessageCounts(ctx, chatID, startOfDay(since))
	if err != nil {
		return nil, fmt.Errorf("failed to load daily counts for chat %d: %w", chatID, err)
	}

	daily := fillMissingDays(counts, now, activityDays)

	var total int64
	for _, d := range daily {
		total += d.Count
	}
	average := float64(total) / float64(activityDays)

	activity := &Activity{
		Success:       true,
		ChatKind:      chat.Kind,
		Period:        fmt.Sprintf("%s — %s", daily[0].Date, daily[len(daily)-1].Date),
		DailyMessages: daily,
		Total:         total,
		Average:       average,
	}

	if total == 0 {
		return activity, nil
	}

	var dailyData strings.Builder
	for i, d := range daily {
		if i > 0 {
			dailyData.WriteString(", ")
		}
		fmt.Fprintf(&dailyData, "%s: %d", d.Date, d.Count)
	}

	prompt := fmt.Sprintf(ActivityPromptTemplate,
		activity.ChatKind, activity.Period, dailyData.String(), total, average)

	g.logger.InfoContext(ctx, "Generating activity comment", "chat_id", chatID, "total", total)

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	comment, err := g.completer.Complete(cctx, ai.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: ActivitySystemInstruction,
		MaxOutputTokens:   maxCommentTokens,
	})
	if err != nil {
		g.logger.WarnContext(ctx, "Activity comment generation failed", "chat_id", chatID, "error", err)
		activity.Error = "failed to generate activity comment"
		return activity, nil
	}

	activity.Comment = strings.TrimSpace(comment)
	return activity, nil
}

// fillMissingDays expands sparse daily counts into a dense series covering
// the last 'days' calendar days ending today, zero-filling the gaps.
func fillMissingDays(counts []database.DailyCount, now time.Time, days int) []database.DailyCount {
	existing := make(map[string]int64, len(counts))
	for _, c := range counts {
		existing[c.Date] = c.Count
	}

	result := make([]database.DailyCount, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		result = append(result, database.DailyCount{Date: date, Count: existing[date]})
	}
	return result
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

package digest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/edgard/groupscope/internal/database"
)

func TestFillMissingDays(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		counts []database.DailyCount
		want   []database.DailyCount
	}{
		{
			name:   "no data",
			counts: nil,
			want: []database.DailyCount{
				{Date: "2026-03-08"}, {Date: "2026-03-09"}, {Date: "2026-03-10"},
				{Date: "2026-03-11"}, {Date: "2026-03-12"}, {Date: "2026-03-13"},
				{Date: "2026-03-14"},
			},
		},
		{
			name: "sparse data",
			counts: []database.DailyCount{
				{Date: "2026-03-09", Count: 4},
				{Date: "2026-03-13", Count: 1},
			},
			want: []database.DailyCount{
				{Date: "2026-03-08"}, {Date: "2026-03-09", Count: 4}, {Date: "2026-03-10"},
				{Date: "2026-03-11"}, {Date: "2026-03-12"}, {Date: "2026-03-13", Count: 1},
				{Date: "2026-03-14"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := fillMissingDays(tt.counts, now, activityDays)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d days, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("day %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWeeklyActivityQuietChat(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	completer := &fakeCompleter{}
	g := newTestGenerator(&fakeSource{chat: testChat()}, completer, now)

	activity, err := g.WeeklyActivity(context.Background(), 100)
	if err != nil {
		t.Fatalf("WeeklyActivity failed: %v", err)
	}
	if !activity.Success {
		t.Fatalf("quiet chat is still a successful report: %+v", activity)
	}
	if activity.Total != 0 || activity.Average != 0 {
		t.Errorf("unexpected totals %+v", activity)
	}
	if len(activity.DailyMessages) != activityDays {
		t.Errorf("expected %d zero-filled days, got %d", activityDays, len(activity.DailyMessages))
	}
	if completer.called {
		t.Error("no AI comment is requested for a quiet chat")
	}
}

func TestWeeklyActivity(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{
		chat: testChat(),
		counts: []database.DailyCount{
			{Date: "2026-03-10", Count: 10},
			{Date: "2026-03-13", Count: 4},
		},
	}
	completer := &fakeCompleter{response: "Busy on Tuesday."}
	g := newTestGenerator(source, completer, now)

	activity, err := g.WeeklyActivity(context.Background(), 100)
	if err != nil {
		t.Fatalf("WeeklyActivity failed: %v", err)
	}
	if !activity.Success {
		t.Fatalf("expected success: %+v", activity)
	}
	if activity.Total != 14 {
		t.Errorf("total: got %d, want 14", activity.Total)
	}
	if activity.Average != 2 {
		t.Errorf("average: got %v, want 2", activity.Average)
	}
	if activity.Period != "2026-03-08 — 2026-03-14" {
		t.Errorf("period: got %q", activity.Period)
	}
	if activity.Comment != "Busy on Tuesday." {
		t.Errorf("comment: got %q", activity.Comment)
	}
}

func TestWeeklyActivityCommentFailureIsSoft(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{
		chat:   testChat(),
		counts: []database.DailyCount{{Date: "2026-03-13", Count: 3}},
	}
	completer := &fakeCompleter{err: fmt.Errorf("backend down")}
	g := newTestGenerator(source, completer, now)

	activity, err := g.WeeklyActivity(context.Background(), 100)
	if err != nil {
		t.Fatalf("WeeklyActivity must not propagate comment errors, got %v", err)
	}
	if !activity.Success {
		t.Error("comment failure must not fail the report")
	}
	if activity.Comment != "" {
		t.Errorf("unexpected comment %q", activity.Comment)
	}
	if activity.Error == "" {
		t.Error("comment failure should be noted")
	}
}

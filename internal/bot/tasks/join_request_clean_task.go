package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/groupscope/internal/database"
)

// expiredRequestMarkers are Telegram API error fragments that mean the join
// request no longer exists or the user already joined; such requests are
// marked expired rather than retried forever.
var expiredRequestMarkers = []string{
	"chat_join_request_not_found",
	"join request not found",
	"user_already_participant",
	"user already participant",
	"user is already a participant",
	"user_not_found",
}

func isExpiredRequestError(err error) bool {
	text := strings.ToLower(err.Error())
	for _, marker := range expiredRequestMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// newJoinRequestCleanTask creates the scheduled task that auto-declines
// pending join requests from fresh accounts (platform ids at or above the
// configured threshold) in the watched chat.
func newJoinRequestCleanTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "join_request_clean")

	return func(ctx context.Context) error {
		watched := deps.Config.Telegram.WatchedChatID
		if watched == 0 {
			log.DebugContext(ctx, "No watched chat configured, skipping")
			return nil
		}

		requests, err := deps.Store.PendingJoinRequests(ctx, watched,
			deps.Config.Telegram.FreshAccountIDThreshold,
			deps.Config.Telegram.JoinRequestBatchLimit)
		if err != nil {
			return fmt.Errorf("failed to load pending join requests: %w", err)
		}
		if len(requests) == 0 {
			return nil
		}

		startTime := time.Now()
		declined := 0
		expired := 0

		for _, req := range requests {
			if ctx.Err() != nil {
				break
			}

			_, err := deps.TGBot.DeclineChatJoinRequest(ctx, &tgbot.DeclineChatJoinRequestParams{
				ChatID: req.ChatID,
				UserID: req.UserID,
			})
			switch {
			case err == nil:
				if markErr := deps.Store.MarkJoinRequests(ctx, []int64{req.ID}, database.JoinRequestDeclined); markErr != nil {
					log.ErrorContext(ctx, "Failed to mark join request declined",
						"request_id", req.ID, "error", markErr)
					continue
				}
				declined++
			case isExpiredRequestError(err):
				if markErr := deps.Store.MarkJoinRequests(ctx, []int64{req.ID}, database.JoinRequestExpired); markErr != nil {
					log.ErrorContext(ctx, "Failed to mark join request expired",
						"request_id", req.ID, "error", markErr)
					continue
				}
				expired++
			default:
				log.ErrorContext(ctx, "Failed to decline join request",
					"chat_id", req.ChatID, "user_id", req.UserID, "error", err)
			}
		}

		log.InfoContext(ctx, "Join request cleanup finished",
			"processed", len(requests), "declined", declined, "expired", expired,
			"duration", time.Since(startTime))
		return nil
	}
}

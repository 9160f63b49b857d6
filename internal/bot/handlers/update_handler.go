// Package handlers contains the Telegram update handlers that feed the
// collector: message and edit ingestion plus join-request recording.
package handlers

import (
	"context"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/groupscope/internal/collector"
)

// NewUpdateHandler returns the default handler for all incoming updates.
// The bot is a passive observer: every group message and edit is normalized
// and stored, join requests for the watched chat are recorded, and nothing
// is ever replied to.
func NewUpdateHandler(deps HandlerDeps) tgbot.HandlerFunc {
	log := deps.Logger.With("handler", "update")

	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		switch {
		case update.Message != nil:
			handleMessage(ctx, deps, log, update.Message, false)
		case update.EditedMessage != nil:
			handleMessage(ctx, deps, log, update.EditedMessage, true)
		case update.ChatJoinRequest != nil:
			handleJoinRequest(ctx, deps, log, update.ChatJoinRequest)
		}
	}
}

func handleMessage(ctx context.Context, deps HandlerDeps, log *slog.Logger, msg *models.Message, edited bool) {
	obs, err := collector.Normalize(msg, edited)
	if err != nil {
		log.ErrorContext(ctx, "Failed to normalize message",
			"chat_id", msg.Chat.ID, "message_id", msg.ID, "error", err)
		return
	}
	if obs == nil {
		log.DebugContext(ctx, "Ignoring message outside collection scope",
			"chat_id", msg.Chat.ID, "chat_type", msg.Chat.Type)
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, deps.Config.Database.OperationTimeout)
	defer cancel()

	if err := deps.Store.SaveObservation(opCtx, obs); err != nil {
		log.ErrorContext(ctx, "Failed to save observation",
			"chat_id", obs.Message.ChatID, "message_id", obs.Message.MessageID, "error", err)
	}
}

func handleJoinRequest(ctx context.Context, deps HandlerDeps, log *slog.Logger, req *models.ChatJoinRequest) {
	watched := deps.Config.Telegram.WatchedChatID
	if watched == 0 || req.Chat.ID != watched {
		log.DebugContext(ctx, "Ignoring join request for unwatched chat", "chat_id", req.Chat.ID)
		return
	}

	chat, user, jr := collector.NormalizeJoinRequest(req)

	opCtx, cancel := context.WithTimeout(ctx, deps.Config.Database.OperationTimeout)
	defer cancel()

	if err := deps.Store.SaveJoinRequest(opCtx, &chat, &user, &jr); err != nil {
		log.ErrorContext(ctx, "Failed to save join request",
			"chat_id", jr.ChatID, "user_id", jr.UserID, "error", err)
		return
	}

	log.InfoContext(ctx, "Join request recorded", "chat_id", jr.ChatID, "user_id", jr.UserID)
}

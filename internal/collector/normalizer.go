// Package collector turns raw Telegram updates into normalized observations
// ready for storage. Normalization is pure: no I/O, no clock reads.
package collector

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/groupscope/internal/database"
)

// kindRules classifies a message by its dominant content field. Order
// matters: the first matching rule wins, so a photo with a caption is still
// a photo and a text message is never anything else.
var kindRules = []struct {
	kind  database.MessageKind
	match func(*models.Message) bool
}{
	{database.KindText, func(m *models.Message) bool { return m.Text != "" }},
	{database.KindPhoto, func(m *models.Message) bool { return len(m.Photo) > 0 }},
	{database.KindVideo, func(m *models.Message) bool { return m.Video != nil }},
	{database.KindDocument, func(m *models.Message) bool { return m.Document != nil }},
	{database.KindSticker, func(m *models.Message) bool { return m.Sticker != nil }},
	{database.KindVoice, func(m *models.Message) bool { return m.Voice != nil }},
}

// Normalize converts a Telegram message into a storable observation.
// It returns nil (and no error) for messages the collector ignores:
// private and channel chats, and messages without an identifiable sender
// (anonymous admins, channel reposts).
func Normalize(msg *models.Message, edited bool) (*database.Observation, error) {
	if msg == nil {
		return nil, fmt.Errorf("cannot normalize nil message")
	}
	if msg.Chat.Type != "group" && msg.Chat.Type != "supergroup" {
		return nil, nil
	}
	if msg.From == nil || msg.From.ID == 0 {
		return nil, nil
	}

	obs := &database.Observation{
		Chat:   normalizeChat(&msg.Chat),
		User:   normalizeUser(msg.From),
		Edited: edited,
	}

	m := database.Message{
		MessageID: int64(msg.ID),
		ChatID:    msg.Chat.ID,
		UserID:    sql.NullInt64{Int64: msg.From.ID, Valid: true},
		Kind:      classify(msg),
		Text:      nullString(msg.Text),
		Caption:   nullString(msg.Caption),
		SentAt:    time.Unix(int64(msg.Date), 0).UTC(),
	}

	if msg.ReplyToMessage != nil {
		m.ReplyToMessageID = sql.NullInt64{Int64: int64(msg.ReplyToMessage.ID), Valid: true}
	}
	if id, ok := forwardSourceChat(msg.ForwardOrigin); ok {
		m.ForwardFromChatID = sql.NullInt64{Int64: id, Valid: true}
	}
	if edited && msg.EditDate > 0 {
		m.EditedAt = sql.NullTime{Time: time.Unix(int64(msg.EditDate), 0).UTC(), Valid: true}
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw message: %w", err)
	}
	m.RawUpdate = raw

	obs.Message = m
	return obs, nil
}

// NormalizeJoinRequest converts a chat join request into the chat, user, and
// request rows to persist.
func NormalizeJoinRequest(req *models.ChatJoinRequest) (database.Chat, database.User, database.JoinRequest) {
	jr := database.JoinRequest{
		UserID:      req.From.ID,
		ChatID:      req.Chat.ID,
		Username:    nullString(req.From.Username),
		FirstName:   nullString(req.From.FirstName),
		Bio:         nullString(req.Bio),
		RequestDate: time.Unix(int64(req.Date), 0).UTC(),
		Status:      database.JoinRequestPending,
	}
	return normalizeChat(&req.Chat), normalizeUser(&req.From), jr
}

func classify(msg *models.Message) database.MessageKind {
	for _, rule := range kindRules {
		if rule.match(msg) {
			return rule.kind
		}
	}
	return database.KindOther
}

func normalizeChat(chat *models.Chat) database.Chat {
	return database.Chat{
		ID:       chat.ID,
		Kind:     string(chat.Type),
		Title:    nullString(chat.Title),
		Username: nullString(chat.Username),
	}
}

func normalizeUser(user *models.User) database.User {
	return database.User{
		ID:           user.ID,
		IsBot:        user.IsBot,
		FirstName:    nullString(user.FirstName),
		LastName:     nullString(user.LastName),
		Username:     nullString(user.Username),
		LanguageCode: nullString(user.LanguageCode),
		IsPremium:    user.IsPremium,
	}
}

// forwardSourceChat extracts the source chat id of a forwarded message, for
// the origin variants that carry one.
func forwardSourceChat(origin *models.MessageOrigin) (int64, bool) {
	if origin == nil {
		return 0, false
	}
	switch origin.Type {
	case models.MessageOriginTypeChat:
		if origin.MessageOriginChat != nil {
			return origin.MessageOriginChat.SenderChat.ID, true
		}
	case models.MessageOriginTypeChannel:
		if origin.MessageOriginChannel != nil {
			return origin.MessageOriginChannel.Chat.ID, true
		}
	}
	return 0, false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package database

import (
	"database/sql"
	"time"
)

// MessageKind classifies a message by its dominant content field.
type MessageKind string

// Message kinds, in classification precedence order.
const (
	KindText     MessageKind = "text"
	KindPhoto    MessageKind = "photo"
	KindVideo    MessageKind = "video"
	KindDocument MessageKind = "document"
	KindSticker  MessageKind = "sticker"
	KindVoice    MessageKind = "voice"
	KindOther    MessageKind = "other"
)

// Join request lifecycle states.
const (
	JoinRequestPending  = "pending"
	JoinRequestDeclined = "declined"
	JoinRequestExpired  = "expired"
)

// Chat represents a Telegram group chat observed by the collector.
// The id is assigned by the platform and may be negative for groups.
type Chat struct {
	ID            int64          `db:"id"`
	Kind          string         `db:"kind"`
	Title         sql.NullString `db:"title"`
	Username      sql.NullString `db:"username"`
	FirstSeenAt   time.Time      `db:"first_seen_at"`
	LastUpdatedAt time.Time      `db:"last_updated_at"`
}

// User represents a Telegram user observed by the collector. Mutable
// attributes (names, username, language, premium flag) are overwritten on
// each observation; they are never versioned.
type User struct {
	ID            int64          `db:"id"`
	IsBot         bool           `db:"is_bot"`
	FirstName     sql.NullString `db:"first_name"`
	LastName      sql.NullString `db:"last_name"`
	Username      sql.NullString `db:"username"`
	LanguageCode  sql.NullString `db:"language_code"`
	IsPremium     bool           `db:"is_premium"`
	FirstSeenAt   time.Time      `db:"first_seen_at"`
	LastUpdatedAt time.Time      `db:"last_updated_at"`
}

// Message represents one message in a group chat, identified by the
// (chat_id, message_id) pair; message ids are only unique within a chat.
// The user reference is weak: deleting the user nulls it, deleting the chat
// cascades to the message.
type Message struct {
	MessageID         int64          `db:"message_id"`
	ChatID            int64          `db:"chat_id"`
	UserID            sql.NullInt64  `db:"user_id"`
	Kind              MessageKind    `db:"kind"`
	Text              sql.NullString `db:"text"`
	Caption           sql.NullString `db:"caption"`
	ReplyToMessageID  sql.NullInt64  `db:"reply_to_message_id"`
	ForwardFromChatID sql.NullInt64  `db:"forward_from_chat_id"`
	SentAt            time.Time      `db:"sent_at"`
	EditedAt          sql.NullTime   `db:"edited_at"`
	RawUpdate         []byte         `db:"raw_update"`
}

// Observation is one normalized ingest event: the message together with the
// chat and user states observed alongside it. Edited marks the event as an
// edit of an existing message rather than a fresh delivery.
type Observation struct {
	Chat    Chat
	User    User
	Message Message
	Edited  bool
}

// JoinRequest is a pending request to join the watched chat, keyed by
// (user_id, chat_id).
type JoinRequest struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	ChatID      int64          `db:"chat_id"`
	Username    sql.NullString `db:"username"`
	FirstName   sql.NullString `db:"first_name"`
	Bio         sql.NullString `db:"bio"`
	RequestDate time.Time      `db:"request_date"`
	Status      string         `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
}

// Contributor is one entry in a chat's top-contributor ranking.
type Contributor struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Count  int64  `json:"count"`
}

// LastMessage is the most recent text message of a chat.
type LastMessage struct {
	Text   string    `json:"text"`
	Author string    `json:"author"`
	SentAt time.Time `json:"sent_at"`
}

// ChatSummary is one dashboard row: per-chat aggregate counts with the last
// text message and the top weekly contributors folded in.
type ChatSummary struct {
	ChatID          int64         `json:"id"`
	Title           string        `json:"title"`
	TotalMessages   int64         `json:"total_messages"`
	TodayMessages   int64         `json:"today_messages"`
	LastMessage     *LastMessage  `json:"last_message,omitempty"`
	TopContributors []Contributor `json:"top_contributors"`
}

// DigestMessage is a text message prepared for digest generation.
type DigestMessage struct {
	Text   string    `db:"text"`
	Author string    `db:"author"`
	SentAt time.Time `db:"sent_at"`
}

// DailyCount is the number of messages sent on one calendar day.
type DailyCount struct {
	Date  string `db:"day"   json:"date"`
	Count int64  `db:"count" json:"count"`
}

// Stats holds collector-wide totals.
type Stats struct {
	TotalChats     int64                 `json:"total_chats"`
	TotalUsers     int64                 `json:"total_users"`
	TotalMessages  int64                 `json:"total_messages"`
	MessagesToday  int64                 `json:"messages_today"`
	MessagesByKind map[MessageKind]int64 `json:"messages_by_kind"`
}

// ChatStats is one row of the chat listing: chat attributes plus message and
// distinct-sender counts.
type ChatStats struct {
	ID             int64          `db:"id"              json:"id"`
	Kind           string         `db:"kind"            json:"kind"`
	Title          sql.NullString `db:"title"           json:"-"`
	Username       sql.NullString `db:"username"        json:"-"`
	MessageCount   int64          `db:"message_count"   json:"message_count"`
	UserCount      int64          `db:"user_count"      json:"user_count"`
	LastMessageRaw sql.NullString `db:"last_message_at" json:"-"`
	LastMessageAt  *time.Time     `json:"last_message_at,omitempty"`
	FirstSeenAt    time.Time      `db:"first_seen_at"   json:"first_seen_at"`
}

// StoredMessage is one message of the chat history listing, with the author
// resolved for display.
type StoredMessage struct {
	MessageID        int64          `db:"message_id"          json:"message_id"`
	Kind             MessageKind    `db:"kind"                json:"kind"`
	Text             sql.NullString `db:"text"                json:"-"`
	Caption          sql.NullString `db:"caption"             json:"-"`
	SentAt           time.Time      `db:"sent_at"             json:"sent_at"`
	EditedAt         sql.NullTime   `db:"edited_at"           json:"-"`
	ReplyToMessageID sql.NullInt64  `db:"reply_to_message_id" json:"-"`
	UserID           sql.NullInt64  `db:"user_id"             json:"-"`
	AuthorName       sql.NullString `db:"author_name"         json:"-"`
}

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveObservation persists one normalized ingest event: chat, user, and
	// message upserts in a single transaction. Calling it twice with
	// identical input is a no-op after the first call.
	SaveObservation(ctx context.Context, obs *Observation) error

	// ChatByID retrieves a chat by ID. Returns nil, nil if not found.
	ChatByID(ctx context.Context, chatID int64) (*Chat, error)

	// Dashboard computes per-chat activity summaries for all known chats,
	// ordered by total message count descending, in a bounded number of
	// query round-trips regardless of chat count.
	Dashboard(ctx context.Context) ([]ChatSummary, error)

	// MessagesForDigest retrieves text messages for a chat sent at or after
	// 'since', oldest first, capped at 'limit'.
	MessagesForDigest(ctx context.Context, chatID int64, since time.Time, limit int) ([]DigestMessage, error)

	// DailyMessageCounts returns per-day message counts for a chat since the
	// given time, ordered by day ascending. Days without messages are absent.
	DailyMessageCounts(ctx context.Context, chatID int64, since time.Time) ([]DailyCount, error)

	// Stats returns collector-wide totals.
	Stats(ctx context.Context) (*Stats, error)

	// ChatsWithStats lists all chats with message and distinct-sender counts,
	// ordered by message count descending.
	ChatsWithStats(ctx context.Context) ([]ChatStats, error)

	// ChatMessages retrieves a page of a chat's message history, newest
	// first, optionally filtered by message kind.
	ChatMessages(ctx context.Context, chatID int64, kind MessageKind, limit, offset int) ([]StoredMessage, error)

	// SaveJoinRequest upserts a join request by (user_id, chat_id), together
	// with the chat and user rows its foreign keys depend on.
	SaveJoinRequest(ctx context.Context, chat *Chat, user *User, req *JoinRequest) error

	// PendingJoinRequests returns pending join requests for a chat from
	// accounts with id >= minUserID, oldest first.
	PendingJoinRequests(ctx context.Context, chatID, minUserID int64, limit int) ([]JoinRequest, error)

	// MarkJoinRequests updates the status of the given join requests.
	MarkJoinRequests(ctx context.Context, ids []int64, status string) error

	// DeleteUser removes a user; messages referencing it keep a null author.
	// Administrative operation, never called by the ingest path.
	DeleteUser(ctx context.Context, userID int64) error

	// DeleteChat removes a chat and, by cascade, all its messages.
	// Administrative operation, never called by the ingest path.
	DeleteChat(ctx context.Context, chatID int64) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveObservation persists one ingest event atomically. The chat and user
// rows are written before the message row so a concurrent reader never
// observes a message with unsatisfied foreign keys.
func (s *sqlxStore) SaveObservation(ctx context.Context, obs *Observation) error {
	if obs == nil {
		return fmt.Errorf("cannot save nil observation")
	}
	if obs.Message.ChatID == 0 {
		return fmt.Errorf("observation must have a non-zero chat_id")
	}
	if obs.Message.MessageID == 0 {
		return fmt.Errorf("observation must have a non-zero message_id")
	}
	if obs.Message.SentAt.IsZero() {
		return fmt.Errorf("observation must have a non-zero sent timestamp")
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for observation",
			"chat_id", obs.Message.ChatID, "message_id", obs.Message.MessageID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	if err := upsertChat(ctx, tx, &obs.Chat, now); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting chat", "chat_id", obs.Chat.ID, "error", err)
		return fmt.Errorf("failed to upsert chat %d: %w", obs.Chat.ID, err)
	}
	if err := upsertUser(ctx, tx, &obs.User, now); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting user", "user_id", obs.User.ID, "error", err)
		return fmt.Errorf("failed to upsert user %d: %w", obs.User.ID, err)
	}
	if err := upsertMessage(ctx, tx, &obs.Message, obs.Edited); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting message",
			"chat_id", obs.Message.ChatID, "message_id", obs.Message.MessageID, "error", err)
		return fmt.Errorf("failed to upsert message (chat %d, message %d): %w",
			obs.Message.ChatID, obs.Message.MessageID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit observation transaction",
			"chat_id", obs.Message.ChatID, "message_id", obs.Message.MessageID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Observation saved successfully",
		"chat_id", obs.Message.ChatID, "message_id", obs.Message.MessageID, "edited", obs.Edited)
	return nil
}

// upsertChat inserts or updates a chat by primary key. Mutable attributes
// (kind, title, username) are overwritten last-write-wins; first_seen_at is
// never overwritten once set.
func upsertChat(ctx context.Context, tx *sqlx.Tx, chat *Chat, now time.Time) error {
	query := `
        INSERT INTO chats (id, kind, title, username, first_seen_at, last_updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            kind = excluded.kind,
            title = excluded.title,
            username = excluded.username,
            last_updated_at = excluded.last_updated_at;
    `
	_, err := tx.ExecContext(ctx, query,
		chat.ID, chat.Kind, chat.Title, chat.Username, now, now)
	return err
}

// upsertUser inserts or updates a user by primary key, same last-write-wins
// policy as upsertChat.
func upsertUser(ctx context.Context, tx *sqlx.Tx, user *User, now time.Time) error {
	query := `
        INSERT INTO users (id, is_bot, first_name, last_name, username, language_code, is_premium,
                           first_seen_at, last_updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            username = excluded.username,
            language_code = excluded.language_code,
            is_premium = excluded.is_premium,
            last_updated_at = excluded.last_updated_at;
    `
	_, err := tx.ExecContext(ctx, query,
		user.ID, user.IsBot, user.FirstName, user.LastName, user.Username,
		user.LanguageCode, user.IsPremium, now, now)
	return err
}

// upsertMessage inserts or updates a message by its composite primary key.
// A conflicting non-edit delivery only overwrites text and caption; an edit
// additionally sets edited_at and replaces the raw payload. The original
// sent_at always survives a conflict.
func upsertMessage(ctx context.Context, tx *sqlx.Tx, msg *Message, edited bool) error {
	query := `
        INSERT INTO messages (message_id, chat_id, user_id, kind, text, caption,
                              reply_to_message_id, forward_from_chat_id, sent_at, edited_at, raw_update)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (chat_id, message_id) DO UPDATE SET
            text = excluded.text,
            caption = excluded.caption;
    `
	if edited {
		query = `
        INSERT INTO messages (message_id, chat_id, user_id, kind, text, caption,
                              reply_to_message_id, forward_from_chat_id, sent_at, edited_at, raw_update)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (chat_id, message_id) DO UPDATE SET
            text = excluded.text,
            caption = excluded.caption,
            edited_at = excluded.edited_at,
            raw_update = excluded.raw_update;
    `
	}

	editedAt := msg.EditedAt
	if editedAt.Valid {
		editedAt.Time = editedAt.Time.UTC()
	}

	_, err := tx.ExecContext(ctx, query,
		msg.MessageID, msg.ChatID, msg.UserID, msg.Kind, msg.Text, msg.Caption,
		msg.ReplyToMessageID, msg.ForwardFromChatID, msg.SentAt.UTC(), editedAt, msg.RawUpdate)
	return err
}

// ChatByID retrieves a chat by ID. Returns nil, nil if not found.
func (s *sqlxStore) ChatByID(ctx context.Context, chatID int64) (*Chat, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}

	var chat Chat
	query := `SELECT id, kind, title, username, first_seen_at, last_updated_at
	          FROM chats WHERE id = ?`

	err := s.db.GetContext(ctx, &chat, query, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No chat found", "chat_id", chatID)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting chat by ID", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get chat %d: %w", chatID, err)
	}

	return &chat, nil
}

// dashboardQuery computes every chat's summary in a single statement: a
// grouped scan for the counts, a correlated top-1 lookup for the last text
// message, and a correlated grouped/ordered/limited lookup for the weekly
// top contributors, both folded in as JSON.
const dashboardQuery = `
WITH stats AS (
    SELECT
        c.id,
        c.title,
        COUNT(m.message_id) AS total_messages,
        COALESCE(SUM(CASE WHEN m.sent_at >= ? THEN 1 ELSE 0 END), 0) AS today_messages
    FROM chats c
    LEFT JOIN messages m ON m.chat_id = c.id
    GROUP BY c.id, c.title
)
SELECT
    s.id,
    s.title,
    s.total_messages,
    s.today_messages,
    (
        SELECT json_object(
            'text', m.text,
            'author', COALESCE(u.username, u.first_name, 'Unknown'),
            'sent_at', m.sent_at
        )
        FROM messages m
        LEFT JOIN users u ON u.id = m.user_id
        WHERE m.chat_id = s.id AND m.text IS NOT NULL
        ORDER BY m.sent_at DESC, m.message_id DESC
        LIMIT 1
    ) AS last_message,
    COALESCE((
        SELECT json_group_array(json_object('user_id', t.user_id, 'name', t.name, 'count', t.cnt))
        FROM (
            SELECT
                u.id AS user_id,
                COALESCE(u.username, u.first_name, 'Unknown') AS name,
                COUNT(*) AS cnt
            FROM messages m
            JOIN users u ON u.id = m.user_id
            WHERE m.chat_id = s.id AND m.sent_at >= ?
            GROUP BY u.id, u.username, u.first_name
            ORDER BY cnt DESC, u.id ASC
            LIMIT 3
        ) t
    ), '[]') AS top_contributors
FROM stats s
ORDER BY s.total_messages DESC, s.id ASC;
`

type dashboardRow struct {
	ID              int64          `db:"id"`
	Title           sql.NullString `db:"title"`
	TotalMessages   int64          `db:"total_messages"`
	TodayMessages   int64          `db:"today_messages"`
	LastMessage     sql.NullString `db:"last_message"`
	TopContributors string         `db:"top_contributors"`
}

// Dashboard computes per-chat activity summaries for all known chats.
func (s *sqlxStore) Dashboard(ctx context.Context) ([]ChatSummary, error) {
	return s.dashboardAt(ctx, time.Now())
}

func (s *sqlxStore) dashboardAt(ctx context.Context, now time.Time) ([]ChatSummary, error) {
	today := startOfDay(now).UTC()
	weekAgo := now.Add(-7 * 24 * time.Hour).UTC()

	var rows []dashboardRow
	if err := s.db.SelectContext(ctx, &rows, dashboardQuery, today, weekAgo); err != nil {
		s.logger.ErrorContext(ctx, "Error computing dashboard", "error", err)
		return nil, fmt.Errorf("failed to compute dashboard: %w", err)
	}

	summaries := make([]ChatSummary, 0, len(rows))
	for _, row := range rows {
		summary := ChatSummary{
			ChatID:          row.ID,
			Title:           chatTitle(row.Title, row.ID),
			TotalMessages:   row.TotalMessages,
			TodayMessages:   row.TodayMessages,
			TopContributors: []Contributor{},
		}

		if row.LastMessage.Valid {
			last, err := decodeLastMessage(row.LastMessage.String)
			if err != nil {
				s.logger.ErrorContext(ctx, "Error decoding last message", "chat_id", row.ID, "error", err)
				return nil, fmt.Errorf("failed to decode last message for chat %d: %w", row.ID, err)
			}
			summary.LastMessage = last
		}

		if err := json.Unmarshal([]byte(row.TopContributors), &summary.TopContributors); err != nil {
			s.logger.ErrorContext(ctx, "Error decoding top contributors", "chat_id", row.ID, "error", err)
			return nil, fmt.Errorf("failed to decode top contributors for chat %d: %w", row.ID, err)
		}
		// Explicit, stable ordering: count descending, user id ascending.
		sort.Slice(summary.TopContributors, func(i, j int) bool {
			a, b := summary.TopContributors[i], summary.TopContributors[j]
			if a.Count != b.Count {
				return a.Count > b.Count
			}
			return a.UserID < b.UserID
		})

		summaries = append(summaries, summary)
	}

	s.logger.DebugContext(ctx, "Computed dashboard", "chats", len(summaries))
	return summaries, nil
}

func decodeLastMessage(raw string) (*LastMessage, error) {
	var decoded struct {
		Text   string `json:"text"`
		Author string `json:"author"`
		SentAt string `json:"sent_at"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}

	sentAt, err := parseDBTime(decoded.SentAt)
	if err != nil {
		return nil, err
	}
	return &LastMessage{Text: decoded.Text, Author: decoded.Author, SentAt: sentAt}, nil
}

// MessagesForDigest retrieves text messages for a chat sent at or after
// 'since', oldest first. When the cap is reached the earliest messages in
// the window are the ones included.
func (s *sqlxStore) MessagesForDigest(ctx context.Context, chatID int64, since time.Time, limit int) ([]DigestMessage, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	var messages []DigestMessage
	query := `
        SELECT m.text, COALESCE(u.username, u.first_name, 'Unknown') AS author, m.sent_at
        FROM messages m
        LEFT JOIN users u ON u.id = m.user_id
        WHERE m.chat_id = ? AND m.sent_at >= ? AND m.text IS NOT NULL
        ORDER BY m.sent_at ASC, m.message_id ASC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &messages, query, chatID, since.UTC(), limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting digest messages", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get digest messages for chat %d: %w", chatID, err)
	}

	s.logger.DebugContext(ctx, "Fetched digest messages", "chat_id", chatID, "count", len(messages))
	return messages, nil
}

// DailyMessageCounts returns per-day message counts for a chat since the
// given time, ordered by day ascending.
func (s *sqlxStore) DailyMessageCounts(ctx context.Context, chatID int64, since time.Time) ([]DailyCount, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}

	var counts []DailyCount
	query := `
        SELECT date(m.sent_at) AS day, COUNT(*) AS count
        FROM messages m
        WHERE m.chat_id = ? AND m.sent_at >= ?
        GROUP BY day
        ORDER BY day ASC;
    `

	err := s.db.SelectContext(ctx, &counts, query, chatID, since.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting daily message counts", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get daily counts for chat %d: %w", chatID, err)
	}

	return counts, nil
}

// Stats returns collector-wide totals.
func (s *sqlxStore) Stats(ctx context.Context) (*Stats, error) {
	return s.statsAt(ctx, time.Now())
}

func (s *sqlxStore) statsAt(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{MessagesByKind: make(map[MessageKind]int64)}

	totalsQuery := `
        SELECT
            (SELECT COUNT(*) FROM chats) AS total_chats,
            (SELECT COUNT(*) FROM users) AS total_users,
            (SELECT COUNT(*) FROM messages) AS total_messages,
            (SELECT COUNT(*) FROM messages WHERE sent_at >= ?) AS messages_today;
    `
	row := s.db.QueryRowxContext(ctx, totalsQuery, startOfDay(now).UTC())
	if err := row.Scan(&stats.TotalChats, &stats.TotalUsers, &stats.TotalMessages, &stats.MessagesToday); err != nil {
		s.logger.ErrorContext(ctx, "Error getting stats totals", "error", err)
		return nil, fmt.Errorf("failed to get stats totals: %w", err)
	}

	kindRows, err := s.db.QueryxContext(ctx, `SELECT kind, COUNT(*) FROM messages GROUP BY kind`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting per-kind counts", "error", err)
		return nil, fmt.Errorf("failed to get per-kind counts: %w", err)
	}
	defer kindRows.Close() //nolint:errcheck

	for kindRows.Next() {
		var kind MessageKind
		var count int64
		if err := kindRows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan per-kind count: %w", err)
		}
		stats.MessagesByKind[kind] = count
	}
	if err := kindRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate per-kind counts: %w", err)
	}

	return stats, nil
}

// ChatsWithStats lists all chats with message and distinct-sender counts.
func (s *sqlxStore) ChatsWithStats(ctx context.Context) ([]ChatStats, error) {
	var chats []ChatStats
	query := `
        SELECT
            c.id,
            c.kind,
            c.title,
            c.username,
            COUNT(m.message_id) AS message_count,
            COUNT(DISTINCT m.user_id) AS user_count,
            MAX(m.sent_at) AS last_message_at,
            c.first_seen_at
        FROM chats c
        LEFT JOIN messages m ON m.chat_id = c.id
        GROUP BY c.id, c.kind, c.title, c.username, c.first_seen_at
        ORDER BY message_count DESC, c.id ASC;
    `

	if err := s.db.SelectContext(ctx, &chats, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing chats with stats", "error", err)
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	// MAX() strips the column's declared type, so the timestamp comes back
	// as text and is parsed here.
	for i := range chats {
		if !chats[i].LastMessageRaw.Valid {
			continue
		}
		t, err := parseDBTime(chats[i].LastMessageRaw.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last message time for chat %d: %w", chats[i].ID, err)
		}
		chats[i].LastMessageAt = &t
	}

	return chats, nil
}

// ChatMessages retrieves a page of a chat's message history, newest first.
func (s *sqlxStore) ChatMessages(ctx context.Context, chatID int64, kind MessageKind, limit, offset int) ([]StoredMessage, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}
	if limit <= 0 {
		limit = 100
	} else if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	query := `
        SELECT
            m.message_id,
            m.kind,
            m.text,
            m.caption,
            m.sent_at,
            m.edited_at,
            m.reply_to_message_id,
            m.user_id,
            COALESCE(u.username, u.first_name) AS author_name
        FROM messages m
        LEFT JOIN users u ON u.id = m.user_id
        WHERE m.chat_id = ?
    `
	args := []any{chatID}

	if kind != "" {
		query += " AND m.kind = ?"
		args = append(args, kind)
	}

	query += " ORDER BY m.sent_at DESC, m.message_id DESC LIMIT ? OFFSET ?;"
	args = append(args, limit, offset)

	var messages []StoredMessage
	if err := s.db.SelectContext(ctx, &messages, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error getting chat messages", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get messages for chat %d: %w", chatID, err)
	}

	return messages, nil
}

// SaveJoinRequest upserts a join request by (user_id, chat_id) in one
// transaction with the chat and user rows its foreign keys depend on.
// A repeated request resets the status to pending.
func (s *sqlxStore) SaveJoinRequest(ctx context.Context, chat *Chat, user *User, req *JoinRequest) error {
	if req == nil {
		return fmt.Errorf("cannot save nil join request")
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for join request",
			"chat_id", req.ChatID, "user_id", req.UserID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	if chat != nil {
		if err := upsertChat(ctx, tx, chat, now); err != nil {
			return fmt.Errorf("failed to upsert chat %d: %w", chat.ID, err)
		}
	}
	if user != nil {
		if err := upsertUser(ctx, tx, user, now); err != nil {
			return fmt.Errorf("failed to upsert user %d: %w", user.ID, err)
		}
	}

	query := `
        INSERT INTO join_requests (user_id, chat_id, username, first_name, bio, request_date, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)
        ON CONFLICT (user_id, chat_id) DO UPDATE SET
            username = excluded.username,
            first_name = excluded.first_name,
            bio = excluded.bio,
            request_date = excluded.request_date,
            status = 'pending';
    `
	_, err = tx.ExecContext(ctx, query,
		req.UserID, req.ChatID, req.Username, req.FirstName, req.Bio, req.RequestDate.UTC(), now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error upserting join request",
			"chat_id", req.ChatID, "user_id", req.UserID, "error", err)
		return fmt.Errorf("failed to upsert join request (chat %d, user %d): %w", req.ChatID, req.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Join request saved", "chat_id", req.ChatID, "user_id", req.UserID)
	return nil
}

// PendingJoinRequests returns pending join requests for a chat from accounts
// with id >= minUserID, oldest first.
func (s *sqlxStore) PendingJoinRequests(ctx context.Context, chatID, minUserID int64, limit int) ([]JoinRequest, error) {
	if limit <= 0 {
		limit = 100
	}

	var requests []JoinRequest
	query := `
        SELECT id, user_id, chat_id, username, first_name, bio, request_date, status, created_at
        FROM join_requests
        WHERE chat_id = ? AND status = 'pending' AND user_id >= ?
        ORDER BY request_date ASC
        LIMIT ?;
    `

	if err := s.db.SelectContext(ctx, &requests, query, chatID, minUserID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting pending join requests", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get pending join requests for chat %d: %w", chatID, err)
	}

	return requests, nil
}

// MarkJoinRequests updates the status of the given join requests.
func (s *sqlxStore) MarkJoinRequests(ctx context.Context, ids []int64, status string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`UPDATE join_requests SET status = ? WHERE id IN (?)`, status, ids)
	if err != nil {
		return fmt.Errorf("failed to build query for marking join requests: %w", err)
	}
	query = s.db.Rebind(query)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error marking join requests", "status", status, "error", err)
		return fmt.Errorf("failed to mark join requests as %q: %w", status, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && int(affected) != len(ids) {
		s.logger.WarnContext(ctx, "Not all join requests were updated",
			"requested", len(ids), "affected", affected)
	}

	return nil
}

// DeleteUser removes a user row. Messages authored by the user survive with
// a null author reference (ON DELETE SET NULL).
func (s *sqlxStore) DeleteUser(ctx context.Context, userID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting user", "user_id", userID, "error", err)
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}

	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Deleted user", "user_id", userID, "rows", count)
	return nil
}

// DeleteChat removes a chat row and, by cascade, all its messages.
func (s *sqlxStore) DeleteChat(ctx context.Context, chatID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting chat", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to delete chat %d: %w", chatID, err)
	}

	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Deleted chat", "chat_id", chatID, "rows", count)
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}

// startOfDay truncates a time to the start of its calendar day in the
// process's local zone (the store's day boundary).
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// chatTitle resolves a display title for a chat, falling back to a
// synthetic one for untitled chats.
func chatTitle(title sql.NullString, chatID int64) string {
	if title.Valid && title.String != "" {
		return title.String
	}
	return fmt.Sprintf("Chat %d", chatID)
}

// dbTimeLayouts covers the textual timestamp formats the driver may produce
// for values read back through SQL expressions rather than typed columns.
var dbTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseDBTime(s string) (time.Time, error) {
	for _, layout := range dbTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

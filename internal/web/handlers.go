package web

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/edgard/groupscope/internal/database"
)

// lastMessagePreviewLimit caps the dashboard's last-message preview, in runes.
const lastMessagePreviewLimit = 100

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func chatIDFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("chat_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("Health check failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": timestamp,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": timestamp,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("Stats query failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

type chatView struct {
	ID            int64      `json:"id"`
	Kind          string     `json:"kind"`
	Title         *string    `json:"title"`
	Username      *string    `json:"username"`
	MessageCount  int64      `json:"message_count"`
	UserCount     int64      `json:"user_count"`
	LastMessageAt *time.Time `json:"last_message_at"`
	FirstSeenAt   time.Time  `json:"first_seen_at"`
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.store.ChatsWithStats(r.Context())
	if err != nil {
		s.logger.Error("Chat listing failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load chats")
		return
	}

	views := make([]chatView, 0, len(chats))
	for _, c := range chats {
		views = append(views, chatView{
			ID:            c.ID,
			Kind:          c.Kind,
			Title:         nullableString(c.Title),
			Username:      nullableString(c.Username),
			MessageCount:  c.MessageCount,
			UserCount:     c.UserCount,
			LastMessageAt: c.LastMessageAt,
			FirstSeenAt:   c.FirstSeenAt,
		})
	}

	s.writeJSON(w, http.StatusOK, views)
}

type messageView struct {
	MessageID        int64      `json:"message_id"`
	Kind             string     `json:"kind"`
	Text             *string    `json:"text"`
	Caption          *string    `json:"caption"`
	SentAt           time.Time  `json:"sent_at"`
	EditedAt         *time.Time `json:"edited_at"`
	ReplyToMessageID *int64     `json:"reply_to_message_id"`
	UserID           *int64     `json:"user_id"`
	AuthorName       *string    `json:"author_name"`
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDFromPath(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid chat_id")
		return
	}

	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	kind := database.MessageKind(query.Get("kind"))

	messages, err := s.store.ChatMessages(r.Context(), chatID, kind, limit, offset)
	if err != nil {
		s.logger.Error("Message listing failed", "chat_id", chatID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, messageView{
			MessageID:        m.MessageID,
			Kind:             string(m.Kind),
			Text:             nullableString(m.Text),
			Caption:          nullableString(m.Caption),
			SentAt:           m.SentAt,
			EditedAt:         nullableTime(m.EditedAt),
			ReplyToMessageID: nullableInt64(m.ReplyToMessageID),
			UserID:           nullableInt64(m.UserID),
			AuthorName:       nullableString(m.AuthorName),
		})
	}

	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.Dashboard(r.Context())
	if err != nil {
		s.logger.Error("Dashboard query failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	for i := range summaries {
		if last := summaries[i].LastMessage; last != nil {
			last.Text = truncateRunes(last.Text, lastMessagePreviewLimit)
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"chats": summaries})
}

func (s *Server) handleChatDigest(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDFromPath(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid chat_id")
		return
	}

	result, err := s.digests.Generate(r.Context(), chatID)
	if err != nil {
		s.logger.Error("Digest generation failed", "chat_id", chatID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to generate digest")
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, result)
}

func (s *Server) handleChatActivity(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDFromPath(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid chat_id")
		return
	}

	activity, err := s.digests.WeeklyActivity(r.Context(), chatID)
	if err != nil {
		s.logger.Error("Activity report failed", "chat_id", chatID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build activity report")
		return
	}

	status := http.StatusOK
	if !activity.Success {
		status = http.StatusNotFound
	}
	s.writeJSON(w, status, activity)
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullableTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

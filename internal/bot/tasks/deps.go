// Package tasks implements the collector's scheduled background tasks:
// database maintenance and join-request cleanup.
package tasks

import (
	"log/slog"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/groupscope/internal/config"
	"github.com/edgard/groupscope/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	TGBot  *tgbot.Bot
	Config *config.Config
}

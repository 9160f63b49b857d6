package handlers

import (
	"log/slog"

	"github.com/edgard/groupscope/internal/config"
	"github.com/edgard/groupscope/internal/database"
)

// HandlerDeps provides dependencies for Telegram update handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
}

package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/taskbot/shadbot/internal/config"
	"github.com/taskbot/shadbot/internal/database"
	"github.com/taskbot/shadbot/internal/delivery"
	"github.com/taskbot/shadbot/internal/scanner"
)

// TaskDeliverer sends one task to one chat.
type TaskDeliverer interface {
	Deliver(ctx context.Context, chatID int64, mode delivery.Mode) (delivery.Result, error)
}

// CatalogScanner rebuilds the catalog from disk.
type CatalogScanner interface {
	Scan(ctx context.Context) (scanner.Result, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	Deliverer TaskDeliverer
	Scanner   CatalogScanner
}

// messageSender is the part of *bot.Bot the handlers reply through.
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// reply sends text to chatID and logs a failure.
func reply(ctx context.Context, s messageSender, log *slog.Logger, chatID int64, text string) {
	if text == "" {
		return
	}
	if _, err := s.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
	}
}

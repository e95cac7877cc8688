package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h statsHandler) handle(ctx context.Context, s messageSender, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil {
		log.WarnContext(ctx, "Stats handler received update with nil message", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	stats, err := h.deps.Store.CatalogStats(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to read catalog stats", "error", err)
		reply(ctx, s, log, chatID, h.deps.Config.Messages.GeneralError)
		return
	}
	reply(ctx, s, log, chatID, fmt.Sprintf(h.deps.Config.Messages.Stats,
		stats.TotalTasks, stats.Years, stats.Variants, stats.Chats))
}

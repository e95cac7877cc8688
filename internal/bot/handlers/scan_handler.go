package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewScanHandler returns a handler for the /scan_tasks command.
func NewScanHandler(deps HandlerDeps) bot.HandlerFunc {
	return scanHandler{deps}.Handle
}

// scanHandler re-runs the catalog scan and reports the result.
type scanHandler struct {
	deps HandlerDeps
}

func (h scanHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h scanHandler) handle(ctx context.Context, s messageSender, update *models.Update) {
	log := h.deps.Logger.With("handler", "scan_tasks")

	if update.Message == nil {
		log.WarnContext(ctx, "Scan handler received update with nil message", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	msgs := h.deps.Config.Messages
	log.InfoContext(ctx, "Admin requested task scan", "chat_id", chatID)

	reply(ctx, s, log, chatID, msgs.ScanStarted)

	res, err := h.deps.Scanner.Scan(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Task scan failed", "error", err, "chat_id", chatID)
		reply(ctx, s, log, chatID, msgs.GeneralError)
		return
	}

	reply(ctx, s, log, chatID, fmt.Sprintf(msgs.ScanFinished,
		res.Discovered, res.Inserted, res.Skipped,
		res.Stats.TotalTasks, res.Stats.Years, res.Stats.Variants))
}

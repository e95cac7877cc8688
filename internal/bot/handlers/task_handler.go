package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/taskbot/shadbot/internal/delivery"
)

// NewTaskHandler returns a handler for the /task command.
func NewTaskHandler(deps HandlerDeps) bot.HandlerFunc {
	return taskHandler{deps}.Handle
}

// taskHandler delivers a task immediately, ignoring the chat's schedule.
type taskHandler struct {
	deps HandlerDeps
}

func (h taskHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h taskHandler) handle(ctx context.Context, s messageSender, update *models.Update) {
	log := h.deps.Logger.With("handler", "task")

	if update.Message == nil {
		log.WarnContext(ctx, "Task handler received update with nil message", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /task command", "chat_id", chatID)

	_, err := h.deps.Deliverer.Deliver(ctx, chatID, delivery.ModeManual)
	if err == nil {
		return
	}
	// The deliverer already notified the chat about transport failures.
	if errors.Is(err, delivery.ErrDelivery) {
		return
	}
	log.ErrorContext(ctx, "On-demand delivery failed", "error", err, "chat_id", chatID)
	reply(ctx, s, log, chatID, h.deps.Config.Messages.GeneralError)
}

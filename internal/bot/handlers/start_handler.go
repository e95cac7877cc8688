package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

// startHandler registers the invoking chat for daily delivery.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h startHandler) handle(ctx context.Context, s messageSender, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil {
		log.WarnContext(ctx, "Start handler received update with nil message", "update_id", update.ID)
		return
	}

	chat := update.Message.Chat
	log.InfoContext(ctx, "Handling /start command", "chat_id", chat.ID, "chat_type", chat.Type)

	if err := h.deps.Store.RegisterChat(ctx, chat.ID, string(chat.Type), chatDisplayName(chat)); err != nil {
		log.ErrorContext(ctx, "Failed to register chat", "error", err, "chat_id", chat.ID)
		reply(ctx, s, log, chat.ID, h.deps.Config.Messages.GeneralError)
		return
	}

	sched := h.deps.Config.Scheduler
	reply(ctx, s, log, chat.ID, fmt.Sprintf(h.deps.Config.Messages.Welcome, chat.ID, sched.DailyTime, sched.Timezone))
}

// chatDisplayName picks a human-readable name for the chat row.
func chatDisplayName(chat models.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	if name := strings.TrimSpace(chat.FirstName + " " + chat.LastName); name != "" {
		return name
	}
	if chat.Username != "" {
		return "@" + chat.Username
	}
	return ""
}

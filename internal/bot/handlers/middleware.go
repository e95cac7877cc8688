// Package handlers contains the Telegram command handlers, their
// registration table and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly lets the update through only when the sender is a configured
// administrator. Everyone else gets the "not authorized" reply.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if !checkAdmin(ctx, deps, b, update) {
				return
			}
			next(ctx, b, update)
		}
	}
}

func checkAdmin(ctx context.Context, deps HandlerDeps, s messageSender, update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}

	userID := update.Message.From.ID
	if deps.Config.IsAdmin(userID) {
		return true
	}

	chatID := update.Message.Chat.ID
	log := deps.Logger.With("middleware", "AdminOnly")
	log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)
	reply(ctx, s, log, chatID, deps.Config.Messages.NotAuthorized)
	return false
}

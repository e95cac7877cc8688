// Package delivery sends a selected task to a chat and records the send.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/taskbot/shadbot/internal/config"
	"github.com/taskbot/shadbot/internal/database"
)

// ErrDelivery is returned when the task image could not be sent to a chat.
var ErrDelivery = errors.New("delivery failed")

// Sender is the subset of the Telegram client used for delivery.
// *bot.Bot satisfies it.
type Sender interface {
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Mode marks how a delivery was triggered. It is shown in the caption.
type Mode int

const (
	ModeScheduled Mode = iota
	ModeManual
)

func (m Mode) String() string {
	if m == ModeManual {
		return "manual"
	}
	return "scheduled"
}

// Result describes a completed Deliver call.
type Result struct {
	Task         *database.Task // nil when the catalog is empty
	CatalogEmpty bool
	HistoryReset bool
}

// Deliverer combines task selection, the Telegram upload and history recording.
type Deliverer struct {
	sender   Sender
	store    database.Store
	messages config.MessagesConfig
	logger   *slog.Logger
}

// NewDeliverer creates a Deliverer.
func NewDeliverer(sender Sender, store database.Store, messages config.MessagesConfig, logger *slog.Logger) *Deliverer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Deliverer{
		sender:   sender,
		store:    store,
		messages: messages,
		logger:   logger.With("component", "delivery"),
	}
}

// Deliver picks an unseen task for chatID, uploads it and records the send.
//
// An empty catalog is not an error: the chat gets the "no tasks" notice and
// Result.CatalogEmpty is set. Upload failures trigger a best-effort error
// notice to the chat and return an error wrapping ErrDelivery. Selection and
// history failures return the storage error unchanged.
func (d *Deliverer) Deliver(ctx context.Context, chatID int64, mode Mode) (Result, error) {
	log := d.logger.With("chat_id", chatID, "mode", mode.String())

	sel, err := d.store.SelectUnseenTask(ctx, chatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to select task", "error", err)
		return Result{}, fmt.Errorf("failed to select task for chat %d: %w", chatID, err)
	}

	if sel.Status == database.SelectionCatalogEmpty {
		log.WarnContext(ctx, "Catalog is empty, nothing to deliver")
		if _, err := d.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   d.messages.NoTasks,
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send no-tasks notice", "error", err)
		}
		return Result{CatalogEmpty: true}, nil
	}

	task := sel.Task
	if sel.HistoryReset {
		log.InfoContext(ctx, "Chat has seen every task, history reset")
	}

	if err := d.sendTask(ctx, chatID, task, mode); err != nil {
		log.ErrorContext(ctx, "Failed to send task", "task_id", task.ID, "error", err)
		d.notifyFailure(ctx, chatID)
		return Result{Task: task, HistoryReset: sel.HistoryReset}, fmt.Errorf("%w: chat %d task %d: %w", ErrDelivery, chatID, task.ID, err)
	}

	if err := d.store.RecordSent(ctx, chatID, task.ID); err != nil {
		log.ErrorContext(ctx, "Task sent but history not recorded", "task_id", task.ID, "error", err)
		return Result{Task: task, HistoryReset: sel.HistoryReset}, fmt.Errorf("failed to record sent task %d for chat %d: %w", task.ID, chatID, err)
	}

	log.InfoContext(ctx, "Task delivered",
		"task_id", task.ID,
		"year", task.Year,
		"variant", task.Variant,
		"position", task.Position)
	return Result{Task: task, HistoryReset: sel.HistoryReset}, nil
}

func (d *Deliverer) sendTask(ctx context.Context, chatID int64, task *database.Task, mode Mode) error {
	f, err := os.Open(task.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open task image: %w", err)
	}
	defer f.Close()

	_, err = d.sender.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:    chatID,
		Photo:     &models.InputFileUpload{Filename: filepath.Base(task.FilePath), Data: f},
		Caption:   Caption(d.messages, task, mode),
		ParseMode: models.ParseModeHTML,
	})
	return err
}

func (d *Deliverer) notifyFailure(ctx context.Context, chatID int64) {
	if d.messages.DeliveryFailed == "" {
		return
	}
	if _, err := d.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   d.messages.DeliveryFailed,
	}); err != nil {
		d.logger.WarnContext(ctx, "Failed to send delivery error notice", "chat_id", chatID, "error", err)
	}
}

// Caption renders the HTML photo caption for task.
func Caption(msgs config.MessagesConfig, task *database.Task, mode Mode) string {
	marker := msgs.CaptionDaily
	if mode == ModeManual {
		marker = msgs.CaptionManual
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", html.EscapeString(msgs.CaptionTitle))
	fmt.Fprintf(&sb, "📅 Year: %d\n", task.Year)
	fmt.Fprintf(&sb, "📝 Variant: %d\n", task.Variant)
	fmt.Fprintf(&sb, "🔢 Task: %d\n", task.Position)
	sb.WriteString("\n")
	sb.WriteString(html.EscapeString(marker))
	if task.SolutionURL.Valid && task.SolutionURL.String != "" {
		fmt.Fprintf(&sb, "\n\n<a href=\"%s\">%s</a>",
			html.EscapeString(task.SolutionURL.String),
			html.EscapeString(msgs.CaptionSolution))
	}
	return sb.String()
}

package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskbot/shadbot/internal/config"
	"github.com/taskbot/shadbot/internal/delivery"
)

// AlwaysSendTime is a send_time value that matches every dispatch run.
// It exists for manual testing of the fan-out.
const AlwaysSendTime = "test"

// DispatchReport summarises one fan-out run.
type DispatchReport struct {
	RunID     string
	Due       int // active chats with an enabled schedule
	Matched   int // chats whose send_time matched this run
	Delivered int
	Empty     int // matched chats that got the "no tasks" notice
	Failed    int
}

// newDailyDispatchTask sends one task to every chat whose schedule matches
// the current wall-clock minute.
func newDailyDispatchTask(deps TaskDeps) ScheduledTaskFunc {
	return func(ctx context.Context) error {
		report, err := Dispatch(ctx, deps)
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			return fmt.Errorf("daily dispatch %s: %d of %d chats failed", report.RunID, report.Failed, report.Matched)
		}
		return nil
	}
}

// Dispatch runs the fan-out once. Chats are processed sequentially and a
// failure for one chat never stops the others. Only a failure to list the
// due chats or context cancellation aborts the run.
func Dispatch(ctx context.Context, deps TaskDeps) (DispatchReport, error) {
	report := DispatchReport{RunID: uuid.NewString()}
	log := deps.Logger.With("task", DailyDispatchTask, "run_id", report.RunID)
	startTime := time.Now()

	loc := deps.Config.Scheduler.Location
	if loc == nil {
		loc = time.UTC
	}
	current := deps.now().In(loc).Format(config.ClockLayout)

	chats, err := deps.Store.ListDueChats(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list due chats", "error", err)
		return report, fmt.Errorf("failed to list due chats: %w", err)
	}
	report.Due = len(chats)
	log.InfoContext(ctx, "Starting daily dispatch", "current_time", current, "due_chats", report.Due)

	for _, chat := range chats {
		if err := ctx.Err(); err != nil {
			log.WarnContext(ctx, "Dispatch interrupted", "error", err, "delivered_so_far", report.Delivered)
			return report, err
		}

		if !SendTimeMatches(chat.SendTime, current) {
			log.DebugContext(ctx, "Chat not scheduled for this run", "chat_id", chat.ChatID, "send_time", chat.SendTime)
			continue
		}
		report.Matched++

		res, err := deps.Deliverer.Deliver(ctx, chat.ChatID, delivery.ModeScheduled)
		switch {
		case err != nil:
			report.Failed++
			kind := "storage"
			if errors.Is(err, delivery.ErrDelivery) {
				kind = "transport"
			}
			log.ErrorContext(ctx, "Failed to deliver task to chat", "chat_id", chat.ChatID, "failure", kind, "error", err)
		case res.CatalogEmpty:
			report.Empty++
		default:
			report.Delivered++
		}
	}

	log.InfoContext(ctx, "Daily dispatch finished",
		"due", report.Due,
		"matched", report.Matched,
		"delivered", report.Delivered,
		"empty", report.Empty,
		"failed", report.Failed,
		"duration", time.Since(startTime))
	return report, nil
}

// SendTimeMatches reports whether a chat's send_time selects it for a run
// at the given "HH:MM". The comparison is exact string equality.
func SendTimeMatches(sendTime, current string) bool {
	return sendTime == AlwaysSendTime || sendTime == current
}

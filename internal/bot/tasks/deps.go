// Package tasks implements the scheduled jobs run by the bot scheduler:
// the daily task fan-out and periodic database maintenance.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/taskbot/shadbot/internal/config"
	"github.com/taskbot/shadbot/internal/database"
	"github.com/taskbot/shadbot/internal/delivery"
)

// Deliverer sends one task to one chat. *delivery.Deliverer satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, mode delivery.Mode) (delivery.Result, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger    *slog.Logger
	Store     database.Store
	Deliverer Deliverer
	Config    *config.Config

	// Now defaults to time.Now.
	Now func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

package tasks

import (
	"context"
)

// ScheduledTaskFunc is the signature of every scheduled task. The context is
// cancelled when the scheduler shuts down.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names as used under scheduler.tasks in the configuration.
const (
	DailyDispatchTask  = "daily_dispatch"
	SQLMaintenanceTask = "sql_maintenance"
)

// RegisterAllTasks builds every known scheduled task keyed by its config name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	tasks[DailyDispatchTask] = newDailyDispatchTask(deps)
	tasks[SQLMaintenanceTask] = newSQLMaintenanceTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}

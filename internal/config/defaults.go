package config

import "github.com/spf13/viper"

// Default values for optional configuration.
const (
	DefaultLogLevel        = "info"
	DefaultDBPath          = "shad_bot.db"
	DefaultTasksRoot       = "data/shad"
	DefaultTimezone        = "Europe/Moscow"
	DefaultDailyTime       = "10:00"
	DefaultSendTime        = "10:00"
	DefaultMaintenanceCron = "0 4 * * 0"
)

// DefaultMessages are the stock user-facing texts.
var DefaultMessages = MessagesConfig{
	Welcome: "✅ Bot activated!\nChat ID: %d\n" +
		"Every day at %s (%s) I will send a random exam task.\n" +
		"Use /task to get a task right now.",
	Help: "/start - activate the bot in this chat\n" +
		"/task - get a task right now\n" +
		"/scan_tasks - rescan task images (admin only)\n" +
		"/stats - catalog statistics (admin only)",
	NotAuthorized:   "Admins only.",
	GeneralError:    "❌ Something went wrong. Please try again later.",
	NoTasks:         "No tasks found in the catalog.",
	DeliveryFailed:  "❌ Failed to send the task.",
	ScanStarted:     "Scanning tasks...",
	ScanFinished:    "Tasks loaded.\nFound: %d, new: %d, skipped: %d\nTotal tasks: %d\nYears: %d\nVariants: %d",
	Stats:           "Total tasks: %d\nYears: %d\nVariants: %d\nChats: %d",
	CaptionTitle:    "🎯 Exam task",
	CaptionDaily:    "🔔 Daily delivery",
	CaptionManual:   "🔄 Requested manually",
	CaptionSolution: "Solution",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_ids", []int64{})
	v.SetDefault("telegram.default_chat_id", 0)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("scanner.root_dir", DefaultTasksRoot)
	v.SetDefault("scanner.scan_on_start", true)

	v.SetDefault("scheduler.timezone", DefaultTimezone)
	v.SetDefault("scheduler.daily_time", DefaultDailyTime)
	v.SetDefault("scheduler.default_send_time", DefaultSendTime)
	v.SetDefault("scheduler.tasks.daily_dispatch.enabled", true)
	v.SetDefault("scheduler.tasks.daily_dispatch.schedule", "")
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", false)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", DefaultMaintenanceCron)

	v.SetDefault("http.addr", "")

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.not_authorized", DefaultMessages.NotAuthorized)
	v.SetDefault("messages.general_error", DefaultMessages.GeneralError)
	v.SetDefault("messages.no_tasks", DefaultMessages.NoTasks)
	v.SetDefault("messages.delivery_failed", DefaultMessages.DeliveryFailed)
	v.SetDefault("messages.scan_started", DefaultMessages.ScanStarted)
	v.SetDefault("messages.scan_finished", DefaultMessages.ScanFinished)
	v.SetDefault("messages.stats", DefaultMessages.Stats)
	v.SetDefault("messages.caption_title", DefaultMessages.CaptionTitle)
	v.SetDefault("messages.caption_daily", DefaultMessages.CaptionDaily)
	v.SetDefault("messages.caption_manual", DefaultMessages.CaptionManual)
	v.SetDefault("messages.caption_solution", DefaultMessages.CaptionSolution)
}

// Package main contains the entrypoint for the task delivery bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/taskbot/shadbot/internal/api"
	"github.com/taskbot/shadbot/internal/bot"
	"github.com/taskbot/shadbot/internal/bot/handlers"
	"github.com/taskbot/shadbot/internal/bot/tasks"
	"github.com/taskbot/shadbot/internal/config"
	"github.com/taskbot/shadbot/internal/database"
	"github.com/taskbot/shadbot/internal/delivery"
	"github.com/taskbot/shadbot/internal/logger"
	"github.com/taskbot/shadbot/internal/scanner"
	"github.com/taskbot/shadbot/internal/telegram"
)

const defaultChatName = "Admin"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, blocks until shutdown and returns the process
// exit code. A process manager is expected to restart the bot on 1.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log, cfg.Scheduler.DefaultSendTime)

	taskScanner := scanner.New(store, cfg.Scanner.RootDir, log)
	if cfg.Scanner.ScanOnStart {
		if _, err := taskScanner.Scan(ctx); err != nil {
			// Keep serving the existing catalog.
			log.Warn("Initial task scan failed", "root", cfg.Scanner.RootDir, "error", err)
		}
	}

	if id := cfg.Telegram.DefaultChatID; id != 0 {
		if err := store.RegisterChat(ctx, id, database.ChatTypePrivate, defaultChatName); err != nil {
			log.Error("Failed to register default chat", "chat_id", id, "error", err)
		} else {
			log.Info("Default chat registered", "chat_id", id)
		}
	}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, tgbot.WithMiddlewares(logger.Middleware(log)))
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	deliverer := delivery.NewDeliverer(tg, store, cfg.Messages, log)

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Deliverer: deliverer,
		Scanner:   taskScanner,
	}
	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.SetCommandMenu(ctx, tg, handlers.BotCommands(cmdHandlers)); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	tDeps := tasks.TaskDeps{
		Logger:    log,
		Store:     store,
		Deliverer: deliverer,
		Config:    cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	var httpSrv *api.Server
	if cfg.HTTP.Addr != "" {
		httpSrv = api.NewServer(cfg.HTTP.Addr, store, sched, log)
	}

	app := bot.NewBot(log, tg, sched, httpSrv)

	log.Info("Starting bot...", "timezone", cfg.Scheduler.Timezone, "daily_time", cfg.Scheduler.DailyTime)
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}

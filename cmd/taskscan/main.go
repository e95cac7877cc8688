// Command taskscan rebuilds the task catalog from disk without starting the
// bot and prints a summary.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/taskbot/shadbot/internal/config"
	"github.com/taskbot/shadbot/internal/database"
	"github.com/taskbot/shadbot/internal/logger"
	"github.com/taskbot/shadbot/internal/scanner"
)

// Options are read from flags, falling back to the bot's environment variables.
type Options struct {
	DBPath   string `long:"db" env:"BOT_DATABASE_PATH" default:"shad_bot.db" description:"Path to the SQLite catalog"`
	RootDir  string `long:"root" env:"BOT_SCANNER_ROOT_DIR" default:"data/shad" description:"Task image root directory"`
	Format   string `long:"format" default:"text" choice:"text" choice:"yaml" description:"Summary output format"`
	LogLevel string `long:"log-level" env:"BOT_LOGGER_LEVEL" default:"warn" description:"Log level"`
}

// Summary is the printed scan report.
type Summary struct {
	Root       string                `yaml:"root"`
	Discovered int                   `yaml:"discovered"`
	Inserted   int                   `yaml:"inserted"`
	Skipped    int                   `yaml:"skipped"`
	Catalog    database.CatalogStats `yaml:"catalog"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logger.ParseLevel(opts.LogLevel)}))

	db, err := database.NewDB(opts.DBPath)
	if err != nil {
		log.Error("Failed to open database", "path", opts.DBPath, "error", err)
		return 1
	}
	defer database.CloseDB(db)

	store := database.NewStore(db, log, config.DefaultSendTime)
	res, err := scanner.New(store, opts.RootDir, log).Scan(ctx)
	if err != nil {
		log.Error("Scan failed", "root", opts.RootDir, "error", err)
		return 1
	}

	summary := Summary{
		Root:       opts.RootDir,
		Discovered: res.Discovered,
		Inserted:   res.Inserted,
		Skipped:    res.Skipped,
		Catalog:    res.Stats,
	}
	if err := writeSummary(stdout, opts.Format, summary); err != nil {
		log.Error("Failed to write summary", "error", err)
		return 1
	}
	return 0
}

func writeSummary(w io.Writer, format string, s Summary) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	}

	_, err := fmt.Fprintf(w,
		"root: %s\nfound: %d, new: %d, skipped: %d\ntotal tasks: %d\nyears: %d\nvariants: %d\nchats: %d\n",
		s.Root, s.Discovered, s.Inserted, s.Skipped,
		s.Catalog.TotalTasks, s.Catalog.Years, s.Catalog.Variants, s.Catalog.Chats)
	return err
}

// Package config loads, defaults and validates the bot configuration.
// Values come from an optional YAML file, an optional .env file and
// BOT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfiguration is returned for any failure to load or validate configuration.
var ErrConfiguration = errors.New("configuration error")

// Config is the complete application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds bot credentials and privileged users.
type TelegramConfig struct {
	Token         string  `mapstructure:"token"           validate:"required"`
	AdminUserIDs  []int64 `mapstructure:"admin_user_ids"  validate:"dive,gt=0"`
	DefaultChatID int64   `mapstructure:"default_chat_id"`

	// BotInfo is filled at runtime from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

// DatabaseConfig points at the SQLite catalog file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ScannerConfig describes where task images live.
type ScannerConfig struct {
	RootDir     string `mapstructure:"root_dir"      validate:"required"`
	ScanOnStart bool   `mapstructure:"scan_on_start"`
}

// SchedulerConfig configures the daily trigger and the scheduled task set.
type SchedulerConfig struct {
	Timezone        string                `mapstructure:"timezone"          validate:"required,timezone"`
	DailyTime       string                `mapstructure:"daily_time"        validate:"required,hhmm"`
	DefaultSendTime string                `mapstructure:"default_send_time" validate:"required,hhmm"`
	Tasks           map[string]TaskConfig `mapstructure:"tasks"             validate:"dive"`

	// Location is resolved from Timezone after validation.
	Location *time.Location `mapstructure:"-"`
}

// TaskConfig enables a registered scheduled task. An empty Schedule means
// "once a day at scheduler.daily_time"; otherwise it is a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// HTTPConfig controls the ops HTTP server. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// MessagesConfig holds every user-facing text.
type MessagesConfig struct {
	Welcome         string `mapstructure:"welcome"          validate:"required"`
	Help            string `mapstructure:"help"             validate:"required"`
	NotAuthorized   string `mapstructure:"not_authorized"   validate:"required"`
	GeneralError    string `mapstructure:"general_error"    validate:"required"`
	NoTasks         string `mapstructure:"no_tasks"         validate:"required"`
	DeliveryFailed  string `mapstructure:"delivery_failed"  validate:"required"`
	ScanStarted     string `mapstructure:"scan_started"     validate:"required"`
	ScanFinished    string `mapstructure:"scan_finished"    validate:"required"`
	Stats           string `mapstructure:"stats"            validate:"required"`
	CaptionTitle    string `mapstructure:"caption_title"    validate:"required"`
	CaptionDaily    string `mapstructure:"caption_daily"    validate:"required"`
	CaptionManual   string `mapstructure:"caption_manual"   validate:"required"`
	CaptionSolution string `mapstructure:"caption_solution" validate:"required"`
}

// IsAdmin reports whether userID is on the admin allow-list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Telegram.AdminUserIDs, userID)
}

// LoadConfig reads configuration from path (missing file is allowed),
// an optional .env file and BOT_* environment variables, then validates it.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env file: %v", ErrConfiguration, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrConfiguration, path, err)
		}
		slog.Info("Configuration file not found, using defaults and environment", "path", path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct constraints and resolves the scheduler location.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("%w: invalid timezone %q: %v", ErrConfiguration, c.Scheduler.Timezone, err)
	}
	c.Scheduler.Location = loc

	return nil
}

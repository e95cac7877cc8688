package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456:abcdef"
  admin_user_ids: [42, 43]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Scheduler.Timezone != DefaultTimezone {
		t.Errorf("Expected timezone %q, got %q", DefaultTimezone, cfg.Scheduler.Timezone)
	}
	if cfg.Scheduler.Location == nil || cfg.Scheduler.Location.String() != DefaultTimezone {
		t.Errorf("Expected resolved location %q, got %v", DefaultTimezone, cfg.Scheduler.Location)
	}
	if cfg.Scheduler.DailyTime != "10:00" || cfg.Scheduler.DefaultSendTime != "10:00" {
		t.Errorf("Unexpected times: daily=%q default=%q", cfg.Scheduler.DailyTime, cfg.Scheduler.DefaultSendTime)
	}
	if cfg.Database.Path != DefaultDBPath {
		t.Errorf("Expected db path %q, got %q", DefaultDBPath, cfg.Database.Path)
	}
	if !cfg.Scanner.ScanOnStart {
		t.Error("Expected scan_on_start to default to true")
	}
	if task, ok := cfg.Scheduler.Tasks["daily_dispatch"]; !ok || !task.Enabled {
		t.Errorf("Expected daily_dispatch enabled by default, got %+v", cfg.Scheduler.Tasks)
	}
	if task := cfg.Scheduler.Tasks["sql_maintenance"]; task.Enabled || task.Schedule != DefaultMaintenanceCron {
		t.Errorf("Unexpected sql_maintenance defaults: %+v", task)
	}
	if cfg.Messages.NoTasks != DefaultMessages.NoTasks {
		t.Errorf("Expected default no_tasks message, got %q", cfg.Messages.NoTasks)
	}
	if !cfg.IsAdmin(42) || !cfg.IsAdmin(43) || cfg.IsAdmin(44) {
		t.Errorf("Unexpected admin list: %v", cfg.Telegram.AdminUserIDs)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "from-file"
`)
	t.Setenv("BOT_TELEGRAM_TOKEN", "from-env")
	t.Setenv("BOT_SCHEDULER_DAILY_TIME", "09:30")
	t.Setenv("BOT_TELEGRAM_DEFAULT_CHAT_ID", "-1001")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Telegram.Token != "from-env" {
		t.Errorf("Expected env token, got %q", cfg.Telegram.Token)
	}
	if cfg.Scheduler.DailyTime != "09:30" {
		t.Errorf("Expected daily time 09:30, got %q", cfg.Scheduler.DailyTime)
	}
	if cfg.Telegram.DefaultChatID != -1001 {
		t.Errorf("Expected default chat -1001, got %d", cfg.Telegram.DefaultChatID)
	}
}

func TestLoadConfigMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "env-only")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Telegram.Token != "env-only" {
		t.Errorf("Expected env token, got %q", cfg.Telegram.Token)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing token", `logger: {level: info}`},
		{"bad log level", "telegram: {token: x}\nlogger: {level: loud}"},
		{"bad timezone", "telegram: {token: x}\nscheduler: {timezone: Mars/Olympus}"},
		{"bad daily time", "telegram: {token: x}\nscheduler: {daily_time: '25:00'}"},
		{"short send time", "telegram: {token: x}\nscheduler: {default_send_time: '9:00'}"},
		{"negative admin", "telegram: {token: x, admin_user_ids: [-5]}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{"10:00", 10, 0, false},
		{"23:59", 23, 59, false},
		{"00:05", 0, 5, false},
		{"24:00", 0, 0, true},
		{"9:00", 0, 0, true},
		{"test", 0, 0, true},
	}

	for _, tt := range tests {
		h, m, err := ParseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClock(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && (h != tt.hour || m != tt.minute) {
			t.Errorf("ParseClock(%q) = %d:%d, want %d:%d", tt.in, h, m, tt.hour, tt.minute)
		}
	}
}

func TestValidatorClockTag(t *testing.T) {
	type clock struct {
		At string `validate:"hhmm"`
	}
	v := newValidator()

	for _, in := range []string{"10:00", "00:00", "23:59"} {
		if err := v.Struct(clock{At: in}); err != nil {
			t.Errorf("Expected %q to pass, got %v", in, err)
		}
	}
	for _, in := range []string{"25:00", "9:00", "", "noon"} {
		if err := v.Struct(clock{At: in}); err == nil {
			t.Errorf("Expected %q to be rejected", in)
		}
	}
}

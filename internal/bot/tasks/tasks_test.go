package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/taskbot/shadbot/internal/config"
	"github.com/taskbot/shadbot/internal/database"
	"github.com/taskbot/shadbot/internal/delivery"
)

type fakeDeliverer struct {
	calls []int64
	fail  map[int64]error
	empty bool
}

func (f *fakeDeliverer) Deliver(_ context.Context, chatID int64, mode delivery.Mode) (delivery.Result, error) {
	if mode != delivery.ModeScheduled {
		return delivery.Result{}, errors.New("unexpected mode")
	}
	f.calls = append(f.calls, chatID)
	if err := f.fail[chatID]; err != nil {
		return delivery.Result{}, err
	}
	if f.empty {
		return delivery.Result{CatalogEmpty: true}, nil
	}
	return delivery.Result{Task: &database.Task{ID: 1}}, nil
}

func testDeps(t *testing.T, store database.Store, d Deliverer, now time.Time) TaskDeps {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("Failed to load location: %v", err)
	}
	cfg := &config.Config{}
	cfg.Scheduler.Location = loc
	return TaskDeps{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:     store,
		Deliverer: d,
		Config:    cfg,
		Now:       func() time.Time { return now },
	}
}

func registerChats(t *testing.T, store *database.MemoryStore, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		if err := store.RegisterChat(context.Background(), id, database.ChatTypePrivate, ""); err != nil {
			t.Fatalf("RegisterChat failed: %v", err)
		}
	}
}

func TestDispatchMatchesSendTime(t *testing.T) {
	store := database.NewMemoryStore("10:00")
	registerChats(t, store, 1, 2, 3, 4)
	store.SetSchedule(2, "11:30", true)
	store.SetSchedule(3, AlwaysSendTime, true)
	store.SetSchedule(4, "10:00", false)

	// 07:00 UTC is 10:00 in Moscow.
	now := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	fd := &fakeDeliverer{}

	report, err := Dispatch(context.Background(), testDeps(t, store, fd, now))
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if !slices.Equal(fd.calls, []int64{1, 3}) {
		t.Errorf("Expected deliveries to chats [1 3], got %v", fd.calls)
	}
	if report.Due != 3 || report.Matched != 2 || report.Delivered != 2 || report.Failed != 0 {
		t.Errorf("Unexpected report: %+v", report)
	}
	if report.RunID == "" {
		t.Error("Expected a run id")
	}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	store := database.NewMemoryStore("10:00")
	registerChats(t, store, 1, 2, 3)

	now := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	fd := &fakeDeliverer{fail: map[int64]error{
		1: delivery.ErrDelivery,
		2: database.ErrStorage,
	}}

	report, err := Dispatch(context.Background(), testDeps(t, store, fd, now))
	if err != nil {
		t.Fatalf("Per-chat failures must not abort the run: %v", err)
	}
	if !slices.Equal(fd.calls, []int64{1, 2, 3}) {
		t.Errorf("Expected every chat attempted, got %v", fd.calls)
	}
	if report.Failed != 2 || report.Delivered != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}
}

func TestDispatchCountsEmptyCatalog(t *testing.T) {
	store := database.NewMemoryStore("10:00")
	registerChats(t, store, 5)

	now := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	report, err := Dispatch(context.Background(), testDeps(t, store, &fakeDeliverer{empty: true}, now))
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if report.Empty != 1 || report.Delivered != 0 {
		t.Errorf("Unexpected report: %+v", report)
	}
}

func TestDispatchNoMatchAtOtherTimes(t *testing.T) {
	store := database.NewMemoryStore("10:00")
	registerChats(t, store, 1)

	// 10:00 UTC is 13:00 in Moscow.
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fd := &fakeDeliverer{}

	report, err := Dispatch(context.Background(), testDeps(t, store, fd, now))
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(fd.calls) != 0 || report.Matched != 0 {
		t.Errorf("Expected no deliveries, got %v (%+v)", fd.calls, report)
	}
}

func TestDailyDispatchTaskReportsFailures(t *testing.T) {
	store := database.NewMemoryStore("10:00")
	registerChats(t, store, 1)
	store.SetSchedule(1, AlwaysSendTime, true)

	fd := &fakeDeliverer{fail: map[int64]error{1: delivery.ErrDelivery}}
	task := RegisterAllTasks(testDeps(t, store, fd, time.Now()))[DailyDispatchTask]
	if task == nil {
		t.Fatal("daily_dispatch task not registered")
	}
	if err := task(context.Background()); err == nil {
		t.Error("Expected an error when a chat failed")
	}
}

func TestDispatchCancelled(t *testing.T) {
	store := database.NewMemoryStore("10:00")
	registerChats(t, store, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dispatch(ctx, testDeps(t, store, &fakeDeliverer{}, time.Now()))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSendTimeMatches(t *testing.T) {
	tests := []struct {
		sendTime, current string
		want              bool
	}{
		{"10:00", "10:00", true},
		{"10:00", "10:01", false},
		{"9:00", "09:00", false},
		{AlwaysSendTime, "03:17", true},
		{"", "10:00", false},
	}
	for _, tt := range tests {
		if got := SendTimeMatches(tt.sendTime, tt.current); got != tt.want {
			t.Errorf("SendTimeMatches(%q, %q) = %v, want %v", tt.sendTime, tt.current, got, tt.want)
		}
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	store := database.NewMemoryStore("10:00")
	task := RegisterAllTasks(testDeps(t, store, &fakeDeliverer{}, time.Now()))[SQLMaintenanceTask]
	if task == nil {
		t.Fatal("sql_maintenance task not registered")
	}
	if err := task(context.Background()); err != nil {
		t.Errorf("Expected maintenance to succeed, got %v", err)
	}
}

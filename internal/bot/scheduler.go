package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/taskbot/shadbot/internal/bot/tasks"
	"github.com/taskbot/shadbot/internal/config"
	applog "github.com/taskbot/shadbot/internal/logger"
)

// Scheduler runs the registered tasks on gocron in the configured timezone.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
}

// NewScheduler creates a scheduler located in cfg.Location.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	log := logger.With("component", "scheduler")

	s, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
		gocron.WithLogger(applog.NewGocronLogger(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// jobDefinition turns a task's configuration into a gocron trigger. An empty
// schedule means once a day at cfg.DailyTime.
func (s *Scheduler) jobDefinition(tc config.TaskConfig) (gocron.JobDefinition, string, error) {
	if tc.Schedule != "" {
		return gocron.CronJob(tc.Schedule, false), tc.Schedule, nil
	}

	hour, minute, err := config.ParseClock(s.cfg.DailyTime)
	if err != nil {
		return nil, "", err
	}
	return gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))),
		"daily at " + s.cfg.DailyTime, nil
}

// Start schedules every enabled task and starts ticking. Jobs receive a
// context that is cancelled by Stop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	names := make([]string, 0, len(s.cfg.Tasks))
	for name := range s.cfg.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	scheduledCount := 0
	for _, taskName := range names {
		taskConfig := s.cfg.Tasks[taskName]
		if !taskConfig.Enabled {
			s.logger.Info("Skipping disabled task", "task_name", taskName)
			continue
		}

		taskFunc, exists := s.taskMap[taskName]
		if !exists {
			s.logger.Warn("Scheduled task configured but not found in registry, skipping", "task_name", taskName)
			continue
		}

		def, desc, err := s.jobDefinition(taskConfig)
		if err != nil {
			s.logger.Error("Invalid schedule for task", "task_name", taskName, "error", err)
			continue
		}

		_, err = s.scheduler.NewJob(
			def,
			gocron.NewTask(func(name string) {
				s.logger.Info("Running scheduled task", "task_name", name)
				startTime := time.Now()
				if taskErr := taskFunc(jobCtx); taskErr != nil {
					s.logger.Error("Scheduled task failed", "task_name", name, "error", taskErr)
				}
				s.logger.Info("Finished scheduled task", "task_name", name, "duration", time.Since(startTime))
			}, taskName),
			gocron.WithName(taskName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", taskName, "schedule", desc, "error", err)
			continue
		}

		s.logger.Info("Scheduled task", "task_name", taskName, "schedule", desc)
		scheduledCount++
	}

	if scheduledCount == 0 {
		s.logger.Warn("No scheduler tasks enabled")
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduledCount)
	return nil
}

// Jobs returns the names of the scheduled jobs and their next run times.
func (s *Scheduler) Jobs() map[string]time.Time {
	out := make(map[string]time.Time)
	for _, j := range s.scheduler.Jobs() {
		next, err := j.NextRun()
		if err != nil {
			continue
		}
		out[j.Name()] = next
	}
	return out
}

// Stop waits for running jobs to finish, then stops the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("Scheduler is not running, nothing to stop.")
		return nil
	}

	err := s.scheduler.Shutdown()
	if s.cancel != nil {
		s.cancel()
	}
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}

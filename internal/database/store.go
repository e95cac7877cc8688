package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Store is the only way other components read or change the catalog.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// UpsertTask inserts a task unless (year, variant, position) already
	// exists. A duplicate reports inserted=false and no error.
	UpsertTask(ctx context.Context, task TaskInput) (inserted bool, err error)

	// RegisterChat creates or replaces the chat row and makes sure the chat
	// has a schedule. An existing schedule is left untouched.
	RegisterChat(ctx context.Context, chatID int64, chatType, displayName string) error

	// SelectUnseenTask picks a random task the chat has not received yet,
	// clearing the chat's history first when every task has been sent.
	SelectUnseenTask(ctx context.Context, chatID int64) (Selection, error)

	// RecordSent marks a task as delivered to the chat and bumps last_active.
	// Recording the same pair twice is a no-op.
	RecordSent(ctx context.Context, chatID, taskID int64) error

	// ListDueChats returns every active chat with an enabled schedule.
	// Matching send_time against the clock is left to the caller.
	ListDueChats(ctx context.Context) ([]DueChat, error)

	// CatalogStats returns aggregate task and chat counts.
	CatalogStats(ctx context.Context) (CatalogStats, error)

	// RunSQLMaintenance performs VACUUM on the catalog.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store on top of SQLite through sqlx.
type sqlxStore struct {
	db              *sqlx.DB
	logger          *slog.Logger
	defaultSendTime string
}

// NewStore creates a Store backed by db. defaultSendTime is written to
// schedules created by RegisterChat.
func NewStore(db *sqlx.DB, logger *slog.Logger, defaultSendTime string) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:              db,
		logger:          logger.With("component", "store"),
		defaultSendTime: defaultSendTime,
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (s *sqlxStore) UpsertTask(ctx context.Context, task TaskInput) (bool, error) {
	var solution sql.NullString
	if url := strings.TrimSpace(task.SolutionURL); url != "" {
		solution = sql.NullString{String: url, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (year, variant, position, file_path, solution_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (year, variant, position) DO NOTHING`,
		task.Year, task.Variant, task.Position, task.FilePath, solution)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to upsert task",
			"year", task.Year, "variant", task.Variant, "position", task.Position, "error", err)
		return false, storageErr(fmt.Sprintf("upsert task %d/%d/%d", task.Year, task.Variant, task.Position), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("upsert task rows affected", err)
	}

	if affected > 0 {
		s.logger.DebugContext(ctx, "Task inserted",
			"year", task.Year, "variant", task.Variant, "position", task.Position, "file_path", task.FilePath)
	}
	return affected > 0, nil
}

func (s *sqlxStore) RegisterChat(ctx context.Context, chatID int64, chatType, displayName string) error {
	var name sql.NullString
	if displayName != "" {
		name = sql.NullString{String: displayName, Valid: true}
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chats (chat_id, chat_type, chat_name, is_active, last_active)
			VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP)
			ON CONFLICT (chat_id) DO UPDATE SET
				chat_type = excluded.chat_type,
				chat_name = excluded.chat_name,
				is_active = 1,
				last_active = CURRENT_TIMESTAMP`,
			chatID, chatType, name); err != nil {
			return fmt.Errorf("upsert chat: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO schedules (chat_id, send_time, is_enabled)
			VALUES (?, ?, 1)
			ON CONFLICT (chat_id) DO NOTHING`,
			chatID, s.defaultSendTime); err != nil {
			return fmt.Errorf("ensure schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to register chat", "chat_id", chatID, "error", err)
		return storageErr(fmt.Sprintf("register chat %d", chatID), err)
	}

	s.logger.InfoContext(ctx, "Chat registered", "chat_id", chatID, "chat_type", chatType)
	return nil
}

const taskColumns = `t.id, t.year, t.variant, t.position, t.file_path, t.solution_url`

func (s *sqlxStore) SelectUnseenTask(ctx context.Context, chatID int64) (Selection, error) {
	var task Task
	err := s.db.GetContext(ctx, &task, `
		SELECT `+taskColumns+` FROM tasks t
		WHERE NOT EXISTS (
			SELECT 1 FROM sent_tasks st WHERE st.chat_id = ? AND st.task_id = t.id
		)
		ORDER BY RANDOM()
		LIMIT 1`, chatID)
	switch {
	case err == nil:
		return Selection{Status: SelectionFound, Task: &task}, nil
	case !errors.Is(err, sql.ErrNoRows):
		s.logger.ErrorContext(ctx, "Failed to select unseen task", "chat_id", chatID, "error", err)
		return Selection{}, storageErr(fmt.Sprintf("select unseen task for chat %d", chatID), err)
	}

	// Every task has been sent (or there are none): start the cycle over.
	var selection Selection
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM sent_tasks WHERE chat_id = ?`, chatID)
		if err != nil {
			return fmt.Errorf("reset history: %w", err)
		}
		cleared, err := result.RowsAffected()
		if err != nil {
			s.logger.WarnContext(ctx, "Could not count cleared history rows", "chat_id", chatID, "error", err)
			cleared = -1
		}

		var task Task
		err = tx.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM tasks t ORDER BY RANDOM() LIMIT 1`)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			selection = Selection{Status: SelectionCatalogEmpty}
		case err != nil:
			return fmt.Errorf("select task after reset: %w", err)
		default:
			selection = Selection{Status: SelectionFound, Task: &task, HistoryReset: true}
			s.logger.InfoContext(ctx, "Chat exhausted all tasks, history reset",
				"chat_id", chatID, "cleared", cleared)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to reset history and select task", "chat_id", chatID, "error", err)
		return Selection{}, storageErr(fmt.Sprintf("select task for chat %d", chatID), err)
	}

	return selection, nil
}

func (s *sqlxStore) RecordSent(ctx context.Context, chatID, taskID int64) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sent_tasks (chat_id, task_id) VALUES (?, ?)
			ON CONFLICT (chat_id, task_id) DO NOTHING`,
			chatID, taskID); err != nil {
			return fmt.Errorf("insert sent task: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE chats SET last_active = CURRENT_TIMESTAMP WHERE chat_id = ?`, chatID); err != nil {
			return fmt.Errorf("bump last_active: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record sent task", "chat_id", chatID, "task_id", taskID, "error", err)
		return storageErr(fmt.Sprintf("record task %d sent to chat %d", taskID, chatID), err)
	}
	return nil
}

func (s *sqlxStore) ListDueChats(ctx context.Context) ([]DueChat, error) {
	var chats []DueChat
	err := s.db.SelectContext(ctx, &chats, `
		SELECT c.chat_id, s.send_time
		FROM chats c
		JOIN schedules s ON c.chat_id = s.chat_id
		WHERE c.is_active = 1 AND s.is_enabled = 1
		ORDER BY c.chat_id`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list due chats", "error", err)
		return nil, storageErr("list due chats", err)
	}
	return chats, nil
}

func (s *sqlxStore) CatalogStats(ctx context.Context) (CatalogStats, error) {
	var stats CatalogStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_tasks,
			COUNT(DISTINCT year) AS years,
			COUNT(DISTINCT variant) AS variants,
			(SELECT COUNT(*) FROM chats) AS chats
		FROM tasks`)
	if err != nil {
		return CatalogStats{}, storageErr("catalog stats", err)
	}
	return stats, nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")

	// VACUUM cannot run inside a transaction.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "VACUUM timed out or was cancelled", "error", err)
		} else {
			s.logger.ErrorContext(ctx, "VACUUM failed", "error", err)
		}
		return storageErr("vacuum", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}

// withTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (s *sqlxStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

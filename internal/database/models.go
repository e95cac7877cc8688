package database

import "database/sql"

// Task is one exam-practice image in the catalog. Rows are never updated
// or deleted once inserted, so ID is a stable key for sent-history.
type Task struct {
	ID          int64          `db:"id"`
	Year        int            `db:"year"`
	Variant     int            `db:"variant"`
	Position    int            `db:"position"`
	FilePath    string         `db:"file_path"`
	SolutionURL sql.NullString `db:"solution_url"`
}

// TaskInput is the scanner's view of a task before it has an ID.
type TaskInput struct {
	Year        int
	Variant     int
	Position    int
	FilePath    string
	SolutionURL string // empty means no solution link
}

// Chat type values as reported by Telegram.
const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
	ChatTypeChannel    = "channel"
)

// Chat is a registered delivery destination.
type Chat struct {
	ChatID      int64          `db:"chat_id"`
	ChatType    string         `db:"chat_type"`
	DisplayName sql.NullString `db:"chat_name"`
	IsActive    bool           `db:"is_active"`
	LastActive  sql.NullTime   `db:"last_active"`
}

// Schedule is the per-chat daily delivery setting.
type Schedule struct {
	ChatID    int64        `db:"chat_id"`
	SendTime  string       `db:"send_time"`
	LastSent  sql.NullTime `db:"last_sent"`
	IsEnabled bool         `db:"is_enabled"`
}

// DueChat is a chat eligible for the scheduled fan-out together with its
// configured send time.
type DueChat struct {
	ChatID   int64  `db:"chat_id"`
	SendTime string `db:"send_time"`
}

// SelectionStatus tells whether SelectUnseenTask produced a task.
type SelectionStatus int

const (
	// SelectionCatalogEmpty means there are no tasks at all.
	SelectionCatalogEmpty SelectionStatus = iota
	// SelectionFound means Selection.Task is set.
	SelectionFound
)

func (s SelectionStatus) String() string {
	switch s {
	case SelectionFound:
		return "found"
	case SelectionCatalogEmpty:
		return "catalog_empty"
	default:
		return "unknown"
	}
}

// Selection is the result of picking a task for a chat.
type Selection struct {
	Status SelectionStatus
	Task   *Task
	// HistoryReset is true when the chat had seen every task and its
	// sent-history was cleared before picking.
	HistoryReset bool
}

// CatalogStats are aggregate counts for operator visibility.
type CatalogStats struct {
	TotalTasks int `db:"total_tasks" json:"total_tasks" yaml:"total_tasks"`
	Years      int `db:"years"       json:"years"       yaml:"years"`
	Variants   int `db:"variants"    json:"variants"    yaml:"variants"`
	Chats      int `db:"chats"       json:"chats"       yaml:"chats"`
}

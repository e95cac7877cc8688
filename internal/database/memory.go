package database

import (
	"cmp"
	"context"
	"database/sql"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"
)

type taskKey struct{ year, variant, position int }

type sentKey struct{ chatID, taskID int64 }

// MemoryStore is an in-process Store with the same semantics as the SQLite
// store. It backs tests for components that depend on Store.
type MemoryStore struct {
	mu              sync.Mutex
	defaultSendTime string
	nextID          int64
	tasks           []Task
	taskKeys        map[taskKey]int64
	chats           map[int64]*Chat
	schedules       map[int64]*Schedule
	sent            map[sentKey]time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(defaultSendTime string) *MemoryStore {
	return &MemoryStore{
		defaultSendTime: defaultSendTime,
		taskKeys:        make(map[taskKey]int64),
		chats:           make(map[int64]*Chat),
		schedules:       make(map[int64]*Schedule),
		sent:            make(map[sentKey]time.Time),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) UpsertTask(ctx context.Context, in TaskInput) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := taskKey{in.Year, in.Variant, in.Position}
	if _, ok := m.taskKeys[key]; ok {
		return false, nil
	}

	m.nextID++
	task := Task{
		ID:       m.nextID,
		Year:     in.Year,
		Variant:  in.Variant,
		Position: in.Position,
		FilePath: in.FilePath,
	}
	if url := strings.TrimSpace(in.SolutionURL); url != "" {
		task.SolutionURL = sql.NullString{String: url, Valid: true}
	}
	m.tasks = append(m.tasks, task)
	m.taskKeys[key] = task.ID
	return true, nil
}

func (m *MemoryStore) RegisterChat(ctx context.Context, chatID int64, chatType, displayName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	chat := &Chat{
		ChatID:     chatID,
		ChatType:   chatType,
		IsActive:   true,
		LastActive: sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	if displayName != "" {
		chat.DisplayName = sql.NullString{String: displayName, Valid: true}
	}
	m.chats[chatID] = chat

	if _, ok := m.schedules[chatID]; !ok {
		m.schedules[chatID] = &Schedule{ChatID: chatID, SendTime: m.defaultSendTime, IsEnabled: true}
	}
	return nil
}

func (m *MemoryStore) SelectUnseenTask(ctx context.Context, chatID int64) (Selection, error) {
	if err := ctx.Err(); err != nil {
		return Selection{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var unseen []Task
	for _, t := range m.tasks {
		if _, ok := m.sent[sentKey{chatID, t.ID}]; !ok {
			unseen = append(unseen, t)
		}
	}
	if len(unseen) > 0 {
		task := unseen[rand.IntN(len(unseen))]
		return Selection{Status: SelectionFound, Task: &task}, nil
	}

	for key := range m.sent {
		if key.chatID == chatID {
			delete(m.sent, key)
		}
	}
	if len(m.tasks) == 0 {
		return Selection{Status: SelectionCatalogEmpty}, nil
	}
	task := m.tasks[rand.IntN(len(m.tasks))]
	return Selection{Status: SelectionFound, Task: &task, HistoryReset: true}, nil
}

func (m *MemoryStore) RecordSent(ctx context.Context, chatID, taskID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sentKey{chatID, taskID}
	if _, ok := m.sent[key]; !ok {
		m.sent[key] = time.Now().UTC()
	}
	if chat, ok := m.chats[chatID]; ok {
		chat.LastActive = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	return nil
}

func (m *MemoryStore) ListDueChats(ctx context.Context) ([]DueChat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []DueChat
	for id, chat := range m.chats {
		sched, ok := m.schedules[id]
		if !ok || !chat.IsActive || !sched.IsEnabled {
			continue
		}
		due = append(due, DueChat{ChatID: id, SendTime: sched.SendTime})
	}
	slices.SortFunc(due, func(a, b DueChat) int { return cmp.Compare(a.ChatID, b.ChatID) })
	return due, nil
}

func (m *MemoryStore) CatalogStats(ctx context.Context) (CatalogStats, error) {
	if err := ctx.Err(); err != nil {
		return CatalogStats{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	years := make(map[int]struct{})
	variants := make(map[int]struct{})
	for _, t := range m.tasks {
		years[t.Year] = struct{}{}
		variants[t.Variant] = struct{}{}
	}
	return CatalogStats{
		TotalTasks: len(m.tasks),
		Years:      len(years),
		Variants:   len(variants),
		Chats:      len(m.chats),
	}, nil
}

func (m *MemoryStore) RunSQLMaintenance(ctx context.Context) error { return ctx.Err() }

// Tasks returns a copy of the catalog in insertion order.
func (m *MemoryStore) Tasks() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tasks)
}

// SentTaskIDs returns the IDs recorded as sent to chatID, sorted.
func (m *MemoryStore) SentTaskIDs(chatID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for key := range m.sent {
		if key.chatID == chatID {
			ids = append(ids, key.taskID)
		}
	}
	slices.Sort(ids)
	return ids
}

// Chat returns a copy of the chat row, if registered.
func (m *MemoryStore) Chat(chatID int64) (Chat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatID]
	if !ok {
		return Chat{}, false
	}
	return *c, true
}

// SetSchedule overwrites a chat's schedule.
func (m *MemoryStore) SetSchedule(chatID int64, sendTime string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[chatID] = &Schedule{ChatID: chatID, SendTime: sendTime, IsEnabled: enabled}
}

// SetChatActive toggles a chat's is_active flag.
func (m *MemoryStore) SetChatActive(chatID int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.chats[chatID]; ok {
		c.IsActive = active
	}
}

package notes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a process-local Store for the console and tests.
type Memory struct {
	mu    sync.Mutex
	seq   int64
	notes map[uuid.UUID]*memoryNote
	now   func() time.Time
}

type memoryNote struct {
	Note
	touched int64
}

func NewMemory() *Memory {
	return &Memory{notes: make(map[uuid.UUID]*memoryNote), now: time.Now}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Create(_ context.Context, userID int64, title, content string) (Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.seq++
	n := &memoryNote{
		Note: Note{
			ID:        uuid.New(),
			UserID:    userID,
			Title:     title,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		},
		touched: m.seq,
	}
	m.notes[n.ID] = n
	return n.Note, nil
}

func (m *Memory) Update(_ context.Context, userID int64, id uuid.UUID, title, content string) (Note, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok || n.UserID != userID || n.Archived {
		return Note{}, false, nil
	}
	m.seq++
	n.Title, n.Content, n.UpdatedAt, n.touched = title, content, m.now(), m.seq
	return n.Note, true, nil
}

func (m *Memory) Archive(_ context.Context, userID int64, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok || n.UserID != userID || n.Archived {
		return false, nil
	}
	m.seq++
	n.Archived, n.UpdatedAt, n.touched = true, m.now(), m.seq
	return true, nil
}

func (m *Memory) ListRecent(_ context.Context, userID int64, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []*memoryNote
	for _, n := range m.notes {
		if n.UserID == userID && !n.Archived {
			found = append(found, n)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].touched > found[j].touched })
	if len(found) > limit {
		found = found[:limit]
	}
	list := make([]Note, len(found))
	for i, n := range found {
		list[i] = n.Note
	}
	return list, nil
}

func (m *Memory) Get(_ context.Context, userID int64, id uuid.UUID) (Note, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok || n.UserID != userID {
		return Note{}, false, nil
	}
	return n.Note, true, nil
}

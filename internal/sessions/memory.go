package sessions

import (
	"context"
	"sync"

	"assistantbot/internal/wizard"
)

// Memory keeps sessions in a map. Safe for concurrent use.
type Memory[T any] struct {
	mu   sync.RWMutex
	byID map[int64]T
}

func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{byID: make(map[int64]T)}
}

var (
	_ wizard.Store[wizard.EventSession] = (*Memory[wizard.EventSession])(nil)
	_ wizard.Store[wizard.NoteSession]  = (*Memory[wizard.NoteSession])(nil)
)

func (m *Memory[T]) Load(_ context.Context, userID int64) (T, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[userID]
	return s, ok, nil
}

func (m *Memory[T]) Save(_ context.Context, userID int64, session T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[userID] = session
	return nil
}

func (m *Memory[T]) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, userID)
	return nil
}

func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

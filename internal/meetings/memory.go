package meetings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a process-local Store for the console and tests.
type Memory struct {
	mu       sync.Mutex
	meetings []Meeting
	tasks    []Task
}

func NewMemory() *Memory {
	return &Memory{}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateMeeting(_ context.Context, mt Meeting) (Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mt.ID == uuid.Nil {
		mt.ID = uuid.New()
	}
	if mt.CreatedAt.IsZero() {
		mt.CreatedAt = time.Now()
	}
	m.meetings = append(m.meetings, mt)
	return mt, nil
}

func (m *Memory) CreateTask(_ context.Context, t Task) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	m.tasks = append(m.tasks, t)
	return t, nil
}

func (m *Memory) SetGoogleEventID(_ context.Context, id uuid.UUID, googleEventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.meetings {
		if m.meetings[i].ID == id {
			m.meetings[i].GoogleEventID = googleEventID
		}
	}
	return nil
}

func (m *Memory) MeetingsBetween(_ context.Context, userID int64, from, to time.Time) ([]Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []Meeting
	for _, mt := range m.meetings {
		if mt.UserID == userID && inRange(mt.StartsAt, from, to) {
			list = append(list, mt)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartsAt.Before(list[j].StartsAt) })
	return list, nil
}

func (m *Memory) TasksBetween(_ context.Context, userID int64, from, to time.Time) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []Task
	for _, t := range m.tasks {
		if t.UserID == userID && inRange(t.DueAt, from, to) {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].DueAt.Before(list[j].DueAt) })
	return list, nil
}

func (m *Memory) DueReminders(_ context.Context, now time.Time, lead time.Duration) ([]Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []Meeting
	for _, mt := range m.meetings {
		if !mt.ReminderSent && inRange(mt.StartsAt, now, now.Add(lead)) {
			list = append(list, mt)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartsAt.Before(list[j].StartsAt) })
	return list, nil
}

func (m *Memory) MarkReminderSent(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.meetings {
		if m.meetings[i].ID == id {
			m.meetings[i].ReminderSent = true
		}
	}
	return nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

package meetings

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Meeting struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"-"`
	Title         string    `db:"title" json:"title"`
	StartsAt      time.Time `db:"starts_at" json:"starts_at"`
	EndsAt        time.Time `db:"ends_at" json:"ends_at"`
	ExternalLink  string    `db:"external_link" json:"external_link,omitempty"`
	GoogleEventID string    `db:"google_event_id" json:"-"`
	ReminderSent  bool      `db:"reminder_sent" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type Task struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"-"`
	Title        string    `db:"title" json:"title"`
	Priority     string    `db:"priority" json:"priority"`
	DueAt        time.Time `db:"due_at" json:"due_at"`
	ExternalLink string    `db:"external_link" json:"external_link,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Store persists meetings and tasks. Ranges are half-open: [from, to).
type Store interface {
	CreateMeeting(ctx context.Context, m Meeting) (Meeting, error)
	CreateTask(ctx context.Context, t Task) (Task, error)
	SetGoogleEventID(ctx context.Context, id uuid.UUID, googleEventID string) error
	MeetingsBetween(ctx context.Context, userID int64, from, to time.Time) ([]Meeting, error)
	TasksBetween(ctx context.Context, userID int64, from, to time.Time) ([]Task, error)
	// DueReminders returns meetings of all users starting in [now, now+lead)
	// whose reminder has not been sent.
	DueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]Meeting, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}

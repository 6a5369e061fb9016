package wizard

import (
	"context"
	"time"

	"assistantbot/internal/notes"
	"assistantbot/internal/temporal"

	"github.com/google/uuid"
)

type Step string

const (
	StepWaitDate     Step = "WAIT_DATE"
	StepWaitTime     Step = "WAIT_TIME"
	StepWaitTitle    Step = "WAIT_TITLE"
	StepWaitDuration Step = "WAIT_DURATION"

	StepWaitNoteNumber Step = "WAIT_NOTE_NUMBER"
	StepWaitNewText    Step = "WAIT_NEW_TEXT"
)

type NoteMode string

const (
	ModeEdit   NoteMode = "EDIT"
	ModeDelete NoteMode = "DELETE"
)

// EventSession collects the four slots of a new event across messages.
type EventSession struct {
	Step            Step
	Date            *temporal.Date
	Time            *temporal.TimeOfDay
	Title           *string
	DurationMinutes *int
	UpdatedAt       time.Time
}

func (s EventSession) Fragment() temporal.Fragment {
	return temporal.Fragment{
		Date:            s.Date,
		Time:            s.Time,
		DurationMinutes: s.DurationMinutes,
		Title:           s.Title,
	}
}

// merge fills unset slots from f. Set slots are never replaced.
func (s EventSession) merge(f temporal.Fragment) EventSession {
	m := s.Fragment().Merge(f)
	s.Date, s.Time, s.DurationMinutes, s.Title = m.Date, m.Time, m.DurationMinutes, m.Title
	return s
}

// NextStep returns the first missing slot in the order date, time, title,
// duration. ok is false when all four are known.
func (s EventSession) NextStep() (Step, bool) {
	switch {
	case s.Date == nil:
		return StepWaitDate, true
	case s.Time == nil:
		return StepWaitTime, true
	case s.Title == nil || *s.Title == "":
		return StepWaitTitle, true
	case s.DurationMinutes == nil:
		return StepWaitDuration, true
	}
	return "", false
}

// NoteSession drives the edit and delete flows for one note.
type NoteSession struct {
	Step             Step
	Mode             NoteMode
	TargetNoteID     *uuid.UUID
	TargetNoteNumber *int
	UpdatedAt        time.Time
}

// Store keeps at most one session of type T per user. Save replaces the
// previous session atomically.
type Store[T any] interface {
	Load(ctx context.Context, userID int64) (T, bool, error)
	Save(ctx context.Context, userID int64, session T) error
	Delete(ctx context.Context, userID int64) error
}

// NoteLister reads the notes a user can address by number.
type NoteLister interface {
	// ListRecent returns non-archived notes, most recently updated first.
	ListRecent(ctx context.Context, userID int64, limit int) ([]notes.Note, error)
	Get(ctx context.Context, userID int64, id uuid.UUID) (notes.Note, bool, error)
}

type CommitKind string

const (
	CommitMeeting    CommitKind = "CREATE_MEETING"
	CommitNoteEdit   CommitKind = "EDIT_NOTE"
	CommitNoteDelete CommitKind = "DELETE_NOTE"
)

// Commit is a finished flow. The caller performs the write.
type Commit struct {
	Kind CommitKind

	Title    string
	StartsAt time.Time
	EndsAt   time.Time

	NoteID      uuid.UUID
	NoteNumber  int
	NoteContent string
}

// Reply is the outcome of one wizard step.
type Reply struct {
	Text   string
	Commit *Commit
	// Active is true while a session remains open after this step.
	Active bool
}

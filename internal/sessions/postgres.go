package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"assistantbot/internal/temporal"
	"assistantbot/internal/wizard"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EventRepository stores event sessions, one row per user. Save is a single
// upsert, so a reader sees either the old row or the new one.
type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

var _ wizard.Store[wizard.EventSession] = (*EventRepository)(nil)

type eventRow struct {
	UserID          int64          `db:"user_id"`
	Step            string         `db:"step"`
	MeetingDate     sql.NullString `db:"meeting_date"`
	MeetingTime     sql.NullString `db:"meeting_time"`
	Title           sql.NullString `db:"title"`
	DurationMinutes sql.NullInt64  `db:"duration_minutes"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *EventRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS event_sessions (
			user_id BIGINT PRIMARY KEY,
			step TEXT NOT NULL,
			meeting_date TEXT,
			meeting_time TEXT,
			title TEXT,
			duration_minutes INTEGER,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы event_sessions: %w", err)
	}
	return nil
}

func (r *EventRepository) Load(ctx context.Context, userID int64) (wizard.EventSession, bool, error) {
	query := `
		SELECT user_id, step, meeting_date, meeting_time, title, duration_minutes, updated_at
		FROM event_sessions
		WHERE user_id = $1
	`
	var row eventRow
	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return wizard.EventSession{}, false, nil
	}
	if err != nil {
		return wizard.EventSession{}, false, fmt.Errorf("ошибка при получении сессии события: %w", err)
	}

	s := wizard.EventSession{Step: wizard.Step(row.Step), UpdatedAt: row.UpdatedAt}
	if row.MeetingDate.Valid {
		if d, ok := temporal.ParseISODate(row.MeetingDate.String); ok {
			s.Date = &d
		}
	}
	if row.MeetingTime.Valid {
		if t, ok := temporal.ParseClock(row.MeetingTime.String); ok {
			s.Time = &t
		}
	}
	if row.Title.Valid && row.Title.String != "" {
		title := row.Title.String
		s.Title = &title
	}
	if row.DurationMinutes.Valid {
		m := int(row.DurationMinutes.Int64)
		s.DurationMinutes = &m
	}
	return s, true, nil
}

func (r *EventRepository) Save(ctx context.Context, userID int64, s wizard.EventSession) error {
	query := `
		INSERT INTO event_sessions (user_id, step, meeting_date, meeting_time, title, duration_minutes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET step = EXCLUDED.step,
			meeting_date = EXCLUDED.meeting_date,
			meeting_time = EXCLUDED.meeting_time,
			title = EXCLUDED.title,
			duration_minutes = EXCLUDED.duration_minutes,
			updated_at = EXCLUDED.updated_at
	`
	row := eventRow{UserID: userID, Step: string(s.Step), UpdatedAt: s.UpdatedAt}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now()
	}
	if s.Date != nil {
		row.MeetingDate = sql.NullString{String: s.Date.String(), Valid: true}
	}
	if s.Time != nil {
		row.MeetingTime = sql.NullString{String: s.Time.String(), Valid: true}
	}
	if s.Title != nil {
		row.Title = sql.NullString{String: *s.Title, Valid: true}
	}
	if s.DurationMinutes != nil {
		row.DurationMinutes = sql.NullInt64{Int64: int64(*s.DurationMinutes), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		row.UserID, row.Step, row.MeetingDate, row.MeetingTime, row.Title, row.DurationMinutes, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении сессии события: %w", err)
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM event_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ошибка при удалении сессии события: %w", err)
	}
	return nil
}

// NoteRepository stores note edit sessions, one row per user.
type NoteRepository struct {
	db *sqlx.DB
}

func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

var _ wizard.Store[wizard.NoteSession] = (*NoteRepository)(nil)

type noteRow struct {
	UserID           int64         `db:"user_id"`
	Step             string        `db:"step"`
	Mode             string        `db:"mode"`
	TargetNoteID     uuid.NullUUID `db:"target_note_id"`
	TargetNoteNumber sql.NullInt64 `db:"target_note_number"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

func (r *NoteRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS note_sessions (
			user_id BIGINT PRIMARY KEY,
			step TEXT NOT NULL,
			mode TEXT NOT NULL,
			target_note_id UUID,
			target_note_number INTEGER,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы note_sessions: %w", err)
	}
	return nil
}

func (r *NoteRepository) Load(ctx context.Context, userID int64) (wizard.NoteSession, bool, error) {
	query := `
		SELECT user_id, step, mode, target_note_id, target_note_number, updated_at
		FROM note_sessions
		WHERE user_id = $1
	`
	var row noteRow
	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return wizard.NoteSession{}, false, nil
	}
	if err != nil {
		return wizard.NoteSession{}, false, fmt.Errorf("ошибка при получении сессии заметки: %w", err)
	}

	s := wizard.NoteSession{
		Step:      wizard.Step(row.Step),
		Mode:      wizard.NoteMode(row.Mode),
		UpdatedAt: row.UpdatedAt,
	}
	if row.TargetNoteID.Valid {
		id := row.TargetNoteID.UUID
		s.TargetNoteID = &id
	}
	if row.TargetNoteNumber.Valid {
		n := int(row.TargetNoteNumber.Int64)
		s.TargetNoteNumber = &n
	}
	return s, true, nil
}

func (r *NoteRepository) Save(ctx context.Context, userID int64, s wizard.NoteSession) error {
	query := `
		INSERT INTO note_sessions (user_id, step, mode, target_note_id, target_note_number, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET step = EXCLUDED.step,
			mode = EXCLUDED.mode,
			target_note_id = EXCLUDED.target_note_id,
			target_note_number = EXCLUDED.target_note_number,
			updated_at = EXCLUDED.updated_at
	`
	row := noteRow{UserID: userID, Step: string(s.Step), Mode: string(s.Mode), UpdatedAt: s.UpdatedAt}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now()
	}
	if s.TargetNoteID != nil {
		row.TargetNoteID = uuid.NullUUID{UUID: *s.TargetNoteID, Valid: true}
	}
	if s.TargetNoteNumber != nil {
		row.TargetNoteNumber = sql.NullInt64{Int64: int64(*s.TargetNoteNumber), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		row.UserID, row.Step, row.Mode, row.TargetNoteID, row.TargetNoteNumber, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении сессии заметки: %w", err)
	}
	return nil
}

func (r *NoteRepository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM note_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("ошибка при удалении сессии заметки: %w", err)
	}
	return nil
}

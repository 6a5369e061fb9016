package meetings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS meetings (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			starts_at TIMESTAMPTZ NOT NULL,
			ends_at TIMESTAMPTZ NOT NULL,
			external_link TEXT NOT NULL DEFAULT '',
			google_event_id TEXT NOT NULL DEFAULT '',
			reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_meetings_user_start ON meetings (user_id, starts_at);
		CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			priority TEXT NOT NULL,
			due_at TIMESTAMPTZ NOT NULL,
			external_link TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_user_due ON tasks (user_id, due_at);
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблиц meetings и tasks: %w", err)
	}
	return nil
}

func (r *Repository) CreateMeeting(ctx context.Context, m Meeting) (Meeting, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO meetings (id, user_id, title, starts_at, ends_at, external_link, google_event_id, reminder_sent, created_at)
		VALUES (:id, :user_id, :title, :starts_at, :ends_at, :external_link, :google_event_id, :reminder_sent, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return Meeting{}, fmt.Errorf("ошибка при сохранении встречи: %w", err)
	}
	return m, nil
}

func (r *Repository) CreateTask(ctx context.Context, t Task) (Task, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO tasks (id, user_id, title, priority, due_at, external_link, created_at)
		VALUES (:id, :user_id, :title, :priority, :due_at, :external_link, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return Task{}, fmt.Errorf("ошибка при сохранении задачи: %w", err)
	}
	return t, nil
}

func (r *Repository) SetGoogleEventID(ctx context.Context, id uuid.UUID, googleEventID string) error {
	query := `UPDATE meetings SET google_event_id = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, googleEventID, id); err != nil {
		return fmt.Errorf("ошибка при сохранении google_event_id: %w", err)
	}
	return nil
}

func (r *Repository) MeetingsBetween(ctx context.Context, userID int64, from, to time.Time) ([]Meeting, error) {
	query := `
		SELECT id, user_id, title, starts_at, ends_at, external_link, google_event_id, reminder_sent, created_at
		FROM meetings
		WHERE user_id = $1 AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at ASC
	`
	list := []Meeting{}
	if err := r.db.SelectContext(ctx, &list, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("ошибка при получении встреч: %w", err)
	}
	return list, nil
}

func (r *Repository) TasksBetween(ctx context.Context, userID int64, from, to time.Time) ([]Task, error) {
	query := `
		SELECT id, user_id, title, priority, due_at, external_link, created_at
		FROM tasks
		WHERE user_id = $1 AND due_at >= $2 AND due_at < $3
		ORDER BY due_at ASC
	`
	list := []Task{}
	if err := r.db.SelectContext(ctx, &list, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("ошибка при получении задач: %w", err)
	}
	return list, nil
}

func (r *Repository) DueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]Meeting, error) {
	query := `
		SELECT id, user_id, title, starts_at, ends_at, external_link, google_event_id, reminder_sent, created_at
		FROM meetings
		WHERE starts_at >= $1 AND starts_at < $2 AND reminder_sent = false
		ORDER BY starts_at ASC
	`
	list := []Meeting{}
	if err := r.db.SelectContext(ctx, &list, query, now, now.Add(lead)); err != nil {
		return nil, fmt.Errorf("ошибка при получении встреч для напоминаний: %w", err)
	}
	return list, nil
}

func (r *Repository) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE meetings SET reminder_sent = true WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("ошибка при обновлении статуса напоминания: %w", err)
	}
	return nil
}

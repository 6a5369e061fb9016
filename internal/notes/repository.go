package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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
		CREATE TABLE IF NOT EXISTS notes (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_notes_user_updated ON notes (user_id, archived, updated_at DESC);
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы notes: %w", err)
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, userID int64, title, content string) (Note, error) {
	query := `
		INSERT INTO notes (id, user_id, title, content, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW(), NOW())
		RETURNING id, user_id, title, content, archived, created_at, updated_at
	`
	var note Note
	if err := r.db.GetContext(ctx, &note, query, uuid.New(), userID, title, content); err != nil {
		return Note{}, fmt.Errorf("ошибка при сохранении заметки: %w", err)
	}
	return note, nil
}

func (r *Repository) Update(ctx context.Context, userID int64, id uuid.UUID, title, content string) (Note, bool, error) {
	query := `
		UPDATE notes
		SET title = $3, content = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND NOT archived
		RETURNING id, user_id, title, content, archived, created_at, updated_at
	`
	var note Note
	err := r.db.GetContext(ctx, &note, query, id, userID, title, content)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, false, nil
	}
	if err != nil {
		return Note{}, false, fmt.Errorf("ошибка при обновлении заметки: %w", err)
	}
	return note, true, nil
}

func (r *Repository) Archive(ctx context.Context, userID int64, id uuid.UUID) (bool, error) {
	query := `
		UPDATE notes
		SET archived = TRUE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND NOT archived
	`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка при удалении заметки: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка при удалении заметки: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) ListRecent(ctx context.Context, userID int64, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	query := `
		SELECT id, user_id, title, content, archived, created_at, updated_at
		FROM notes
		WHERE user_id = $1 AND NOT archived
		ORDER BY updated_at DESC, created_at DESC
		LIMIT $2
	`
	list := []Note{}
	if err := r.db.SelectContext(ctx, &list, query, userID, limit); err != nil {
		return nil, fmt.Errorf("ошибка при получении списка заметок: %w", err)
	}
	return list, nil
}

func (r *Repository) Get(ctx context.Context, userID int64, id uuid.UUID) (Note, bool, error) {
	query := `
		SELECT id, user_id, title, content, archived, created_at, updated_at
		FROM notes
		WHERE id = $1 AND user_id = $2
	`
	var note Note
	err := r.db.GetContext(ctx, &note, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, false, nil
	}
	if err != nil {
		return Note{}, false, fmt.Errorf("ошибка при получении заметки: %w", err)
	}
	return note, true, nil
}

package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

type Store interface {
	// Upsert records the latest profile. An empty timezone keeps the stored one.
	Upsert(ctx context.Context, u User) error
	Get(ctx context.Context, id int64) (User, bool, error)
	SetTimezone(ctx context.Context, id int64, zone string) error
}

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы users: %w", err)
	}
	return nil
}

func (r *Repository) Upsert(ctx context.Context, u User) error {
	query := `
		INSERT INTO users (id, username, first_name, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE
		SET username = $2,
			first_name = $3,
			timezone = CASE WHEN $4 = '' THEN users.timezone ELSE $4 END,
			updated_at = $5
	`
	if _, err := r.db.ExecContext(ctx, query, u.ID, u.Username, u.FirstName, u.Timezone, time.Now()); err != nil {
		return fmt.Errorf("ошибка при сохранении пользователя: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (User, bool, error) {
	query := `
		SELECT id, username, first_name, timezone, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u User
	err := r.db.GetContext(ctx, &u, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("ошибка при получении пользователя: %w", err)
	}
	return u, true, nil
}

func (r *Repository) SetTimezone(ctx context.Context, id int64, zone string) error {
	query := `UPDATE users SET timezone = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, zone); err != nil {
		return fmt.Errorf("ошибка при обновлении часового пояса: %w", err)
	}
	return nil
}

// Memory is a process-local Store for the console and tests.
type Memory struct {
	mu    sync.Mutex
	users map[int64]User
}

func NewMemory() *Memory {
	return &Memory{users: make(map[int64]User)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Upsert(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	prev, ok := m.users[u.ID]
	if ok {
		u.CreatedAt = prev.CreatedAt
		if u.Timezone == "" {
			u.Timezone = prev.Timezone
		}
	} else {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	m.users[u.ID] = u
	return nil
}

func (m *Memory) Get(_ context.Context, id int64) (User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *Memory) SetTimezone(_ context.Context, id int64, zone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Timezone = zone
		u.UpdatedAt = time.Now()
		m.users[id] = u
	}
	return nil
}

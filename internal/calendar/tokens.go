package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/oauth2"
)

type TokenStore interface {
	SaveToken(ctx context.Context, userID int64, token *oauth2.Token) error
	LoadToken(ctx context.Context, userID int64) (*oauth2.Token, bool, error)
}

type TokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

var _ TokenStore = (*TokenRepository)(nil)

func (r *TokenRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS google_tokens (
			user_id BIGINT PRIMARY KEY,
			access_token TEXT NOT NULL,
			refresh_token TEXT,
			token_type TEXT NOT NULL,
			expiry TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы google_tokens: %w", err)
	}
	return nil
}

// SaveToken upserts the token. A refresh without a new refresh token keeps
// the stored one.
func (r *TokenRepository) SaveToken(ctx context.Context, userID int64, token *oauth2.Token) error {
	query := `
		INSERT INTO google_tokens (user_id, access_token, refresh_token, token_type, expiry, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			access_token = $2,
			refresh_token = COALESCE($3, google_tokens.refresh_token),
			token_type = $4,
			expiry = $5,
			updated_at = NOW()
	`
	refresh := sql.NullString{String: token.RefreshToken, Valid: token.RefreshToken != ""}
	_, err := r.db.ExecContext(ctx, query, userID, token.AccessToken, refresh, token.TokenType, token.Expiry)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении токена Google: %w", err)
	}
	return nil
}

func (r *TokenRepository) LoadToken(ctx context.Context, userID int64) (*oauth2.Token, bool, error) {
	query := `
		SELECT access_token, refresh_token, token_type, expiry
		FROM google_tokens
		WHERE user_id = $1
	`
	var row struct {
		AccessToken  string         `db:"access_token"`
		RefreshToken sql.NullString `db:"refresh_token"`
		TokenType    string         `db:"token_type"`
		Expiry       time.Time      `db:"expiry"`
	}
	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка при получении токена Google: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken.String,
		TokenType:    row.TokenType,
		Expiry:       row.Expiry,
	}, true, nil
}

// MemoryTokens keeps tokens in process memory.
type MemoryTokens struct {
	mu     sync.Mutex
	tokens map[int64]*oauth2.Token
}

func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{tokens: make(map[int64]*oauth2.Token)}
}

var _ TokenStore = (*MemoryTokens)(nil)

func (m *MemoryTokens) SaveToken(_ context.Context, userID int64, token *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *token
	if saved.RefreshToken == "" {
		if prev, ok := m.tokens[userID]; ok {
			saved.RefreshToken = prev.RefreshToken
		}
	}
	m.tokens[userID] = &saved
	return nil
}

func (m *MemoryTokens) LoadToken(_ context.Context, userID int64) (*oauth2.Token, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[userID]
	if !ok {
		return nil, false, nil
	}
	copied := *t
	return &copied, true, nil
}

package messagestore

import (
	"context"
	"fmt"

	"assistantbot/internal/messagestore/models"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var _ Journal = (*Repository)(nil)

func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS inbound_items (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			source_type TEXT NOT NULL,
			raw_text TEXT NOT NULL,
			classification TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_inbound_items_user ON inbound_items (user_id, created_at);
		CREATE TABLE IF NOT EXISTS bot_replies (
			id BIGSERIAL PRIMARY KEY,
			inbound_item_id BIGINT NOT NULL REFERENCES inbound_items (id) ON DELETE CASCADE,
			reply_text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблиц журнала сообщений: %w", err)
	}
	return nil
}

func (r *Repository) RecordInbound(ctx context.Context, userID int64, source, text string) (int64, error) {
	query := `
		INSERT INTO inbound_items (user_id, source_type, raw_text, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`
	var id int64
	if err := r.db.GetContext(ctx, &id, query, userID, source, text); err != nil {
		return 0, fmt.Errorf("не удалось сохранить сообщение пользователя: %w", err)
	}
	return id, nil
}

// RecordOutcome stores the classification of an inbound item and the reply
// sent for it in one transaction.
func (r *Repository) RecordOutcome(ctx context.Context, inboundID int64, classification, status, reply string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`UPDATE inbound_items SET classification = $2, status = $3 WHERE id = $1`,
		inboundID, classification, status)
	if err != nil {
		return fmt.Errorf("не удалось обновить статус сообщения: %w", err)
	}
	if reply != "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO bot_replies (inbound_item_id, reply_text, created_at) VALUES ($1, $2, NOW())`,
			inboundID, reply)
		if err != nil {
			return fmt.Errorf("не удалось сохранить ответ бота: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return nil
}

// History returns the user's last messages and replies, oldest first.
func (r *Repository) History(ctx context.Context, userID int64, limit int) ([]models.HistoryItem, error) {
	query := `
		SELECT role, content, created_at FROM (
			SELECT 'user' AS role, i.raw_text AS content, i.created_at AS created_at
			FROM inbound_items i
			WHERE i.user_id = $1
			UNION ALL
			SELECT 'assistant' AS role, b.reply_text AS content, b.created_at AS created_at
			FROM bot_replies b
			JOIN inbound_items i ON b.inbound_item_id = i.id
			WHERE i.user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`
	history := []models.HistoryItem{}
	if err := r.db.SelectContext(ctx, &history, query, userID, limit); err != nil {
		return nil, fmt.Errorf("не удалось получить историю сообщений: %w", err)
	}
	logrus.Debugf("Получено %d элементов истории для пользователя %d", len(history), userID)
	return history, nil
}

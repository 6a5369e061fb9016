package db

import (
	"context"
	"fmt"
	"time"

	"assistantbot/pkg/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const (
	maxOpenConns    = 20
	connMaxLifetime = 30 * time.Minute
)

func NewPostgresDB(cfg *config.Config) (*sqlx.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("ошибка при открытии соединения с PostgreSQL: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns / 2)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка при подключении к PostgreSQL: %w", err)
	}

	logrus.Info("Успешное подключение к PostgreSQL")
	return db, nil
}

// SchemaEnsurer is implemented by repositories that own their tables.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// EnsureSchemas creates missing tables in order.
func EnsureSchemas(ctx context.Context, repos ...SchemaEnsurer) error {
	for _, r := range repos {
		if err := r.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	return nil
}

package messagestore

import (
	"context"
	"testing"

	"assistantbot/internal/messagestore/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RecordsOutcomeAndHistory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.RecordInbound(ctx, 1, models.SourceVoice, "созвон завтра")
	require.NoError(t, err)
	require.NoError(t, m.RecordOutcome(ctx, id, "MEETING", "PROCESSED", "✅ Встреча добавлена"))
	_, err = m.RecordInbound(ctx, 2, models.SourceText, "чужое")
	require.NoError(t, err)

	items := m.Items(1)
	require.Len(t, items, 1)
	assert.Equal(t, "MEETING", items[0].Classification)
	assert.Equal(t, models.SourceVoice, items[0].SourceType)

	history, err := m.History(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestRepository_RecordOutcomeIsTransactional(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(sqlx.NewDb(db, "postgres"))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE inbound_items SET classification`).
		WithArgs(int64(5), "TASK", "PROCESSED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bot_replies`).
		WithArgs(int64(5), "ok").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = repo.RecordOutcome(context.Background(), 5, "TASK", "PROCESSED", "ok")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RecordInbound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(sqlx.NewDb(db, "postgres"))

	mock.ExpectQuery(`INSERT INTO inbound_items`).
		WithArgs(int64(1), models.SourceText, "привет").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

	id, err := repo.RecordInbound(context.Background(), 1, models.SourceText, "привет")
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}

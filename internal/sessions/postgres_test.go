package sessions

import (
	"context"
	"testing"
	"time"

	"assistantbot/internal/temporal"
	"assistantbot/internal/wizard"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestEventRepository_SaveUpserts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepository(db)

	d, _ := temporal.NewDate(2026, time.February, 21)
	s := wizard.EventSession{
		Step:      wizard.StepWaitTime,
		Date:      &d,
		Title:     temporal.Ptr("Sync"),
		UpdatedAt: time.Date(2026, time.February, 20, 10, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`INSERT INTO event_sessions .+ ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(int64(42), "WAIT_TIME", "2026-02-21", nil, "Sync", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), 42, s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_LoadRestoresSlots(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepository(db)
	updated := time.Date(2026, time.February, 20, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"user_id", "step", "meeting_date", "meeting_time", "title", "duration_minutes", "updated_at"}).
		AddRow(int64(42), "WAIT_DURATION", "2026-02-21", "14:30", "Sync", nil, updated)
	mock.ExpectQuery(`SELECT (.+) FROM event_sessions`).WithArgs(int64(42)).WillReturnRows(rows)

	s, ok, err := repo.Load(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wizard.StepWaitDuration, s.Step)
	require.NotNil(t, s.Date)
	assert.Equal(t, "2026-02-21", s.Date.String())
	require.NotNil(t, s.Time)
	assert.Equal(t, "14:30", s.Time.String())
	require.NotNil(t, s.Title)
	assert.Equal(t, "Sync", *s.Title)
	assert.Nil(t, s.DurationMinutes)
	assert.Equal(t, updated, s.UpdatedAt)
}

func TestEventRepository_LoadMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM event_sessions`).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, ok, err := repo.Load(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEventRepository_Delete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepository(db)

	mock.ExpectExec(`DELETE FROM event_sessions WHERE user_id = \$1`).WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 42))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepository_RoundTripsTarget(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNoteRepository(db)
	id := uuid.New()
	n := 2

	mock.ExpectExec(`INSERT INTO note_sessions .+ ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(int64(42), "WAIT_NEW_TEXT", "EDIT", id.String(), int64(2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Save(context.Background(), 42, wizard.NoteSession{
		Step:             wizard.StepWaitNewText,
		Mode:             wizard.ModeEdit,
		TargetNoteID:     &id,
		TargetNoteNumber: &n,
	}))

	rows := sqlmock.NewRows([]string{"user_id", "step", "mode", "target_note_id", "target_note_number", "updated_at"}).
		AddRow(int64(42), "WAIT_NEW_TEXT", "EDIT", id.String(), int64(2), time.Now())
	mock.ExpectQuery(`SELECT (.+) FROM note_sessions`).WithArgs(int64(42)).WillReturnRows(rows)

	s, ok, err := repo.Load(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wizard.ModeEdit, s.Mode)
	require.NotNil(t, s.TargetNoteID)
	assert.Equal(t, id, *s.TargetNoteID)
	require.NotNil(t, s.TargetNoteNumber)
	assert.Equal(t, 2, *s.TargetNoteNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemory_SaveReplaces(t *testing.T) {
	m := NewMemory[wizard.EventSession]()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, 1, wizard.EventSession{Step: wizard.StepWaitDate}))
	require.NoError(t, m.Save(ctx, 1, wizard.EventSession{Step: wizard.StepWaitTime}))
	s, ok, err := m.Load(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wizard.StepWaitTime, s.Step)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(ctx, 1))
	_, ok, err = m.Load(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

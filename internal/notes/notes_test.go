package notes

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ListRecentOrdersByLastTouch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a, _ := m.Create(ctx, 1, "a", "a")
	b, _ := m.Create(ctx, 1, "b", "b")
	c, _ := m.Create(ctx, 1, "c", "c")
	_, _ = m.Create(ctx, 2, "other", "other")

	_, ok, err := m.Update(ctx, 1, a.ID, "a2", "a2")
	require.NoError(t, err)
	require.True(t, ok)
	archived, err := m.Archive(ctx, 1, b.ID)
	require.NoError(t, err)
	require.True(t, archived)

	list, err := m.ListRecent(ctx, 1, RecentLimit)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, c.ID, list[1].ID)

	_, ok, err = m.Update(ctx, 1, b.ID, "x", "x")
	require.NoError(t, err)
	assert.False(t, ok, "archived notes are read-only")
}

func TestMemory_OtherUsersNotesAreInvisible(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	n, _ := m.Create(ctx, 1, "mine", "mine")

	_, ok, err := m.Get(ctx, 2, n.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	archived, err := m.Archive(ctx, 2, n.ID)
	require.NoError(t, err)
	assert.False(t, archived)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	first, _ := m.Create(ctx, 1, "first", "first")
	second, _ := m.Create(ctx, 1, "second", "second")

	got, number, err := Resolve(ctx, m, 1, "1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, 1, number)

	got, number, err = Resolve(ctx, m, 1, first.ID.String())
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 2, number)

	_, _, err = Resolve(ctx, m, 1, "3")
	assert.ErrorIs(t, err, ErrNoteNotFound)
	_, _, err = Resolve(ctx, m, 1, uuid.NewString())
	assert.ErrorIs(t, err, ErrNoteNotFound)
	_, _, err = Resolve(ctx, m, 1, "abc")
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

var noteColumns = []string{"id", "user_id", "title", "content", "archived", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestRepository_ListRecent(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM notes\s+WHERE user_id = \$1 AND NOT archived\s+ORDER BY updated_at DESC`).
		WithArgs(int64(5), RecentLimit).
		WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(id.String(), int64(5), "t", "c", false, now, now))

	list, err := repo.ListRecent(context.Background(), 5, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateMissingNote(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE notes`).
		WithArgs(id.String(), int64(5), "t", "c").
		WillReturnRows(sqlmock.NewRows(noteColumns))

	_, ok, err := repo.Update(context.Background(), 5, id, "t", "c")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_Archive(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE notes\s+SET archived = TRUE`).
		WithArgs(id.String(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Archive(context.Background(), 5, id)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

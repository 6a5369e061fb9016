package notes

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// RecentLimit is how many notes the list shows and numbers address.
const RecentLimit = 20

var ErrNoteNotFound = errors.New("заметка не найдена")

type Note struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"-"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	Archived  bool      `db:"archived" json:"archived"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Store interface {
	Create(ctx context.Context, userID int64, title, content string) (Note, error)
	// Update replaces title and content of a non-archived note.
	Update(ctx context.Context, userID int64, id uuid.UUID, title, content string) (Note, bool, error)
	Archive(ctx context.Context, userID int64, id uuid.UUID) (bool, error)
	ListRecent(ctx context.Context, userID int64, limit int) ([]Note, error)
	Get(ctx context.Context, userID int64, id uuid.UUID) (Note, bool, error)
}

// Resolve finds a note by its list number or by id and returns it with its
// current number, 0 when it is outside the recent list.
func Resolve(ctx context.Context, s Store, userID int64, ref string) (Note, int, error) {
	recent, err := s.ListRecent(ctx, userID, RecentLimit)
	if err != nil {
		return Note{}, 0, err
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(recent) {
			return Note{}, 0, ErrNoteNotFound
		}
		return recent[n-1], n, nil
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return Note{}, 0, ErrNoteNotFound
	}
	note, ok, err := s.Get(ctx, userID, id)
	if err != nil {
		return Note{}, 0, err
	}
	if !ok || note.Archived {
		return Note{}, 0, ErrNoteNotFound
	}
	return note, Number(recent, id), nil
}

// Number returns the 1-based position of id in list, or 0.
func Number(list []Note, id uuid.UUID) int {
	for i, n := range list {
		if n.ID == id {
			return i + 1
		}
	}
	return 0
}

package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"assistantbot/internal/calendar"
	"assistantbot/internal/intent"
	"assistantbot/internal/meetings"
	"assistantbot/internal/messagestore"
	"assistantbot/internal/messagestore/models"
	"assistantbot/internal/notes"
	"assistantbot/internal/sessions"
	"assistantbot/internal/wizard"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID int64 = 42

type fakeCalendar struct {
	pushErr error
	pushed  []calendar.Event
	events  []calendar.Event
}

func (f *fakeCalendar) Enabled() bool { return true }

func (f *fakeCalendar) ConnectURL(userID int64) (string, error) {
	return "https://accounts.example/auth?state=abc", nil
}

func (f *fakeCalendar) Push(_ context.Context, _ int64, e calendar.Event, _ *time.Location) (string, error) {
	if f.pushErr != nil {
		return "", f.pushErr
	}
	f.pushed = append(f.pushed, e)
	return "g-1", nil
}

func (f *fakeCalendar) Events(context.Context, int64, time.Time, time.Time) ([]calendar.Event, error) {
	return f.events, nil
}

type harness struct {
	d        *Dispatcher
	notes    *notes.Memory
	meetings *meetings.Memory
	journal  *messagestore.Memory
	zone     *time.Location
}

func newHarness(t *testing.T, cal Calendar) *harness {
	t.Helper()
	zone, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	h := &harness{
		notes:    notes.NewMemory(),
		meetings: meetings.NewMemory(),
		journal:  messagestore.NewMemory(),
		zone:     zone,
	}
	w := wizard.New(sessions.NewMemory[wizard.EventSession](), sessions.NewMemory[wizard.NoteSession](), h.notes, nil, 0)
	h.d = New(Deps{
		Engine:   intent.NewEngine(nil, 0, nil),
		Wizard:   w,
		Notes:    h.notes,
		Meetings: h.meetings,
		Calendar: cal,
		Journal:  h.journal,
	})
	now := time.Date(2026, time.February, 20, 10, 0, 0, 0, zone)
	h.d.now = func() time.Time { return now }
	return h
}

func (h *harness) send(t *testing.T, text string) Result {
	t.Helper()
	return h.d.HandleInboundText(context.Background(), userID, text, h.zone)
}

func TestHandle_MeetingFromOneMessage(t *testing.T) {
	h := newHarness(t, nil)

	res := h.send(t, "созвон завтра в 15:00")
	require.NotNil(t, res.Committed)
	assert.Equal(t, intent.ActionCreateMeeting, res.Committed.Action)
	assert.Equal(t, "✅ Встреча добавлена: созвон\n🕒 2026-02-21 15:00", res.Reply)
	assert.False(t, res.InFlow)

	day := time.Date(2026, time.February, 21, 0, 0, 0, 0, h.zone)
	list, err := h.meetings.MeetingsBetween(context.Background(), userID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, time.Hour, list[0].EndsAt.Sub(list[0].StartsAt))
}

func TestHandle_EventWizardEndToEnd(t *testing.T) {
	h := newHarness(t, nil)

	res := h.send(t, "Создать событие")
	assert.True(t, res.InFlow)
	assert.Nil(t, res.Committed)

	for _, answer := range []string{"21.02.2026", "14:30", "Sync"} {
		res = h.send(t, answer)
		assert.True(t, res.InFlow, answer)
	}

	res = h.send(t, "30 минут")
	assert.False(t, res.InFlow)
	require.NotNil(t, res.Committed)
	assert.Equal(t, "Sync", res.Committed.Title)
	assert.Equal(t, time.Date(2026, time.February, 21, 14, 30, 0, 0, h.zone), *res.Committed.StartsAt)
	assert.Equal(t, intent.ClassMeeting, res.Classification)
}

func TestHandle_CancelledWizardCommitsNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "создать событие")
	h.send(t, "21.02.2026")

	res := h.send(t, "❌ Отмена")
	assert.False(t, res.InFlow)
	assert.Nil(t, res.Committed)

	day := time.Date(2026, time.February, 21, 0, 0, 0, 0, h.zone)
	list, err := h.meetings.MeetingsBetween(context.Background(), userID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHandle_NoteEditFlow(t *testing.T) {
	h := newHarness(t, nil)
	for _, text := range []string{"заметка: Buy milk", "заметка: Call Bob", "заметка: Draft report"} {
		res := h.send(t, text)
		require.NotNil(t, res.Committed, text)
	}

	res := h.send(t, "✏️")
	assert.True(t, res.InFlow)
	assert.Contains(t, res.Reply, "[2] Call Bob")

	res = h.send(t, "2")
	assert.True(t, res.InFlow)

	res = h.send(t, "Call Bob at 5pm")
	require.NotNil(t, res.Committed)
	assert.Equal(t, intent.ActionEditNote, res.Committed.Action)
	assert.Equal(t, "📝 Заметка обновлена: №2", res.Reply)

	list, err := h.notes.ListRecent(context.Background(), userID, notes.RecentLimit)
	require.NoError(t, err)
	assert.Equal(t, "Call Bob at 5pm", list[0].Content)
}

func TestHandle_NoteFlowWithoutNotes(t *testing.T) {
	h := newHarness(t, nil)

	res := h.send(t, "🗑")
	assert.False(t, res.InFlow)
	assert.Equal(t, emptyNotes, res.Reply)
}

func TestHandle_NoteSessionWinsOverEventTrigger(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "заметка: Buy milk")
	h.send(t, "🗑")

	res := h.send(t, "создать событие")
	assert.True(t, res.InFlow)
	assert.Contains(t, res.Reply, "Нужен номер")
}

func TestHandle_SingleLineNoteCommands(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "заметка: первая")
	h.send(t, "заметка: вторая")

	res := h.send(t, "✏️ 2 первая, исправленная")
	require.NotNil(t, res.Committed)
	assert.Equal(t, "📝 Заметка обновлена: №2", res.Reply)

	// the edited note moved to the top, so №2 is now "вторая"
	res = h.send(t, "🗑 2")
	require.NotNil(t, res.Committed)
	assert.Equal(t, intent.ActionDeleteNote, res.Committed.Action)

	list, err := h.notes.ListRecent(context.Background(), userID, notes.RecentLimit)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "первая, исправленная", list[0].Content)

	res = h.send(t, "🗑 9")
	assert.Nil(t, res.Committed)
	assert.Contains(t, res.Reply, "не найдена")
}

func TestHandle_ShowNotes(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, emptyNotes, h.send(t, "мои заметки").Reply)

	h.send(t, "заметка: купить молоко")
	assert.Equal(t, "📝 Ваши заметки:\n[1] купить молоко", h.send(t, "мои заметки").Reply)
}

func TestHandle_Schedule(t *testing.T) {
	cal := &fakeCalendar{events: []calendar.Event{{
		ID:       "g-other",
		Title:    "Обед",
		StartsAt: time.Date(2026, time.February, 21, 13, 0, 0, 0, time.UTC),
	}}}
	h := newHarness(t, cal)

	assert.Equal(t, "📭 На сегодня событий и задач не найдено.", h.send(t, "сегодня").Reply)

	h.send(t, "созвон завтра в 15:00")
	h.send(t, "нужно купить хлеб завтра")

	res := h.send(t, "завтра")
	assert.Contains(t, res.Reply, "📅 Расписание на завтра:")
	assert.Contains(t, res.Reply, "• 15:00–16:00 созвон")
	assert.Contains(t, res.Reply, "• 16:00 Обед (Google)")
	assert.Contains(t, res.Reply, "✅ Задачи:")
	assert.NotContains(t, res.Reply, "g-1")
}

func TestHandle_GoogleConnect(t *testing.T) {
	assert.Equal(t, "Google Calendar не настроен на этом сервере.", newHarness(t, nil).send(t, "подключить google").Reply)

	res := newHarness(t, &fakeCalendar{}).send(t, "подключить google")
	assert.Contains(t, res.Reply, "https://accounts.example/auth?state=abc")
}

func TestHandle_GooglePushFailureWarns(t *testing.T) {
	cal := &fakeCalendar{pushErr: errors.New("quota")}
	h := newHarness(t, cal)

	res := h.send(t, "созвон завтра в 15:00")
	require.NotNil(t, res.Committed)
	assert.Contains(t, res.Reply, googleWarning)
}

func TestHandle_GoogleNotConnectedIsSilent(t *testing.T) {
	cal := &fakeCalendar{pushErr: calendar.ErrNotConnected}
	h := newHarness(t, cal)

	res := h.send(t, "созвон завтра в 15:00")
	require.NotNil(t, res.Committed)
	assert.NotContains(t, res.Reply, "⚠️")
}

func TestHandle_JournalsClassification(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "ок")
	h.send(t, "нужно купить хлеб сегодня")

	items := h.journal.Items(userID)
	require.Len(t, items, 2)
	assert.Equal(t, models.SourceText, items[0].SourceType)
	assert.Equal(t, string(intent.ClassIgnore), items[0].Classification)
	assert.Equal(t, string(intent.ClassTask), items[1].Classification)
	assert.Equal(t, string(intent.StatusProcessed), items[1].Status)
}

type brokenNotes struct{ notes.Store }

func (brokenNotes) Create(context.Context, int64, string, string) (notes.Note, error) {
	return notes.Note{}, errors.New("db down")
}

func (brokenNotes) ListRecent(context.Context, int64, int) ([]notes.Note, error) {
	return nil, errors.New("db down")
}

func (brokenNotes) Get(context.Context, int64, uuid.UUID) (notes.Note, bool, error) {
	return notes.Note{}, false, errors.New("db down")
}

func TestHandle_StoreFailureApologises(t *testing.T) {
	h := newHarness(t, nil)
	h.d.notes = brokenNotes{}

	res := h.send(t, "идея для статьи")
	assert.Equal(t, apology, res.Reply)
	assert.Nil(t, res.Committed)
	assert.Equal(t, intent.StatusNeedsClarification, res.Status)
}

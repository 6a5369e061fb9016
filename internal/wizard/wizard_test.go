package wizard_test

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"assistantbot/internal/extraction"
	"assistantbot/internal/notes"
	"assistantbot/internal/sessions"
	"assistantbot/internal/temporal"
	"assistantbot/internal/wizard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID int64 = 42

type harness struct {
	w      *wizard.Wizard
	events *sessions.Memory[wizard.EventSession]
	notes  *sessions.Memory[wizard.NoteSession]
	store  *notes.Memory
	now    time.Time
}

func newHarness(t *testing.T, ex extraction.Extractor) *harness {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	h := &harness{
		events: sessions.NewMemory[wizard.EventSession](),
		notes:  sessions.NewMemory[wizard.NoteSession](),
		store:  notes.NewMemory(),
		now:    time.Date(2026, time.February, 20, 10, 0, 0, 0, loc),
	}
	h.w = wizard.New(h.events, h.notes, h.store, ex, 50*time.Millisecond)
	return h
}

func (h *harness) send(t *testing.T, text string) wizard.Reply {
	t.Helper()
	reply, handled, err := h.w.ContinueEvent(context.Background(), userID, text, h.now)
	require.NoError(t, err)
	require.True(t, handled)
	return reply
}

func (h *harness) step(t *testing.T) wizard.Step {
	t.Helper()
	s, ok, err := h.events.Load(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, ok)
	return s.Step
}

func TestEventFlow_CollectsSlotsOneByOne(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	reply, err := h.w.StartEvent(ctx, userID, "создать событие", h.now)
	require.NoError(t, err)
	assert.True(t, reply.Active)
	assert.Contains(t, reply.Text, "На какую дату")
	assert.Equal(t, wizard.StepWaitDate, h.step(t))

	reply = h.send(t, "21.02.2026")
	assert.Equal(t, wizard.StepWaitTime, h.step(t))
	assert.Contains(t, reply.Text, "Во сколько")

	h.send(t, "14:30")
	assert.Equal(t, wizard.StepWaitTitle, h.step(t))

	h.send(t, "Sync")
	assert.Equal(t, wizard.StepWaitDuration, h.step(t))

	reply = h.send(t, "30 минут")
	require.NotNil(t, reply.Commit)
	assert.False(t, reply.Active)
	assert.Equal(t, wizard.CommitMeeting, reply.Commit.Kind)
	assert.Equal(t, "Sync", reply.Commit.Title)
	assert.Equal(t, time.Date(2026, time.February, 21, 14, 30, 0, 0, h.now.Location()), reply.Commit.StartsAt)
	assert.Equal(t, 30*time.Minute, reply.Commit.EndsAt.Sub(reply.Commit.StartsAt))
	assert.Equal(t, "✅ Событие создано: Sync\n🕒 2026-02-21 14:30", reply.Text)
	assert.Zero(t, h.events.Len())
}

func TestEventFlow_WholeRequestInTriggerCommitsAtOnce(t *testing.T) {
	h := newHarness(t, nil)

	reply, err := h.w.StartEvent(context.Background(), userID, "создай встречу завтра в 15:00 Ретро на 30 минут", h.now)
	require.NoError(t, err)
	require.NotNil(t, reply.Commit)
	assert.Equal(t, "Ретро", reply.Commit.Title)
	assert.Equal(t, time.Date(2026, time.February, 21, 15, 0, 0, 0, h.now.Location()), reply.Commit.StartsAt)
	assert.Zero(t, h.events.Len())
}

func TestEventFlow_CancelAtEveryStep(t *testing.T) {
	answers := []string{"21.02.2026", "14:30", "Sync"}
	for depth := 0; depth <= len(answers); depth++ {
		h := newHarness(t, nil)
		_, err := h.w.StartEvent(context.Background(), userID, "создать событие", h.now)
		require.NoError(t, err)
		for _, a := range answers[:depth] {
			h.send(t, a)
		}

		reply := h.send(t, "❌ Отмена")
		assert.Equal(t, "Создание события отменено.", reply.Text)
		assert.Nil(t, reply.Commit)
		assert.Zero(t, h.events.Len(), "depth %d", depth)
	}
}

func TestEventFlow_KnownSlotsAreNeverOverwritten(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.w.StartEvent(context.Background(), userID, "создать событие", h.now)
	require.NoError(t, err)
	h.send(t, "21.02.2026")

	reply := h.send(t, "22.02.2026")
	assert.Equal(t, wizard.StepWaitTime, h.step(t))
	assert.Contains(t, reply.Text, "Не распознал время")

	s, _, err := h.events.Load(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, s.Date)
	assert.Equal(t, "2026-02-21", s.Date.String())
}

func TestEventFlow_BareNumbersAnswerTheCurrentStep(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.w.StartEvent(context.Background(), userID, "создать событие", h.now)
	require.NoError(t, err)
	h.send(t, "21.02.2026")
	h.send(t, "в 9")
	h.send(t, "Планёрка")

	reply := h.send(t, "45")
	require.NotNil(t, reply.Commit)
	assert.Equal(t, 9, reply.Commit.StartsAt.Hour())
	assert.Equal(t, 45*time.Minute, reply.Commit.EndsAt.Sub(reply.Commit.StartsAt))
}

func TestEventFlow_EmptyAnswerKeepsSession(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.w.StartEvent(context.Background(), userID, "создать событие", h.now)
	require.NoError(t, err)

	reply := h.send(t, "   ")
	assert.True(t, reply.Active)
	assert.Contains(t, reply.Text, "не вижу ответа")
	assert.Equal(t, wizard.StepWaitDate, h.step(t))
}

func TestEventFlow_NoSessionIsNotHandled(t *testing.T) {
	h := newHarness(t, nil)
	_, handled, err := h.w.ContinueEvent(context.Background(), userID, "привет", h.now)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestEventFlow_ExtractorFillsSeveralSlots(t *testing.T) {
	ex := extraction.ExtractorFunc(func(_ context.Context, _ string, _ time.Time) extraction.Result {
		d, _ := temporal.NewDate(2026, time.March, 5)
		tod, _ := temporal.NewTimeOfDay(16, 0)
		return extraction.Found(extraction.IntentCreateMeeting, temporal.Fragment{
			Date:  &d,
			Time:  &tod,
			Title: temporal.Ptr("Ретро команды"),
		})
	})
	h := newHarness(t, ex)

	reply, err := h.w.StartEvent(context.Background(), userID, "создать событие", h.now)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepWaitDuration, h.step(t))
	assert.True(t, reply.Active)

	reply = h.send(t, "1 час")
	require.NotNil(t, reply.Commit)
	assert.Equal(t, "Ретро команды", reply.Commit.Title)
	assert.Equal(t, time.Date(2026, time.March, 5, 16, 0, 0, 0, h.now.Location()), reply.Commit.StartsAt)
	assert.Equal(t, time.Hour, reply.Commit.EndsAt.Sub(reply.Commit.StartsAt))
}

func TestEventFlow_FailingExtractorFallsBackToParsers(t *testing.T) {
	ex := extraction.ExtractorFunc(func(_ context.Context, _ string, _ time.Time) extraction.Result {
		return extraction.Failed(errors.New("boom"))
	})
	h := newHarness(t, ex)

	_, err := h.w.StartEvent(context.Background(), userID, "создать событие завтра", h.now)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepWaitTime, h.step(t))
}

func TestEventFlow_ClockHourIsNotAlsoTheDuration(t *testing.T) {
	h := newHarness(t, nil)

	reply, err := h.w.StartEvent(context.Background(), userID, "создай встречу завтра 15 часов Ретро", h.now)
	require.NoError(t, err)
	assert.Nil(t, reply.Commit)
	assert.True(t, reply.Active)
	assert.Equal(t, wizard.StepWaitDuration, h.step(t))

	reply = h.send(t, "2 часа")
	require.NotNil(t, reply.Commit)
	assert.Equal(t, "Ретро", reply.Commit.Title)
	assert.Equal(t, time.Date(2026, time.February, 21, 15, 0, 0, 0, h.now.Location()), reply.Commit.StartsAt)
	assert.Equal(t, 2*time.Hour, reply.Commit.EndsAt.Sub(reply.Commit.StartsAt))
}

func TestEventFlow_HourAnswerToTimeStillAsksDuration(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.w.StartEvent(context.Background(), userID, "создай событие", h.now)
	require.NoError(t, err)
	h.send(t, "послезавтра")

	h.send(t, "15 часов")
	assert.Equal(t, wizard.StepWaitTitle, h.step(t))
	h.send(t, "Ретро")
	assert.Equal(t, wizard.StepWaitDuration, h.step(t))

	reply := h.send(t, "пропустить")
	require.NotNil(t, reply.Commit)
	assert.Equal(t, time.Date(2026, time.February, 22, 15, 0, 0, 0, h.now.Location()), reply.Commit.StartsAt)
	assert.Equal(t, time.Hour, reply.Commit.EndsAt.Sub(reply.Commit.StartsAt))
}

func TestEventFlow_DottedClockAnswersTime(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.w.StartEvent(context.Background(), userID, "создать событие", h.now)
	require.NoError(t, err)
	h.send(t, "21.02.2026")

	h.send(t, "10.05")
	assert.Equal(t, wizard.StepWaitTitle, h.step(t))

	s, _, err := h.events.Load(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, s.Time)
	assert.Equal(t, "10:05", s.Time.String())
	assert.Equal(t, "2026-02-21", s.Date.String())
}

func seedNotes(t *testing.T, h *harness) []notes.Note {
	t.Helper()
	var created []notes.Note
	for _, text := range []string{"Buy milk", "Call Bob", "Draft report"} {
		n, err := h.store.Create(context.Background(), userID, text, text)
		require.NoError(t, err)
		created = append(created, n)
	}
	return created
}

func (h *harness) sendNote(t *testing.T, text string) wizard.Reply {
	t.Helper()
	reply, handled, err := h.w.ContinueNote(context.Background(), userID, text, h.now)
	require.NoError(t, err)
	require.True(t, handled)
	return reply
}

func (h *harness) noteSession(t *testing.T) (wizard.NoteSession, bool) {
	t.Helper()
	s, ok, err := h.notes.Load(context.Background(), userID)
	require.NoError(t, err)
	return s, ok
}

func TestNoteFlow_EditByNumber(t *testing.T) {
	h := newHarness(t, nil)
	created := seedNotes(t, h)

	reply, err := h.w.StartNote(context.Background(), userID, wizard.ModeEdit, h.now)
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Шаг 1/2")

	reply = h.sendNote(t, "2")
	assert.Contains(t, reply.Text, "№2")
	s, ok := h.noteSession(t)
	require.True(t, ok)
	assert.Equal(t, wizard.StepWaitNewText, s.Step)
	require.NotNil(t, s.TargetNoteID)
	assert.Equal(t, created[1].ID, *s.TargetNoteID)

	reply = h.sendNote(t, "Call Bob at 5pm")
	require.NotNil(t, reply.Commit)
	assert.Equal(t, wizard.CommitNoteEdit, reply.Commit.Kind)
	assert.Equal(t, created[1].ID, reply.Commit.NoteID)
	assert.Equal(t, "Call Bob at 5pm", reply.Commit.NoteContent)
	assert.Equal(t, "📝 Заметка обновлена: №2", reply.Text)
	_, ok = h.noteSession(t)
	assert.False(t, ok)
}

func TestNoteFlow_OutOfRangeNumberKeepsStep(t *testing.T) {
	h := newHarness(t, nil)
	seedNotes(t, h)
	_, err := h.w.StartNote(context.Background(), userID, wizard.ModeEdit, h.now)
	require.NoError(t, err)

	reply := h.sendNote(t, "7")
	assert.Contains(t, reply.Text, "не найдена")
	s, ok := h.noteSession(t)
	require.True(t, ok)
	assert.Equal(t, wizard.StepWaitNoteNumber, s.Step)

	reply = h.sendNote(t, "какая-то")
	assert.Contains(t, reply.Text, "Нужен номер")
}

func TestNoteFlow_Delete(t *testing.T) {
	h := newHarness(t, nil)
	created := seedNotes(t, h)
	_, err := h.w.StartNote(context.Background(), userID, wizard.ModeDelete, h.now)
	require.NoError(t, err)

	reply := h.sendNote(t, "3")
	require.NotNil(t, reply.Commit)
	assert.Equal(t, wizard.CommitNoteDelete, reply.Commit.Kind)
	assert.Equal(t, created[0].ID, reply.Commit.NoteID)
	assert.Equal(t, "🗑 Заметка удалена: №3", reply.Text)
	_, ok := h.noteSession(t)
	assert.False(t, ok)
}

func TestNoteFlow_CorruptedStepResets(t *testing.T) {
	h := newHarness(t, nil)
	seedNotes(t, h)
	require.NoError(t, h.notes.Save(context.Background(), userID, wizard.NoteSession{Step: "BOGUS", Mode: wizard.ModeEdit}))

	reply := h.sendNote(t, "2")
	assert.True(t, reply.Active)
	s, ok := h.noteSession(t)
	require.True(t, ok)
	assert.Equal(t, wizard.StepWaitNoteNumber, s.Step)
	assert.Nil(t, s.TargetNoteID)
}

func TestNoteFlow_LostTargetAsksForNumberAgain(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.notes.Save(context.Background(), userID, wizard.NoteSession{Step: wizard.StepWaitNewText, Mode: wizard.ModeEdit}))

	reply := h.sendNote(t, "новый текст")
	assert.Contains(t, reply.Text, "Потерял номер")
	s, ok := h.noteSession(t)
	require.True(t, ok)
	assert.Equal(t, wizard.StepWaitNoteNumber, s.Step)
}

func TestNoteFlow_ArchivedTargetIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	created := seedNotes(t, h)
	_, err := h.w.StartNote(context.Background(), userID, wizard.ModeEdit, h.now)
	require.NoError(t, err)
	h.sendNote(t, "1")

	_, err = h.store.Archive(context.Background(), userID, created[2].ID)
	require.NoError(t, err)

	reply := h.sendNote(t, "новый текст")
	assert.Nil(t, reply.Commit)
	assert.Contains(t, reply.Text, "не найдена")
	_, ok := h.noteSession(t)
	assert.False(t, ok)
}

func TestNoteFlow_Cancel(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.w.StartNote(context.Background(), userID, wizard.ModeEdit, h.now)
	require.NoError(t, err)

	reply := h.sendNote(t, "отмена")
	assert.Equal(t, "Редактирование заметки отменено.", reply.Text)
	_, ok := h.noteSession(t)
	assert.False(t, ok)
}

func TestTriggers(t *testing.T) {
	assert.True(t, wizard.IsEventTrigger("Создать событие"))
	assert.True(t, wizard.IsEventTrigger("создай встречу завтра в 15"))
	assert.True(t, wizard.IsEventTrigger("пожалуйста, добавь событие"))
	assert.False(t, wizard.IsEventTrigger("встреча завтра"))
	assert.False(t, wizard.IsEventTrigger(""))

	assert.True(t, wizard.IsNoteEditTrigger("✏️"))
	assert.True(t, wizard.IsNoteEditTrigger("Редактировать заметку"))
	assert.False(t, wizard.IsNoteEditTrigger("✏️ 2 новый текст"))
	assert.True(t, wizard.IsNoteDeleteTrigger("🗑"))
	assert.False(t, wizard.IsNoteDeleteTrigger("🗑 3"))

	assert.True(t, wizard.IsCancel("❌ Отмена"))
	assert.True(t, wizard.IsCancel("/cancel"))
	assert.True(t, wizard.IsCancel("давай отменить"))
	assert.False(t, wizard.IsCancel("Sync"))
}

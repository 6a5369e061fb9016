package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assistantbot/internal/calendar"
	"assistantbot/internal/intent"
	"assistantbot/internal/meetings"
	"assistantbot/internal/notes"
	"assistantbot/internal/temporal"
	"assistantbot/internal/title"
	"assistantbot/internal/wizard"

	"github.com/sirupsen/logrus"
)

const (
	googleWarning   = "\n⚠️ Не удалось добавить событие в Google Calendar."
	noteTitleLength = 70
)

func (d *Dispatcher) applyWizard(ctx context.Context, userID int64, reply wizard.Reply, now time.Time) Result {
	res := Result{Reply: reply.Text, InFlow: reply.Active}
	c := reply.Commit
	if c == nil {
		return res
	}

	switch c.Kind {
	case wizard.CommitMeeting:
		m, warn, err := d.createMeeting(ctx, userID, c.Title, c.StartsAt, c.EndsAt, "", now.Location())
		if err != nil {
			logrus.WithField("user_id", userID).Errorf("Ошибка при создании встречи: %v", err)
			return failed()
		}
		res.Reply += warn
		res.Classification = intent.ClassMeeting
		res.Committed = &Committed{
			Action:   intent.ActionCreateMeeting,
			Title:    m.Title,
			StartsAt: temporal.Ptr(m.StartsAt),
			EndsAt:   temporal.Ptr(m.EndsAt),
		}

	case wizard.CommitNoteEdit:
		_, ok, err := d.notes.Update(ctx, userID, c.NoteID, c.Title, c.NoteContent)
		if err != nil {
			logrus.WithField("user_id", userID).Errorf("Ошибка при обновлении заметки: %v", err)
			return failed()
		}
		if !ok {
			return Result{Reply: "Заметка не найдена. Запустите редактирование заново."}
		}
		res.Committed = &Committed{
			Action:      intent.ActionEditNote,
			Title:       c.Title,
			NoteID:      c.NoteID,
			NoteNumber:  c.NoteNumber,
			NoteContent: c.NoteContent,
		}

	case wizard.CommitNoteDelete:
		ok, err := d.notes.Archive(ctx, userID, c.NoteID)
		if err != nil {
			logrus.WithField("user_id", userID).Errorf("Ошибка при удалении заметки: %v", err)
			return failed()
		}
		if !ok {
			return Result{Reply: "Заметка не найдена или уже удалена."}
		}
		res.Committed = &Committed{
			Action:     intent.ActionDeleteNote,
			Title:      c.Title,
			NoteID:     c.NoteID,
			NoteNumber: c.NoteNumber,
		}
	}
	return res
}

func (d *Dispatcher) startNoteFlow(ctx context.Context, userID int64, mode wizard.NoteMode, now time.Time) Result {
	list, err := d.notes.ListRecent(ctx, userID, notes.RecentLimit)
	if err != nil {
		logrus.WithField("user_id", userID).Errorf("Ошибка при получении списка заметок: %v", err)
		return failed()
	}
	if len(list) == 0 {
		return Result{Reply: emptyNotes}
	}
	reply, err := d.wizard.StartNote(ctx, userID, mode, now)
	if err != nil {
		logrus.WithField("user_id", userID).Errorf("Ошибка при запуске редактирования заметки: %v", err)
		return failed()
	}
	return Result{Reply: reply.Text + "\n\n" + renderNotes(list), InFlow: reply.Active}
}

func (d *Dispatcher) applyIntent(ctx context.Context, userID int64, in intent.Intent, now time.Time) Result {
	res := Result{Reply: in.ResponseText, Classification: in.Classification, Status: in.Status}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "action": in.Action})

	switch in.Action {
	case intent.ActionCreateMeeting:
		m, warn, err := d.createMeeting(ctx, userID, in.Title, *in.StartsAt, *in.EndsAt, in.ExternalLink, now.Location())
		if err != nil {
			log.Errorf("Ошибка при создании встречи: %v", err)
			return failed()
		}
		res.Reply += warn
		res.Committed = &Committed{
			Action:       in.Action,
			Title:        m.Title,
			StartsAt:     temporal.Ptr(m.StartsAt),
			EndsAt:       temporal.Ptr(m.EndsAt),
			ExternalLink: m.ExternalLink,
		}

	case intent.ActionCreateTask:
		t, err := d.meetings.CreateTask(ctx, meetings.Task{
			UserID:       userID,
			Title:        in.Title,
			Priority:     string(in.Priority),
			DueAt:        *in.DueAt,
			ExternalLink: in.ExternalLink,
		})
		if err != nil {
			log.Errorf("Ошибка при создании задачи: %v", err)
			return failed()
		}
		res.Committed = &Committed{Action: in.Action, Title: t.Title, DueAt: temporal.Ptr(t.DueAt), ExternalLink: t.ExternalLink}

	case intent.ActionCreateNote:
		n, err := d.notes.Create(ctx, userID, in.Title, in.NoteContent)
		if err != nil {
			log.Errorf("Ошибка при создании заметки: %v", err)
			return failed()
		}
		res.Committed = &Committed{Action: in.Action, Title: n.Title, NoteID: n.ID, NoteNumber: 1, NoteContent: n.Content, ExternalLink: in.ExternalLink}

	case intent.ActionEditNote, intent.ActionDeleteNote:
		return d.applyNoteCommand(ctx, userID, in)

	case intent.ActionShowNotes:
		list, err := d.notes.ListRecent(ctx, userID, notes.RecentLimit)
		if err != nil {
			log.Errorf("Ошибка при получении списка заметок: %v", err)
			return failed()
		}
		if len(list) == 0 {
			res.Reply = emptyNotes
		} else {
			res.Reply = renderNotes(list)
		}

	case intent.ActionShowSchedule:
		text, err := d.renderSchedule(ctx, userID, in.ScheduleRange, now)
		if err != nil {
			log.Errorf("Ошибка при получении расписания: %v", err)
			return failed()
		}
		res.Reply = text

	case intent.ActionInfo:
		if in.Rule == intent.RuleGoogleConnect {
			res.Reply = d.connectReply(userID)
		}
	}
	return res
}

func (d *Dispatcher) applyNoteCommand(ctx context.Context, userID int64, in intent.Intent) Result {
	res := Result{Classification: in.Classification, Status: in.Status}
	note, number, err := notes.Resolve(ctx, d.notes, userID, in.NoteRef)
	if errors.Is(err, notes.ErrNoteNotFound) {
		res.Reply = "Заметка не найдена. Откройте 📝 Заметки и проверьте номер."
		res.Status = intent.StatusNeedsClarification
		return res
	}
	if err != nil {
		logrus.WithField("user_id", userID).Errorf("Ошибка при поиске заметки: %v", err)
		return failed()
	}
	label := noteLabel(number)

	if in.Action == intent.ActionDeleteNote {
		if _, err := d.notes.Archive(ctx, userID, note.ID); err != nil {
			logrus.WithField("user_id", userID).Errorf("Ошибка при удалении заметки: %v", err)
			return failed()
		}
		res.Reply = "🗑 Заметка удалена: " + label
		res.Committed = &Committed{Action: in.Action, Title: note.Title, NoteID: note.ID, NoteNumber: number}
		return res
	}

	name := title.Truncate(in.NoteContent, noteTitleLength)
	if _, _, err := d.notes.Update(ctx, userID, note.ID, name, in.NoteContent); err != nil {
		logrus.WithField("user_id", userID).Errorf("Ошибка при обновлении заметки: %v", err)
		return failed()
	}
	res.Reply = "📝 Заметка обновлена: " + label
	res.Committed = &Committed{Action: in.Action, Title: name, NoteID: note.ID, NoteNumber: number, NoteContent: in.NoteContent}
	return res
}

// createMeeting stores the meeting and pushes it to Google when the user is
// connected. warn is appended to the reply when the push fails.
func (d *Dispatcher) createMeeting(ctx context.Context, userID int64, name string, start, end time.Time, link string, loc *time.Location) (meetings.Meeting, string, error) {
	m, err := d.meetings.CreateMeeting(ctx, meetings.Meeting{
		UserID:       userID,
		Title:        name,
		StartsAt:     start,
		EndsAt:       end,
		ExternalLink: link,
	})
	if err != nil {
		return meetings.Meeting{}, "", err
	}
	if d.calendar == nil || !d.calendar.Enabled() {
		return m, "", nil
	}

	googleID, err := d.calendar.Push(ctx, userID, calendar.Event{
		Title:       m.Title,
		Description: m.ExternalLink,
		StartsAt:    m.StartsAt,
		EndsAt:      m.EndsAt,
	}, loc)
	if errors.Is(err, calendar.ErrNotConnected) {
		return m, "", nil
	}
	if err != nil {
		logrus.WithField("user_id", userID).Warnf("Не удалось создать событие в Google Calendar: %v", err)
		return m, googleWarning, nil
	}
	if err := d.meetings.SetGoogleEventID(ctx, m.ID, googleID); err != nil {
		logrus.WithField("user_id", userID).Warnf("Ошибка при сохранении google_event_id: %v", err)
	}
	m.GoogleEventID = googleID
	return m, "", nil
}

func (d *Dispatcher) connectReply(userID int64) string {
	if d.calendar == nil || !d.calendar.Enabled() {
		return "Google Calendar не настроен на этом сервере."
	}
	url, err := d.calendar.ConnectURL(userID)
	if err != nil {
		logrus.WithField("user_id", userID).Errorf("Ошибка при создании ссылки Google: %v", err)
		return apology
	}
	return fmt.Sprintf("Чтобы подключить Google Calendar, откройте ссылку:\n%s", url)
}

func noteLabel(number int) string {
	if number <= 0 {
		return "без номера"
	}
	return fmt.Sprintf("№%d", number)
}

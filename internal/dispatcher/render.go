package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"assistantbot/internal/calendar"
	"assistantbot/internal/intent"
	"assistantbot/internal/meetings"
	"assistantbot/internal/notes"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const emptyNotes = "📭 Заметок пока нет. Напишите «заметка: текст», чтобы добавить."

func renderNotes(list []notes.Note) string {
	var b strings.Builder
	b.WriteString("📝 Ваши заметки:")
	for i, n := range list {
		fmt.Fprintf(&b, "\n[%d] %s", i+1, n.Title)
	}
	return b.String()
}

type scheduleLine struct {
	at   time.Time
	text string
}

// renderSchedule lists meetings, tasks and Google events of the range in the
// user's zone. Google failures only drop the Google part.
func (d *Dispatcher) renderSchedule(ctx context.Context, userID int64, r intent.ScheduleRange, now time.Time) (string, error) {
	from, to := r.Bounds(now)
	loc := now.Location()

	var (
		mts    []meetings.Meeting
		tasks  []meetings.Task
		google []calendar.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mts, err = d.meetings.MeetingsBetween(gctx, userID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = d.meetings.TasksBetween(gctx, userID, from, to)
		return err
	})
	if d.calendar != nil && d.calendar.Enabled() {
		g.Go(func() error {
			events, err := d.calendar.Events(gctx, userID, from, to)
			if err != nil {
				logrus.WithField("user_id", userID).Warnf("Не удалось получить события Google Calendar: %v", err)
				return nil
			}
			google = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	layout := "15:04"
	if r == intent.RangeWeek {
		layout = "02.01 15:04"
	}

	pushed := make(map[string]bool, len(mts))
	var events []scheduleLine
	for _, m := range mts {
		if m.GoogleEventID != "" {
			pushed[m.GoogleEventID] = true
		}
		line := fmt.Sprintf("• %s–%s %s", m.StartsAt.In(loc).Format(layout), m.EndsAt.In(loc).Format("15:04"), m.Title)
		if m.ExternalLink != "" {
			line += " 🔗 " + m.ExternalLink
		}
		events = append(events, scheduleLine{at: m.StartsAt, text: line})
	}
	for _, e := range google {
		if pushed[e.ID] {
			continue
		}
		when := e.StartsAt.In(loc).Format(layout)
		if e.AllDay {
			when = "весь день"
			if r == intent.RangeWeek {
				when = e.StartsAt.In(loc).Format("02.01") + " весь день"
			}
		}
		events = append(events, scheduleLine{at: e.StartsAt, text: fmt.Sprintf("• %s %s (Google)", when, e.Title)})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

	if len(events) == 0 && len(tasks) == 0 {
		return fmt.Sprintf("📭 На %s событий и задач не найдено.", r.Label()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Расписание на %s:", r.Label())
	for _, e := range events {
		b.WriteString("\n" + e.text)
	}
	if len(tasks) > 0 {
		b.WriteString("\n\n✅ Задачи:")
		for _, t := range tasks {
			fmt.Fprintf(&b, "\n• до %s %s", t.DueAt.In(loc).Format(layout), t.Title)
		}
	}
	return b.String(), nil
}

// Package wizard runs the multi-turn flows: collecting the four slots of a
// new event, and picking a note by number to edit or delete. Sessions live
// in injected stores; the wizard never writes domain records itself but
// returns a Commit for the caller to apply.
package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"assistantbot/internal/extraction"
	"assistantbot/internal/metrics"
	"assistantbot/internal/pattern"
	"assistantbot/internal/temporal"
	"assistantbot/internal/title"

	"github.com/dlclark/regexp2"
)

const (
	flowEvent = "event"
	flowNote  = "note"
)

var (
	bareHourRe   = pattern.Compile(`^\s*(?:в\s+)?(\d{1,2})\s*$`)
	bareClockRe  = pattern.Compile(`^\s*(?:в\s+)?(\d{1,2})[.:](\d{2})\s*$`)
	bareNumberRe = pattern.Compile(`^\s*(\d{1,4})\s*$`)
)

type Wizard struct {
	events    Store[EventSession]
	notes     Store[NoteSession]
	lister    NoteLister
	extractor extraction.Extractor
	timeout   time.Duration
}

// New wires the wizard. extractor may be nil.
func New(events Store[EventSession], notes Store[NoteSession], lister NoteLister, extractor extraction.Extractor, timeout time.Duration) *Wizard {
	return &Wizard{
		events:    events,
		notes:     notes,
		lister:    lister,
		extractor: extractor,
		timeout:   timeout,
	}
}

// StartEvent opens the event flow seeded from the triggering message. The
// message may resolve several slots at once, or all of them.
func (w *Wizard) StartEvent(ctx context.Context, userID int64, text string, now time.Time) (Reply, error) {
	metrics.WizardTransitions.WithLabelValues(flowEvent, "started").Inc()
	s := w.fill(ctx, EventSession{}, strings.TrimSpace(text), now, true)
	return w.advance(ctx, userID, s, "", now)
}

// ContinueEvent feeds a message into the user's open event session. handled
// is false when there is no session.
func (w *Wizard) ContinueEvent(ctx context.Context, userID int64, text string, now time.Time) (reply Reply, handled bool, err error) {
	s, ok, err := w.events.Load(ctx, userID)
	if err != nil {
		return Reply{}, false, fmt.Errorf("ошибка при загрузке сессии события: %w", err)
	}
	if !ok {
		return Reply{}, false, nil
	}

	if IsCancel(text) {
		if err := w.events.Delete(ctx, userID); err != nil {
			return Reply{}, true, fmt.Errorf("ошибка при удалении сессии события: %w", err)
		}
		metrics.WizardTransitions.WithLabelValues(flowEvent, "cancelled").Inc()
		return Reply{Text: "Создание события отменено."}, true, nil
	}

	input := strings.TrimSpace(text)
	if input == "" {
		metrics.WizardTransitions.WithLabelValues(flowEvent, "rejected").Inc()
		return Reply{Text: "Я не вижу ответа. Напишите текстом или нажмите ❌ Отмена.", Active: true}, true, nil
	}

	previous := s.Step
	s = w.fill(ctx, s, input, now, IsEventTrigger(input))
	s = applyLiteral(s, previous, input)
	reply, err = w.advance(ctx, userID, s, previous, now)
	return reply, true, err
}

// HasEvent reports whether the user has an open event session.
func (w *Wizard) HasEvent(ctx context.Context, userID int64) (bool, error) {
	_, ok, err := w.events.Load(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка при загрузке сессии события: %w", err)
	}
	return ok, nil
}

// fill merges what the message reveals into s without touching set slots.
// Extracted fields go first, heuristics fill the rest.
func (w *Wizard) fill(ctx context.Context, s EventSession, input string, now time.Time, fromCommand bool) EventSession {
	if input == "" {
		return s
	}
	if w.extractor != nil {
		res := extraction.Call(ctx, w.extractor, w.timeout, input, now)
		f := res.Fields()
		if f.Title != nil {
			if t, ok := title.Extract(*f.Title); ok {
				f.Title = &t
			} else {
				f.Title = nil
			}
		}
		if f.DurationMinutes != nil && *f.DurationMinutes <= 0 {
			f.DurationMinutes = nil
		}
		s = s.merge(f)
	}

	heuristic := temporal.ParseFragment(input, now)
	if fromCommand {
		if t, ok := title.Extract(input); ok {
			heuristic.Title = &t
		}
	}
	return s.merge(heuristic)
}

// applyLiteral reads the whole message as the value of the step that was
// being asked for, when the parsers found nothing for it.
func applyLiteral(s EventSession, step Step, input string) EventSession {
	switch step {
	case StepWaitTitle:
		if s.Title == nil || *s.Title == "" {
			t, ok := title.Extract(input)
			if !ok {
				t = title.Clean(input, "")
			}
			if t != "" {
				s.Title = &t
			}
		}
	case StepWaitTime:
		if s.Time == nil {
			if m, err := bareHourRe.FindStringMatch(input); err == nil && m != nil {
				if tod, ok := temporal.NewTimeOfDay(atoi(m, 1), 0); ok {
					s.Time = &tod
				}
			}
		}
		// "10.05" reads as a date elsewhere; here the date is already known.
		if s.Time == nil {
			if m, err := bareClockRe.FindStringMatch(input); err == nil && m != nil {
				if tod, ok := temporal.NewTimeOfDay(atoi(m, 1), atoi(m, 2)); ok {
					s.Time = &tod
				}
			}
		}
	case StepWaitDuration:
		if s.DurationMinutes == nil {
			if n, ok := temporal.ParseDurationMinutes(input); ok && n > 0 {
				s.DurationMinutes = &n
			}
		}
		if s.DurationMinutes == nil {
			if m, err := bareNumberRe.FindStringMatch(input); err == nil && m != nil {
				if n := atoi(m, 1); n > 0 {
					s.DurationMinutes = &n
				}
			}
		}
	}
	return s
}

// advance saves s at its next missing step, or commits it when complete.
func (w *Wizard) advance(ctx context.Context, userID int64, s EventSession, previous Step, now time.Time) (Reply, error) {
	next, missing := s.NextStep()
	if missing {
		s.Step = next
		s.UpdatedAt = now
		if err := w.events.Save(ctx, userID, s); err != nil {
			return Reply{}, fmt.Errorf("ошибка при сохранении сессии события: %w", err)
		}
		metrics.WizardTransitions.WithLabelValues(flowEvent, "prompted").Inc()
		return Reply{Text: eventPrompt(next, previous), Active: true}, nil
	}

	name := title.Clean(*s.Title, title.FallbackEvent)
	start := s.Date.At(*s.Time, now.Location())
	end := start.Add(time.Duration(*s.DurationMinutes) * time.Minute)
	if err := w.events.Delete(ctx, userID); err != nil {
		return Reply{}, fmt.Errorf("ошибка при удалении сессии события: %w", err)
	}
	metrics.WizardTransitions.WithLabelValues(flowEvent, "committed").Inc()
	return Reply{
		Text: fmt.Sprintf("✅ Событие создано: %s\n🕒 %s", name, start.Format("2006-01-02 15:04")),
		Commit: &Commit{
			Kind:     CommitMeeting,
			Title:    name,
			StartsAt: start,
			EndsAt:   end,
		},
	}, nil
}

// eventPrompt asks for step. A step that did not move gets the "not
// recognised" wording with an example.
func eventPrompt(step, previous Step) string {
	if step == previous {
		switch step {
		case StepWaitDate:
			return "Не распознал дату. Напишите только дату: 21.02.2026 или 21 февраля."
		case StepWaitTime:
			return "Не распознал время. Напишите только время: 14:30 или в 14 часов."
		case StepWaitDuration:
			return "Не распознал длительность. Напишите только длительность: 30 минут, 1 час, 1.5 часа."
		}
	}
	switch step {
	case StepWaitDate:
		return "На какую дату? Например: 21.02.2026 или 21 февраля."
	case StepWaitTime:
		return "Во сколько? Например: 14:30 или в 14 часов."
	case StepWaitTitle:
		return "Как назвать событие? Напишите только название."
	default:
		return "Сколько продлится? Например: 30 минут, 1 час, 1.5 часа или «пропустить»."
	}
}

func atoi(m *regexp2.Match, i int) int {
	s, ok := pattern.Group(m, i)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

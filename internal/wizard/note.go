package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"assistantbot/internal/metrics"
	"assistantbot/internal/notes"
	"assistantbot/internal/title"
)

const noteTitleLength = 70

// StartNote opens the edit or delete flow at the note number step.
func (w *Wizard) StartNote(ctx context.Context, userID int64, mode NoteMode, now time.Time) (Reply, error) {
	s := NoteSession{Step: StepWaitNoteNumber, Mode: mode, UpdatedAt: now}
	if err := w.notes.Save(ctx, userID, s); err != nil {
		return Reply{}, fmt.Errorf("ошибка при сохранении сессии заметки: %w", err)
	}
	metrics.WizardTransitions.WithLabelValues(flowNote, "started").Inc()
	head := "Редактирование заметки."
	if mode == ModeDelete {
		head = "Удаление заметки."
	}
	return Reply{Text: head + "\nШаг 1/2: отправьте номер заметки из списка (например: 3).", Active: true}, nil
}

// HasNote reports whether the user has an open note session.
func (w *Wizard) HasNote(ctx context.Context, userID int64) (bool, error) {
	_, ok, err := w.notes.Load(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка при загрузке сессии заметки: %w", err)
	}
	return ok, nil
}

// ContinueNote feeds a message into the user's open note session. handled is
// false when there is no session.
func (w *Wizard) ContinueNote(ctx context.Context, userID int64, text string, now time.Time) (reply Reply, handled bool, err error) {
	s, ok, err := w.notes.Load(ctx, userID)
	if err != nil {
		return Reply{}, false, fmt.Errorf("ошибка при загрузке сессии заметки: %w", err)
	}
	if !ok {
		return Reply{}, false, nil
	}

	if IsCancel(text) {
		if err := w.notes.Delete(ctx, userID); err != nil {
			return Reply{}, true, fmt.Errorf("ошибка при удалении сессии заметки: %w", err)
		}
		metrics.WizardTransitions.WithLabelValues(flowNote, "cancelled").Inc()
		return Reply{Text: "Редактирование заметки отменено."}, true, nil
	}

	input := strings.TrimSpace(text)
	if input == "" {
		reply, err = w.keepNote(ctx, userID, s, now, "Пустой ответ. Отправьте номер заметки или нажмите ❌ Отмена.")
		return reply, true, err
	}
	if s.Mode == "" {
		s.Mode = ModeEdit
	}

	switch s.Step {
	case StepWaitNoteNumber:
		reply, err = w.pickNote(ctx, userID, s, input, now)
	case StepWaitNewText:
		reply, err = w.rewriteNote(ctx, userID, s, input, now)
	default:
		s.Step = StepWaitNoteNumber
		s.TargetNoteID, s.TargetNoteNumber = nil, nil
		reply, err = w.keepNote(ctx, userID, s, now, "Отправьте номер заметки из списка.")
	}
	return reply, true, err
}

func (w *Wizard) pickNote(ctx context.Context, userID int64, s NoteSession, input string, now time.Time) (Reply, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, input)
	if digits == "" {
		return w.keepNote(ctx, userID, s, now, "Нужен номер заметки, например: 3")
	}
	number, err := strconv.Atoi(digits)
	if err != nil {
		return w.keepNote(ctx, userID, s, now, "Нужен номер заметки, например: 3")
	}

	recent, err := w.lister.ListRecent(ctx, userID, notes.RecentLimit)
	if err != nil {
		return Reply{}, fmt.Errorf("ошибка при получении списка заметок: %w", err)
	}
	if number < 1 || number > len(recent) {
		return w.keepNote(ctx, userID, s, now, "Заметка с таким номером не найдена. Откройте 📝 Заметки и отправьте номер.")
	}
	note := recent[number-1]

	if s.Mode == ModeDelete {
		if err := w.notes.Delete(ctx, userID); err != nil {
			return Reply{}, fmt.Errorf("ошибка при удалении сессии заметки: %w", err)
		}
		metrics.WizardTransitions.WithLabelValues(flowNote, "committed").Inc()
		return Reply{
			Text:   fmt.Sprintf("🗑 Заметка удалена: №%d", number),
			Commit: &Commit{Kind: CommitNoteDelete, NoteID: note.ID, NoteNumber: number, Title: note.Title},
		}, nil
	}

	id := note.ID
	s.Step = StepWaitNewText
	s.TargetNoteID = &id
	s.TargetNoteNumber = &number
	s.UpdatedAt = now
	if err := w.notes.Save(ctx, userID, s); err != nil {
		return Reply{}, fmt.Errorf("ошибка при сохранении сессии заметки: %w", err)
	}
	metrics.WizardTransitions.WithLabelValues(flowNote, "prompted").Inc()
	return Reply{Text: fmt.Sprintf("Шаг 2/2: отправьте новый текст для заметки №%d.", number), Active: true}, nil
}

func (w *Wizard) rewriteNote(ctx context.Context, userID int64, s NoteSession, input string, now time.Time) (Reply, error) {
	if s.TargetNoteID == nil {
		s.Step = StepWaitNoteNumber
		s.TargetNoteNumber = nil
		return w.keepNote(ctx, userID, s, now, "Потерял номер заметки. Отправьте номер ещё раз.")
	}

	note, ok, err := w.lister.Get(ctx, userID, *s.TargetNoteID)
	if err != nil {
		return Reply{}, fmt.Errorf("ошибка при получении заметки: %w", err)
	}
	if err := w.notes.Delete(ctx, userID); err != nil {
		return Reply{}, fmt.Errorf("ошибка при удалении сессии заметки: %w", err)
	}
	if !ok || note.Archived {
		metrics.WizardTransitions.WithLabelValues(flowNote, "rejected").Inc()
		return Reply{Text: "Заметка не найдена. Запустите редактирование заново."}, nil
	}

	number := 0
	label := "?"
	if s.TargetNoteNumber != nil {
		number = *s.TargetNoteNumber
		label = strconv.Itoa(number)
	}
	metrics.WizardTransitions.WithLabelValues(flowNote, "committed").Inc()
	return Reply{
		Text: "📝 Заметка обновлена: №" + label,
		Commit: &Commit{
			Kind:        CommitNoteEdit,
			NoteID:      note.ID,
			NoteNumber:  number,
			Title:       title.Truncate(input, noteTitleLength),
			NoteContent: input,
		},
	}, nil
}

// keepNote re-saves s at its current step and reports msg.
func (w *Wizard) keepNote(ctx context.Context, userID int64, s NoteSession, now time.Time, msg string) (Reply, error) {
	s.UpdatedAt = now
	if err := w.notes.Save(ctx, userID, s); err != nil {
		return Reply{}, fmt.Errorf("ошибка при сохранении сессии заметки: %w", err)
	}
	metrics.WizardTransitions.WithLabelValues(flowNote, "rejected").Inc()
	return Reply{Text: msg, Active: true}, nil
}

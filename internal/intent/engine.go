package intent

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"assistantbot/internal/extraction"
	"assistantbot/internal/lexicon"
	"assistantbot/internal/metrics"
	"assistantbot/internal/pattern"
	"assistantbot/internal/temporal"
	"assistantbot/internal/textnorm"
	"assistantbot/internal/title"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const noteTitleLength = 70

var (
	linkRe    = pattern.Compile(`https?://\S+`)
	noteRefRe = pattern.Compile(`^\d{1,6}$`)
)

// input is one message prepared for the rules.
type input struct {
	raw    string
	folded string
	key    string
	now    time.Time
	link   string

	extracted extraction.Result
}

// rule is one step of the decision list. when decides whether the rule
// applies; then builds the intent.
type rule struct {
	name string
	when func(ctx context.Context, in *input) bool
	then func(in *input) Intent
}

// RuleGoogleConnect names the rule answering "connect my Google calendar";
// callers replace its reply with the consent link.
const RuleGoogleConnect = "google_connect"

type Engine struct {
	extractor extraction.Extractor
	timeout   time.Duration
	phrases   *Phrases
	rules     []rule
}

// NewEngine builds the engine. extractor may be nil; phrases nil means the
// embedded catalogue.
func NewEngine(extractor extraction.Extractor, timeout time.Duration, phrases *Phrases) *Engine {
	if phrases == nil {
		phrases = DefaultPhrases()
	}
	e := &Engine{extractor: extractor, timeout: timeout, phrases: phrases}
	e.rules = []rule{
		{name: "note_command", when: e.isNoteCommand, then: e.noteCommand},
		{name: "note_create", when: e.isNoteCreate, then: e.noteCreate},
		{name: "show_notes", when: e.isShowNotes, then: showNotes},
		{name: RuleGoogleConnect, when: e.isGoogleConnect, then: googleConnect},
		{name: "schedule", when: e.isSchedule, then: e.schedule},
		{name: "ui_labels", when: e.isUILabel, then: e.uiLabel},
		{name: "extraction", when: e.isExtractedMeeting, then: extractedMeeting},
		{name: "noise", when: e.isNoise, then: noise},
		{name: "meeting_hints", when: e.hasMeetingHint, then: hintedMeeting},
		{name: "task_hints", when: e.hasTaskHint, then: hintedTask},
		{name: "default", when: always, then: defaultNote},
	}
	return e
}

// RuleNames lists the rules in evaluation order.
func (e *Engine) RuleNames() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.name
	}
	return names
}

// Decide classifies text for a user in zone. It never fails.
func (e *Engine) Decide(ctx context.Context, text string, zone *time.Location) Intent {
	if zone == nil {
		zone = time.UTC
	}
	return e.DecideAt(ctx, text, time.Now().In(zone))
}

// DecideAt is Decide with an explicit clock; now carries the user's zone.
func (e *Engine) DecideAt(ctx context.Context, text string, now time.Time) Intent {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return record(withRule(clarification(), "empty"))
	}
	in := &input{
		raw:    raw,
		folded: lexicon.Fold(raw),
		key:    textnorm.CommandKey(raw),
		now:    now,
	}
	if m, err := linkRe.FindStringMatch(raw); err == nil && m != nil {
		in.link = m.String()
	}

	for _, r := range e.rules {
		if r.when(ctx, in) {
			logrus.WithFields(logrus.Fields{"rule": r.name}).Debug("Сработало правило намерения")
			return record(withRule(r.then(in), r.name))
		}
	}
	return record(withRule(defaultNote(in), "default"))
}

func record(i Intent) Intent {
	metrics.Intents.WithLabelValues(string(i.Action)).Inc()
	return i
}

func withRule(i Intent, name string) Intent {
	i.Rule = name
	return i
}

func always(context.Context, *input) bool { return true }

// note_command

func (e *Engine) isNoteCommand(_ context.Context, in *input) bool {
	_, _, ok := e.parseNoteCommand(in)
	return ok
}

func (e *Engine) noteCommand(in *input) Intent {
	action, args, _ := e.parseNoteCommand(in)
	ref := args[0]
	if action == ActionDeleteNote {
		return Intent{
			Action:         ActionDeleteNote,
			Classification: ClassInfoOnly,
			Status:         StatusProcessed,
			Title:          "Удаление заметки",
			Priority:       PriorityLow,
			NoteRef:        ref,
			ResponseText:   "🗑 Заметка удалена.",
		}
	}
	content := strings.TrimSpace(args[1])
	if content == "" {
		return clarification()
	}
	return Intent{
		Action:         ActionEditNote,
		Classification: ClassInfoOnly,
		Status:         StatusProcessed,
		Title:          "Редактирование заметки",
		Priority:       PriorityLow,
		NoteRef:        ref,
		NoteContent:    content,
		ResponseText:   "📝 Заметка обновлена.",
	}
}

// parseNoteCommand returns the action and [ref, content]. It only matches
// when the reference is a note number or id, so button labels fall through.
func (e *Engine) parseNoteCommand(in *input) (Action, [2]string, bool) {
	var args [2]string
	action := ActionEditNote
	n, ok := matchPrefix(in.folded, e.phrases.NoteEditPrefixes)
	if !ok {
		action = ActionDeleteNote
		if n, ok = matchPrefix(in.folded, e.phrases.NoteDeletePrefixes); !ok {
			return "", args, false
		}
	}
	rest := strings.TrimSpace(string([]rune(in.raw)[n:]))
	ref, content := rest, ""
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		ref, content = rest[:i], rest[i:]
	}
	if !IsNoteRef(ref) {
		return "", args, false
	}
	args[0], args[1] = ref, content
	return action, args, true
}

// IsNoteRef reports whether s is a list number or a note id.
func IsNoteRef(s string) bool {
	if pattern.Matches(noteRefRe, s) {
		return true
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// note_create

func (e *Engine) isNoteCreate(_ context.Context, in *input) bool {
	_, ok := matchPrefix(in.folded, e.phrases.NoteCreatePrefixes)
	return ok
}

func (e *Engine) noteCreate(in *input) Intent {
	n, _ := matchPrefix(in.folded, e.phrases.NoteCreatePrefixes)
	content := strings.TrimSpace(string([]rune(in.raw)[n:]))
	if content == "" {
		return clarification()
	}
	return Intent{
		Action:         ActionCreateNote,
		Classification: ClassInfoOnly,
		Status:         StatusProcessed,
		Title:          title.Truncate(content, noteTitleLength),
		Priority:       PriorityLow,
		NoteContent:    content,
		ResponseText:   "📝 Заметка сохранена.",
	}
}

// show_notes

func (e *Engine) isShowNotes(_ context.Context, in *input) bool {
	return containsAny(in.folded, e.phrases.ShowNotes)
}

func showNotes(*input) Intent {
	i := info("Мои заметки", "Показываю ваши заметки.")
	i.Action = ActionShowNotes
	return i
}

// google_connect

func (e *Engine) isGoogleConnect(_ context.Context, in *input) bool {
	g := e.phrases.GoogleConnect
	if containsAny(in.folded, g.Exact) {
		return true
	}
	return containsAny(in.folded, g.GoogleWords) && containsAny(in.folded, g.ConnectWords)
}

func googleConnect(*input) Intent {
	return info("Google connect", "Чтобы синхронизировать Google Calendar, нажмите кнопку подключения.")
}

// schedule

func (e *Engine) isSchedule(_ context.Context, in *input) bool {
	s := e.phrases.Schedule
	return containsAny(in.folded, s.Keywords) || equalsAny(in.key, s.RangeOnly)
}

func (e *Engine) schedule(in *input) Intent {
	r := RangeToday
	switch {
	case containsAny(in.folded, e.phrases.Schedule.Tomorrow):
		r = RangeTomorrow
	case containsAny(in.folded, e.phrases.Schedule.Week):
		r = RangeWeek
	}
	i := info("Расписание", "Показываю расписание.")
	i.Action = ActionShowSchedule
	i.ScheduleRange = r
	return i
}

// ui_labels

func (e *Engine) isUILabel(_ context.Context, in *input) bool {
	return containsAny(in.folded, e.phrases.UILabels.EditNote) || containsAny(in.folded, e.phrases.UILabels.DeleteNote)
}

func (e *Engine) uiLabel(in *input) Intent {
	if containsAny(in.folded, e.phrases.UILabels.EditNote) {
		return info("Редактирование заметки", "Введите: `✏️ <номер> новый текст`")
	}
	return info("Удаление заметки", "Введите: `🗑 <номер>`")
}

// extraction

func (e *Engine) isExtractedMeeting(ctx context.Context, in *input) bool {
	if e.extractor == nil {
		return false
	}
	in.extracted = extraction.Call(ctx, e.extractor, e.timeout, in.raw, in.now)
	return in.extracted.CreatesMeeting()
}

func extractedMeeting(in *input) Intent {
	f := in.extracted.Fields()
	date := temporal.Coalesce(f.Date, optional(temporal.ParseDate(in.raw, in.now)))
	tod := temporal.Coalesce(f.Time, optional(temporal.ParseTime(in.raw)))
	duration := temporal.Coalesce(f.DurationMinutes, optional(temporal.ParseMeetingDuration(in.raw)))

	d := temporal.DateOf(in.now)
	if date != nil {
		d = *date
	}
	t := temporal.DefaultMeetingTime
	if tod != nil {
		t = *tod
	}
	minutes := temporal.DefaultDurationMinutes
	if duration != nil && *duration > 0 {
		minutes = *duration
	}

	name := ""
	if f.Title != nil {
		name = title.Clean(title.StripCommandPhrases(*f.Title), "")
	}
	if name == "" {
		name = title.OrDefault(in.raw, title.FallbackMeeting)
	}
	return meeting(name, d.At(t, in.now.Location()), minutes, in.link)
}

func optional[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

// noise

func (e *Engine) isNoise(_ context.Context, in *input) bool {
	if utf8.RuneCountInString(in.raw) <= 2 || in.key == "" {
		return true
	}
	for _, w := range strings.Fields(in.key) {
		if !equalsAny(w, e.phrases.Noise) {
			return false
		}
	}
	return true
}

func noise(*input) Intent {
	return Intent{
		Action:         ActionIgnore,
		Classification: ClassIgnore,
		Status:         StatusIgnored,
		Title:          "Игнор",
		Priority:       PriorityLow,
		ResponseText:   "Принял.",
	}
}

// hints

func (e *Engine) hasMeetingHint(_ context.Context, in *input) bool {
	if containsAny(in.folded, e.phrases.MeetingHints) {
		return true
	}
	return in.link != "" && !containsAny(in.folded, e.phrases.TaskHints)
}

func (e *Engine) hasTaskHint(_ context.Context, in *input) bool {
	return containsAny(in.folded, e.phrases.TaskHints)
}

func hintedMeeting(in *input) Intent {
	minutes := temporal.DefaultDurationMinutes
	if m, ok := temporal.ParseMeetingDuration(in.raw); ok && m > 0 {
		minutes = m
	}
	start := temporal.InferMeetingStart(in.raw, in.now)
	return meeting(title.OrDefault(in.raw, title.FallbackMeeting), start, minutes, in.link)
}

func hintedTask(in *input) Intent {
	due := temporal.InferTaskDue(in.raw, in.now)
	name := title.Clean(in.raw, title.FallbackTask)
	return Intent{
		Action:         ActionCreateTask,
		Classification: ClassTask,
		Status:         StatusProcessed,
		Title:          name,
		Priority:       PriorityMedium,
		DueAt:          &due,
		ExternalLink:   in.link,
		ResponseText:   "✅ Задача добавлена: " + name,
	}
}

func meeting(name string, start time.Time, minutes int, link string) Intent {
	end := start.Add(time.Duration(minutes) * time.Minute)
	return Intent{
		Action:         ActionCreateMeeting,
		Classification: ClassMeeting,
		Status:         StatusProcessed,
		Title:          name,
		Priority:       PriorityHigh,
		StartsAt:       &start,
		EndsAt:         &end,
		ExternalLink:   link,
		ResponseText:   fmt.Sprintf("✅ Встреча добавлена: %s\n🕒 %s", name, start.Format("2006-01-02 15:04")),
	}
}

// default

func defaultNote(in *input) Intent {
	return Intent{
		Action:         ActionCreateNote,
		Classification: ClassInfoOnly,
		Status:         StatusProcessed,
		Title:          title.Clean(in.raw, title.FallbackNote),
		Priority:       PriorityLow,
		NoteContent:    in.raw,
		ExternalLink:   in.link,
		ResponseText:   "📝 Сохранил как заметку.",
	}
}

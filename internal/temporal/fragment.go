package temporal

import (
	"strings"
	"time"

	"assistantbot/internal/lexicon"
)

// Fragment is whatever one message revealed about an event. nil means
// unknown.
type Fragment struct {
	Date            *Date
	Time            *TimeOfDay
	DurationMinutes *int
	Title           *string
}

// Coalesce returns the first non-nil pointer.
func Coalesce[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func Ptr[T any](v T) *T {
	return &v
}

// Merge keeps every field already set on f and fills the gaps from other.
func (f Fragment) Merge(other Fragment) Fragment {
	return Fragment{
		Date:            Coalesce(f.Date, other.Date),
		Time:            Coalesce(f.Time, other.Time),
		DurationMinutes: Coalesce(f.DurationMinutes, other.DurationMinutes),
		Title:           Coalesce(f.Title, other.Title),
	}
}

func (f Fragment) Complete() bool {
	return f.Date != nil && f.Time != nil && f.DurationMinutes != nil && f.Title != nil
}

func (f Fragment) Empty() bool {
	return f.Date == nil && f.Time == nil && f.DurationMinutes == nil && f.Title == nil
}

// ParseFragment runs the date, time and duration parsers. Titles are left to
// the title extractor.
func ParseFragment(text string, now time.Time) Fragment {
	var f Fragment
	if d, ok := ParseDate(text, now); ok {
		f.Date = &d
	}
	if t, ok := ParseTime(text); ok {
		f.Time = &t
	}
	if m, ok := ParseMeetingDuration(text); ok {
		f.DurationMinutes = &m
	}
	return f
}

var (
	DefaultMeetingTime = TimeOfDay{Hour: 11}
	taskTimeToday      = TimeOfDay{Hour: 20}
	taskTimeLater      = TimeOfDay{Hour: 12}
)

// InferDate falls back to today.
func InferDate(text string, now time.Time) Date {
	if d, ok := ParseDate(text, now); ok {
		return d
	}
	return DateOf(now)
}

func InferMeetingStart(text string, now time.Time) time.Time {
	tod, ok := ParseTime(text)
	if !ok {
		tod = DefaultMeetingTime
	}
	return InferDate(text, now).At(tod, now.Location())
}

// InferTaskDue uses an explicit time when there is one, otherwise the end of
// the working day for "сегодня" and noon for anything else.
func InferTaskDue(text string, now time.Time) time.Time {
	tod, ok := ParseTime(text)
	if !ok {
		folded := lexicon.Fold(text)
		if strings.Contains(folded, "сегодня") || strings.Contains(folded, "today") {
			tod = taskTimeToday
		} else {
			tod = taskTimeLater
		}
	}
	return InferDate(text, now).At(tod, now.Location())
}

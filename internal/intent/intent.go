package intent

import (
	"time"
)

type Action string

const (
	ActionCreateMeeting    Action = "CREATE_MEETING"
	ActionCreateTask       Action = "CREATE_TASK"
	ActionCreateNote       Action = "CREATE_NOTE"
	ActionEditNote         Action = "EDIT_NOTE"
	ActionDeleteNote       Action = "DELETE_NOTE"
	ActionShowNotes        Action = "SHOW_NOTES"
	ActionShowSchedule     Action = "SHOW_SCHEDULE"
	ActionInfo             Action = "INFO"
	ActionIgnore           Action = "IGNORE"
	ActionAskClarification Action = "ASK_CLARIFICATION"
)

type Classification string

const (
	ClassMeeting          Classification = "MEETING"
	ClassTask             Classification = "TASK"
	ClassInfoOnly         Classification = "INFO_ONLY"
	ClassIgnore           Classification = "IGNORE"
	ClassAskClarification Classification = "ASK_CLARIFICATION"
)

type Status string

const (
	StatusProcessed          Status = "PROCESSED"
	StatusIgnored            Status = "IGNORED"
	StatusNeedsClarification Status = "NEEDS_CLARIFICATION"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

type ScheduleRange string

const (
	RangeToday    ScheduleRange = "TODAY"
	RangeTomorrow ScheduleRange = "TOMORROW"
	RangeWeek     ScheduleRange = "WEEK"
)

// Label is the Russian phrase used in schedule headers.
func (r ScheduleRange) Label() string {
	switch r {
	case RangeTomorrow:
		return "завтра"
	case RangeWeek:
		return "неделю"
	default:
		return "сегодня"
	}
}

// Bounds returns [from, to) for the range, starting at midnight of now's day.
func (r ScheduleRange) Bounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch r {
	case RangeTomorrow:
		return today.AddDate(0, 0, 1), today.AddDate(0, 0, 2)
	case RangeWeek:
		return today, today.AddDate(0, 0, 7)
	default:
		return today, today.AddDate(0, 0, 1)
	}
}

// Intent is one decision about an inbound message. ResponseText is always
// set.
type Intent struct {
	Action         Action
	Classification Classification
	Status         Status
	Title          string
	Priority       Priority

	StartsAt *time.Time
	EndsAt   *time.Time
	DueAt    *time.Time

	ScheduleRange ScheduleRange
	NoteRef       string
	NoteContent   string
	ExternalLink  string

	ResponseText string
	// Rule names the rule that produced the intent.
	Rule string
}

func (i Intent) DurationMinutes() int {
	if i.StartsAt == nil || i.EndsAt == nil {
		return 0
	}
	return int(i.EndsAt.Sub(*i.StartsAt) / time.Minute)
}

func clarification() Intent {
	return Intent{
		Action:         ActionAskClarification,
		Classification: ClassAskClarification,
		Status:         StatusNeedsClarification,
		Title:          "Уточнить запрос",
		Priority:       PriorityMedium,
		ResponseText:   "Не вижу текста запроса. Отправьте, пожалуйста, задачу или встречу текстом.",
	}
}

func info(title, reply string) Intent {
	return Intent{
		Action:         ActionInfo,
		Classification: ClassInfoOnly,
		Status:         StatusProcessed,
		Title:          title,
		Priority:       PriorityLow,
		ResponseText:   reply,
	}
}

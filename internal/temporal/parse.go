package temporal

import (
	"strconv"
	"strings"
	"time"

	"assistantbot/internal/lexicon"
	"assistantbot/internal/pattern"

	"github.com/dlclark/regexp2"
)

var (
	numWord = `(?:` + lexicon.NumberWordsPattern() + `)(?!\p{L})`
	numPair = numWord + `(?:[\s\-]+` + numWord + `)?`

	relativeDayRe = pattern.Compile(`(?<!\p{L})(послезавтра|завтра|сегодня|day after tomorrow|tomorrow|today)(?!\p{L})`)

	decimalHoursRe = pattern.Compile(`(?<![\d.,])(\d{1,2})[.,](\d)\s*час`)
	numericDateRe  = pattern.Compile(`(?<![\d.,:/])(\d{1,2})[./](\d{1,2})(?:[./](\d{4}|\d{2}))?(?!\d)`)
	textDateRe     = pattern.Compile(`(?<!\d)(\d{1,2})\s+(` + lexicon.MonthPattern + `)(?!\p{L})(?:\s+(\d{4}))?`)
	wordDateRe     = pattern.Compile(`(?<!\p{L})(` + numPair + `)\s+(` + lexicon.MonthPattern + `)(?!\p{L})` +
		`(?:\s+(` + numWord + `(?:\s+` + numWord + `){0,4})\s+г(?:ода|од)?(?!\p{L}))?`)

	timeColonRe      = pattern.Compile(`(?<![\d.,:])(\d{1,2})[:.](\d{2})(?!\d)`)
	timeDayPartRe    = pattern.Compile(`(?:(?<!\p{L})(в)\s+)?(?<![\d.,:])(\d{1,2})\s*(час(?:а|ов)?\s+)?(утра|дня|вечера|ночи)(?!\p{L})`)
	timeHoursRe      = pattern.Compile(`(?<![\d.,])(?<!\bна\s{1,3})(\d{1,2})\s*час(?:а|ов)?(?!\p{L})`)
	timeWordDayPart  = pattern.Compile(`(?<!\p{L})(?:(в)\s+)?(` + numPair + `)\s+(час(?:а|ов)?\s+)?(утра|дня|вечера|ночи)(?!\p{L})`)
	timeWordHoursRe  = pattern.Compile(`(?<!\p{L})(?<!\bна\s{1,3})(?:в\s+)?(` + numPair + `)\s+час(?:а|ов)?(?!\p{L})`)
	timeQualitative  = pattern.Compile(`(?<!\p{L})(утром|днем|вечером|ночью|morning|afternoon|evening)(?!\p{L})`)
	durationMinRe    = pattern.Compile(`(?<![\d.,])(\d{1,3})\s*(?:мин(?:ут\p{L}*)?|min(?:ute)?s?)(?!\p{L})`)
	durationHourRe   = pattern.Compile(`(?<![\d.,])(?<!\bв\s{1,3})(\d{1,2})\s*час(?:а|ов)?(?!\p{L})`)
	durationWordHour = pattern.Compile(`(?<!\p{L})(?<!\bв\s{1,3})(` + numPair + `)\s+час(?:а|ов)?(?!\p{L})`)
	durationOneHour  = pattern.Compile(`^(?:на\s+)?(?:1\s*|один\s+)?час$|(?<!\p{L})на\s+час(?!\p{L})|an hour|1 hour`)
	durationHalfHour = pattern.Compile(`(?<!\p{L})полчаса(?!\p{L})`)
	durationOneHalf  = pattern.Compile(`(?<!\p{L})полтора\s+час\p{L}*`)
)

var qualitativeTimes = map[string]TimeOfDay{
	"утром":     {Hour: 10},
	"morning":   {Hour: 10},
	"днем":      {Hour: 14},
	"afternoon": {Hour: 14},
	"вечером":   {Hour: 18},
	"evening":   {Hour: 18},
	"ночью":     {Hour: 23},
}

var skipWords = map[string]bool{
	"пропустить": true,
	"пропуск":    true,
	"skip":       true,
}

const DefaultDurationMinutes = 60

// ParseDate finds the first date in text. now carries the user's zone; it
// anchors relative words and the year of dates written without one.
func ParseDate(text string, now time.Time) (Date, bool) {
	s := lexicon.Fold(text)
	if strings.TrimSpace(s) == "" {
		return Date{}, false
	}
	today := DateOf(now)

	if m, err := relativeDayRe.FindStringMatch(s); err == nil && m != nil {
		switch g, _ := pattern.Group(m, 1); g {
		case "сегодня", "today":
			return today, true
		case "завтра", "tomorrow":
			return today.AddDays(1), true
		default:
			return today.AddDays(2), true
		}
	}

	masked := pattern.Mask(decimalHoursRe, s, nil)
	if d, ok := scanNumericDate(masked, today); ok {
		return d, true
	}
	if d, ok := scanTextDate(s, today); ok {
		return d, true
	}
	return scanWordDate(s, today)
}

func scanNumericDate(s string, today Date) (Date, bool) {
	var found Date
	ok := false
	pattern.Each(numericDateRe, s, func(m *regexp2.Match) bool {
		day := atoiGroup(m, 1)
		month := atoiGroup(m, 2)
		yearText, hasYear := pattern.Group(m, 3)
		year := today.Year
		if hasYear {
			year, _ = strconv.Atoi(yearText)
			if len(yearText) == 2 {
				year += 2000
			}
		}
		d, valid := NewDate(year, time.Month(month), day)
		if !valid {
			return true
		}
		if !hasYear {
			d = rollForward(d, today)
		}
		found, ok = d, true
		return false
	})
	return found, ok
}

func scanTextDate(s string, today Date) (Date, bool) {
	var found Date
	ok := false
	pattern.Each(textDateRe, s, func(m *regexp2.Match) bool {
		day := atoiGroup(m, 1)
		monthWord, _ := pattern.Group(m, 2)
		month, known := lexicon.Month(monthWord)
		if !known {
			return true
		}
		yearText, hasYear := pattern.Group(m, 3)
		year := today.Year
		if hasYear {
			year, _ = strconv.Atoi(yearText)
		}
		d, valid := NewDate(year, month, day)
		if !valid {
			return true
		}
		if !hasYear {
			d = rollForward(d, today)
		}
		found, ok = d, true
		return false
	})
	return found, ok
}

func scanWordDate(s string, today Date) (Date, bool) {
	var found Date
	ok := false
	pattern.Each(wordDateRe, s, func(m *regexp2.Match) bool {
		dayPhrase, _ := pattern.Group(m, 1)
		day, known := lexicon.DayOrdinal(dayPhrase)
		if !known {
			// "первого" inside "встреча первого" style pairs
			fields := strings.Fields(strings.ReplaceAll(dayPhrase, "-", " "))
			if len(fields) < 2 {
				return true
			}
			if day, known = lexicon.DayOrdinal(fields[len(fields)-1]); !known {
				return true
			}
		}
		monthWord, _ := pattern.Group(m, 2)
		month, _ := lexicon.Month(monthWord)

		year := today.Year
		hasYear := false
		if yearPhrase, present := pattern.Group(m, 3); present {
			if y, parsed := lexicon.ParseNumberWords(yearPhrase); parsed && y >= 1900 && y <= 2200 {
				year, hasYear = y, true
			}
		}
		d, valid := NewDate(year, month, day)
		if !valid {
			return true
		}
		if !hasYear {
			d = rollForward(d, today)
		}
		found, ok = d, true
		return false
	})
	return found, ok
}

// rollForward moves a year-less date into next year when it is more than one
// day in the past.
func rollForward(d, today Date) Date {
	if d.Before(today.AddDays(-1)) {
		return d.AddYears(1)
	}
	return d
}

// ParseTime finds an explicit or qualitative time of day. Valid numeric dates
// and decimal-hour durations are blanked first so their digits are not read
// as hours.
func ParseTime(text string) (TimeOfDay, bool) {
	t, _, ok := parseClock(lexicon.Fold(text))
	return t, ok
}

// span is a rune range of folded text.
type span struct {
	start, length int
}

// parseClock works on folded text. The span is set when the time came from an
// hour phrase ("15 часов", "три часа дня") that a duration scan would also
// accept.
func parseClock(s string) (TimeOfDay, span, bool) {
	if strings.TrimSpace(s) == "" {
		return TimeOfDay{}, span{}, false
	}
	s = pattern.Mask(decimalHoursRe, s, nil)
	s = pattern.Mask(numericDateRe, s, func(m *regexp2.Match) bool {
		day, month := atoiGroup(m, 1), atoiGroup(m, 2)
		return day >= 1 && day <= 31 && month >= 1 && month <= 12
	})

	if t, _, ok := firstTime(timeColonRe, s, func(m *regexp2.Match) (TimeOfDay, bool) {
		return NewTimeOfDay(atoiGroup(m, 1), atoiGroup(m, 2))
	}); ok {
		return t, span{}, true
	}
	if t, sp, ok := firstTime(timeDayPartRe, s, func(m *regexp2.Match) (TimeOfDay, bool) {
		if !dayPartAnchored(m) {
			return TimeOfDay{}, false
		}
		part, _ := pattern.Group(m, 4)
		return withDayPart(atoiGroup(m, 2), part)
	}); ok {
		return t, sp, true
	}
	if t, sp, ok := firstTime(timeHoursRe, s, func(m *regexp2.Match) (TimeOfDay, bool) {
		return NewTimeOfDay(atoiGroup(m, 1), 0)
	}); ok {
		return t, sp, true
	}
	if t, sp, ok := firstTime(timeWordDayPart, s, func(m *regexp2.Match) (TimeOfDay, bool) {
		if !dayPartAnchored(m) {
			return TimeOfDay{}, false
		}
		phrase, _ := pattern.Group(m, 2)
		part, _ := pattern.Group(m, 4)
		h, ok := lexicon.ParseNumberWords(phrase)
		if !ok {
			return TimeOfDay{}, false
		}
		return withDayPart(h, part)
	}); ok {
		return t, sp, true
	}
	if t, sp, ok := firstTime(timeWordHoursRe, s, func(m *regexp2.Match) (TimeOfDay, bool) {
		phrase, _ := pattern.Group(m, 1)
		h, ok := lexicon.ParseNumberWords(phrase)
		if !ok {
			return TimeOfDay{}, false
		}
		return NewTimeOfDay(h, 0)
	}); ok {
		return t, sp, true
	}
	if m, err := timeQualitative.FindStringMatch(s); err == nil && m != nil {
		word, _ := pattern.Group(m, 1)
		t, ok := qualitativeTimes[word]
		return t, span{}, ok
	}
	return TimeOfDay{}, span{}, false
}

func firstTime(re *regexp2.Regexp, s string, convert func(m *regexp2.Match) (TimeOfDay, bool)) (TimeOfDay, span, bool) {
	var found TimeOfDay
	var at span
	ok := false
	pattern.Each(re, s, func(m *regexp2.Match) bool {
		if t, valid := convert(m); valid {
			found, at, ok = t, span{start: m.Index, length: m.Length}, true
			return false
		}
		return true
	})
	return found, at, ok
}

// "3 дня" alone is more often three days than 15:00, so "дня" needs a
// leading "в" or an hour word.
func dayPartAnchored(m *regexp2.Match) bool {
	part, _ := pattern.Group(m, 4)
	if part != "дня" {
		return true
	}
	_, at := pattern.Group(m, 1)
	_, hourWord := pattern.Group(m, 3)
	return at || hourWord
}

func withDayPart(hour int, part string) (TimeOfDay, bool) {
	switch part {
	case "дня", "вечера":
		if hour >= 1 && hour < 12 {
			hour += 12
		}
	case "ночи":
		if hour == 12 {
			hour = 0
		}
	case "утра":
		if hour == 12 {
			hour = 0
		}
	}
	return NewTimeOfDay(hour, 0)
}

// ParseDurationMinutes reads a meeting length. "пропустить" is an explicit
// request for the default hour.
func ParseDurationMinutes(text string) (int, bool) {
	s := strings.TrimSpace(lexicon.Fold(text))
	if s == "" {
		return 0, false
	}
	if skipWords[strings.Trim(s, " .!")] {
		return DefaultDurationMinutes, true
	}

	if m, ok := firstInt(durationMinRe, s, func(m *regexp2.Match) (int, bool) {
		n := atoiGroup(m, 1)
		return n, n > 0
	}); ok {
		return m, true
	}
	if m, ok := firstInt(decimalHoursRe, s, func(m *regexp2.Match) (int, bool) {
		n := atoiGroup(m, 1)*60 + atoiGroup(m, 2)*6
		return n, n > 0
	}); ok {
		return m, true
	}
	if m, ok := firstInt(durationHourRe, s, func(m *regexp2.Match) (int, bool) {
		n := atoiGroup(m, 1)
		return n * 60, n > 0
	}); ok {
		return m, true
	}
	if pattern.Matches(durationOneHalf, s) {
		return 90, true
	}
	if pattern.Matches(durationHalfHour, s) {
		return 30, true
	}
	if pattern.Matches(durationOneHour, s) {
		return 60, true
	}
	if m, ok := firstInt(durationWordHour, s, func(m *regexp2.Match) (int, bool) {
		phrase, _ := pattern.Group(m, 1)
		n, ok := lexicon.ParseNumberWords(phrase)
		return n * 60, ok && n > 0 && n <= 24
	}); ok {
		return m, true
	}
	return 0, false
}

// ParseMeetingDuration reads a length from a message that may also carry the
// start time. An hour phrase already taken as the time ("завтра 15 часов") is
// not read a second time as the length.
func ParseMeetingDuration(text string) (int, bool) {
	s := lexicon.Fold(text)
	if _, sp, ok := parseClock(s); ok && sp.length > 0 {
		runes := []rune(s)
		for i := sp.start; i < sp.start+sp.length && i < len(runes); i++ {
			runes[i] = ' '
		}
		s = string(runes)
	}
	return ParseDurationMinutes(s)
}

func firstInt(re *regexp2.Regexp, s string, convert func(m *regexp2.Match) (int, bool)) (int, bool) {
	found := 0
	ok := false
	pattern.Each(re, s, func(m *regexp2.Match) bool {
		if n, valid := convert(m); valid {
			found, ok = n, true
			return false
		}
		return true
	})
	return found, ok
}

func atoiGroup(m *regexp2.Match, i int) int {
	g, ok := pattern.Group(m, i)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(g)
	if err != nil {
		return 0
	}
	return n
}

package title

import (
	"strings"

	"assistantbot/internal/lexicon"
	"assistantbot/internal/pattern"

	"github.com/dlclark/regexp2"
)

const (
	MaxLength = 180

	FallbackMeeting = "Встреча"
	FallbackTask    = "Задача"
	FallbackNote    = "Заметка"
	FallbackEvent   = "Событие"
)

var (
	numWord  = `(?:` + lexicon.NumberWordsPattern() + `)(?!\p{L})`
	numPair  = numWord + `(?:[\s\-]+` + numWord + `)?`
	months   = `(?:` + lexicon.MonthPattern + `)(?!\p{L})`
	dayParts = `(?:утра|дня|вечера|ночи)(?!\p{L})`

	fillerRe  = pattern.Compile(`^\s*(?:(?:ну|так|итак|хорошо|ладно|окей|ok|okay|well|пожалуйста)(?!\p{L})[\s,.!]*)+`)
	commandRe = pattern.Compile(`^\s*(?:пожалуйста\s+)?(?:созда(?:й|йте|ть)|добав(?:ь|ьте|ить)|запланиру(?:й|йте|ю)|сдела(?:й|йте|ть)|постав(?:ь|ьте|ить)|назнач(?:ь|ьте|ить)|create|add|schedule|make)(?!\p{L})` +
		`\s*(?:мне\s+)?(?:(?:нов(?:ое|ую|ый)|an?)\s+)?(?:событи[еяю]|встреч[ауеи]|митинг|event|meeting)?(?!\p{L})`)
	anyCommandRe = pattern.Compile(`(?<!\p{L})(?:созда(?:й|йте|ть)|добав(?:ь|ьте|ить)|запланиру(?:й|йте|ю)|сдела(?:й|йте|ть))\s+(?:нов(?:ое|ую)\s+)?(?:событи[еяю]|встреч[ауеи])(?!\p{L})`)
	eventNounRe  = pattern.Compile(`^\s*событие(?!\p{L})\s*:?`)

	// порядок важен: даты до времени, длинные формы до коротких
	temporalRes = []*regexp2.Regexp{
		pattern.Compile(`(?<!\p{L})(?:длительност\p{L}*|duration)\s*:?\s*(?:\d+(?:[.,]\d)?\s*(?:мин\p{L}*|час\p{L}*)?)?`),
		pattern.Compile(`(?<!\p{L})(?:на\s+)?(?<![\d.,])\d{1,2}[.,]\d\s*час\p{L}*`),
		pattern.Compile(`(?<!\p{L})(?:(?:на|в течение)\s+)?(?<![\d.,])\d{1,3}\s*(?:мин(?:ут\p{L}*)?|min(?:ute)?s?)(?!\p{L})\.?`),
		pattern.Compile(`(?<!\p{L})(?:(?:на|в|к)\s+)?(?<![\d.,:/])\d{1,2}[./]\d{1,2}(?:[./](?:\d{4}|\d{2}))?(?!\d)`),
		pattern.Compile(`(?<!\p{L})(?:(?:в|на|к|at)\s+)?(?<![\d.,:])\d{1,2}:\d{2}(?!\d)`),
		pattern.Compile(`(?<!\p{L})(?:в\s+\d{1,2}\s*(?:час(?:а|ов)?\s*)?|\d{1,2}\s*час(?:а|ов)?\s*)` + dayParts),
		pattern.Compile(`(?<!\p{L})(?:в\s+)?(?<![\d.,])\d{1,2}\s*(?:утра|вечера|ночи)(?!\p{L})`),
		pattern.Compile(`(?<!\p{L})(?:(?:в|на|к)\s+)?(?<![\d.,])\d{1,2}\s*час(?:а|ов)?(?!\p{L})`),
		pattern.Compile(`(?<!\p{L})(?:(?:в|на)\s+)?` + numPair + `\s+час(?:а|ов)?(?!\p{L})(?:\s+` + dayParts + `)?`),
		pattern.Compile(`(?<!\p{L})(?:на\s+)?(?:полчаса|полтора\s+час\p{L}*|час)(?!\p{L})`),
		pattern.Compile(`(?<!\p{L})в\s+` + numPair + `\s+` + dayParts),
		pattern.Compile(`(?<!\p{L})` + numPair + `\s+(?:утра|вечера|ночи)(?!\p{L})`),
		pattern.Compile(`(?<!\p{L})(?:на\s+)?(?<!\d)\d{1,2}\s+` + months + `(?:\s+\d{4}(?:\s*(?:года|год|г)(?!\p{L})\.?)?)?`),
		pattern.Compile(`(?<!\p{L})(?:на\s+)?` + numPair + `\s+` + months + `(?:\s+` + numWord + `(?:\s+` + numWord + `){0,4}\s+г(?:ода|од)?(?!\p{L}))?`),
		pattern.Compile(`(?<!\p{L})две\s+тысячи(?:\s+` + numWord + `){0,2}(?:\s+г(?:ода|од)?(?!\p{L}))?`),
		pattern.Compile(`(?<!\p{L})\d{4}\s*(?:года|год|г)(?!\p{L})\.?`),
		pattern.Compile(`(?<!\p{L})(?:на\s+)?(?:послезавтра|завтра|сегодня|today|tomorrow)(?!\p{L})`),
		pattern.Compile(`(?<!\p{L})(?:утром|дн[её]м|вечером|ночью|утра|вечера|ночи)(?!\p{L})`),
	}

	tailRes = []*regexp2.Regexp{
		pattern.Compile(`(?<!\p{L})(?:длит|длительн\p{L}*|dur|duration)(?!\p{L})`),
		pattern.Compile(`(?<![\d.,:/])\d{1,2}[./]\d{1,2}(?:[./]\d{2,4})?(?!\d)`),
		pattern.Compile(`(?<!\d)\d{1,2}\s+` + months),
		pattern.Compile(`(?<!\p{L})` + numPair + `\s+` + months),
		pattern.Compile(`(?<!\p{L})в\s+\d{1,2}(?::\d{2})?(?!\d)`),
		pattern.Compile(`(?<!\p{L})в\s+` + numPair + `\s+` + dayParts),
	}

	danglingTailRe = pattern.Compile(`(?:[\s,;:\-–—]+(?:в|на|к|до|с|и|at|on|for)?)+$`)
	whitespaceRe   = pattern.Compile(`\s+`)
)

// Extract strips command verbs and every temporal phrase from text and
// returns what is left as a title. The bool is false when nothing is left.
func Extract(text string) (string, bool) {
	s := removeLeading(fillerRe, text)
	s = removeLeading(commandRe, s)
	s = removeLeading(eventNounRe, s)
	for _, re := range temporalRes {
		s = pattern.Remove(re, s)
	}
	s = CutAtTemporalTail(s)
	s = tidy(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// OrDefault is Extract with a fallback literal.
func OrDefault(text, fallback string) string {
	if t, ok := Extract(text); ok {
		return t
	}
	return fallback
}

// StripCommandPhrases removes filler and "создай встречу"-style commands from
// anywhere in text without touching dates. Used on titles that came from the
// structured extractor.
func StripCommandPhrases(text string) string {
	s := removeLeading(fillerRe, text)
	s = removeLeading(commandRe, s)
	s = pattern.Remove(anyCommandRe, s)
	s = removeLeading(eventNounRe, s)
	return tidy(s)
}

// CutAtTemporalTail truncates text at the earliest temporal pattern, if one
// starts after the first rune.
func CutAtTemporalTail(text string) string {
	cut := -1
	for _, re := range tailRes {
		idx := pattern.FirstIndex(re, text)
		if idx > 0 && (cut < 0 || idx < cut) {
			cut = idx
		}
	}
	runes := []rune(text)
	if cut > 0 && cut < len(runes) {
		return strings.TrimRight(string(runes[:cut]), " ")
	}
	return text
}

// Clean collapses whitespace and caps the length without stripping anything.
func Clean(text, fallback string) string {
	s := Truncate(collapse(text), MaxLength)
	if s == "" {
		return fallback
	}
	return s
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}

func removeLeading(re *regexp2.Regexp, s string) string {
	m, err := re.FindStringMatch(s)
	if err != nil || m == nil || m.Index != 0 {
		return s
	}
	runes := []rune(s)
	return string(runes[m.Index+m.Length:])
}

func tidy(s string) string {
	s = collapse(s)
	s = strings.TrimSpace(pattern.Remove(danglingTailRe, " "+s))
	s = strings.Trim(s, " ,.;:-–—")
	return Truncate(s, MaxLength)
}

func collapse(s string) string {
	return strings.TrimSpace(pattern.Remove(whitespaceRe, s))
}

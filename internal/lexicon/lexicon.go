package lexicon

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// MonthPattern matches an inflected Russian month name. Callers wrap it in a
// capture group and resolve it with Month.
const MonthPattern = `январ[яеь]|феврал[яеь]|март[аеу]?|апрел[яеь]|ма[йяе]|июн[яеь]|июл[яеь]|август[аеу]?|сентябр[яеь]|октябр[яеь]|ноябр[яеь]|декабр[яеь]`

type monthPrefix struct {
	prefix string
	month  time.Month
}

// "март" has to be tried before "ма".
var monthPrefixes = []monthPrefix{
	{"январ", time.January},
	{"феврал", time.February},
	{"март", time.March},
	{"апрел", time.April},
	{"июн", time.June},
	{"июл", time.July},
	{"август", time.August},
	{"сентябр", time.September},
	{"октябр", time.October},
	{"ноябр", time.November},
	{"декабр", time.December},
	{"ма", time.May},
}

const (
	scaleHundred  = 100
	scaleThousand = 1000
)

var numberWords = map[string]int{
	"ноль": 0,

	"один": 1, "одна": 1, "одно": 1, "первого": 1, "первое": 1, "первый": 1,
	"два": 2, "две": 2, "второго": 2, "второе": 2,
	"три": 3, "третьего": 3, "третье": 3,
	"четыре": 4, "четвертого": 4, "четвертое": 4,
	"пять": 5, "пятого": 5, "пятое": 5,
	"шесть": 6, "шестого": 6, "шестое": 6,
	"семь": 7, "седьмого": 7, "седьмое": 7,
	"восемь": 8, "восьмого": 8, "восьмое": 8,
	"девять": 9, "девятого": 9, "девятое": 9,
	"десять": 10, "десятого": 10, "десятое": 10,
	"одиннадцать": 11, "одиннадцатого": 11,
	"двенадцать": 12, "двенадцатого": 12,
	"тринадцать": 13, "тринадцатого": 13,
	"четырнадцать": 14, "четырнадцатого": 14,
	"пятнадцать": 15, "пятнадцатого": 15,
	"шестнадцать": 16, "шестнадцатого": 16,
	"семнадцать": 17, "семнадцатого": 17,
	"восемнадцать": 18, "восемнадцатого": 18,
	"девятнадцать": 19, "девятнадцатого": 19,
	"двадцать": 20, "двадцатого": 20, "двадцатое": 20,
	"тридцать": 30, "тридцатого": 30, "тридцатое": 30,
	"сорок": 40, "сорокового": 40,
	"пятьдесят": 50, "пятидесятого": 50,
	"шестьдесят": 60, "шестидесятого": 60,
	"семьдесят": 70, "семидесятого": 70,
	"восемьдесят": 80, "восьмидесятого": 80,
	"девяносто": 90, "девяностого": 90,

	"сто":       scaleHundred,
	"двести":    200,
	"триста":    300,
	"четыреста": 400,
	"пятьсот":   500,

	"тысяча": scaleThousand, "тысячи": scaleThousand, "тысяч": scaleThousand,
}

var numberWordsPattern = buildAlternation(numberWords)

func buildAlternation(words map[string]int) string {
	keys := make([]string, 0, len(words))
	for k := range words {
		keys = append(keys, k)
	}
	// longest first so that "двадцатого" is not cut to "двадцат…"
	sort.Slice(keys, func(i, j int) bool {
		if len([]rune(keys[i])) != len([]rune(keys[j])) {
			return len([]rune(keys[i])) > len([]rune(keys[j]))
		}
		return keys[i] < keys[j]
	})
	return strings.Join(keys, "|")
}

// NumberWordsPattern is an alternation of every known number word, ready to be
// embedded into a larger expression. Words are in the ё-folded form.
func NumberWordsPattern() string {
	return numberWordsPattern
}

// Fold lowercases and replaces ё with е.
func Fold(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "ё", "е")
}

// Month resolves an inflected month word ("марта", "мая") to its number.
func Month(word string) (time.Month, bool) {
	w := Fold(strings.TrimSpace(word))
	for _, mp := range monthPrefixes {
		if strings.HasPrefix(w, mp.prefix) {
			return mp.month, true
		}
	}
	return 0, false
}

// NumberWord looks up a single folded token.
func NumberWord(token string) (int, bool) {
	v, ok := numberWords[Fold(token)]
	return v, ok
}

// ParseNumberWords turns "две тысячи двадцать шестого" into 2026. Units and
// tens add up, "сто" sets or multiplies the running value, "тысяча"
// multiplies it and flushes into the total. Unknown tokens are skipped.
func ParseNumberWords(text string) (int, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(Fold(text), "-", " "))
	if s == "" {
		return 0, false
	}
	if isShortNumber(s) {
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, true
		}
	}

	total, current := 0, 0
	matched := false
	for _, token := range strings.Fields(s) {
		v, ok := numberWords[token]
		if !ok {
			continue
		}
		matched = true
		switch v {
		case scaleThousand:
			if current == 0 {
				current = 1
			}
			total += current * scaleThousand
			current = 0
		case scaleHundred:
			if current == 0 {
				current = scaleHundred
			} else {
				current *= scaleHundred
			}
		default:
			current += v
		}
	}
	if !matched {
		return 0, false
	}
	return total + current, true
}

// DayOrdinal accepts only phrases made entirely of number words whose value is
// a valid day of month, e.g. "двадцать первого".
func DayOrdinal(phrase string) (int, bool) {
	tokens := strings.Fields(strings.ReplaceAll(Fold(phrase), "-", " "))
	if len(tokens) == 0 {
		return 0, false
	}
	for _, t := range tokens {
		if _, ok := numberWords[t]; !ok {
			return 0, false
		}
	}
	n, ok := ParseNumberWords(phrase)
	if !ok || n < 1 || n > 31 {
		return 0, false
	}
	return n, true
}

func isShortNumber(s string) bool {
	if len(s) == 0 || len(s) > 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

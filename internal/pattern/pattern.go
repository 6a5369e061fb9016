// Package pattern wraps regexp2 for the Unicode-aware matching the parsers
// need: Cyrillic word boundaries, lookbehind and \p{L} classes, none of which
// the standard regexp package supports. Match offsets are rune offsets.
package pattern

import (
	"github.com/dlclark/regexp2"
	"github.com/sirupsen/logrus"
)

// Compile panics on a bad expression; every expression in this module is a
// package-level literal.
func Compile(expr string) *regexp2.Regexp {
	return regexp2.MustCompile(expr, regexp2.IgnoreCase)
}

// Each calls fn for every non-overlapping match, left to right, until fn
// returns false.
func Each(re *regexp2.Regexp, s string, fn func(m *regexp2.Match) bool) {
	m, err := re.FindStringMatch(s)
	for m != nil && err == nil {
		if !fn(m) {
			return
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		logrus.Warnf("Ошибка при сопоставлении шаблона %q: %v", re.String(), err)
	}
}

// Group returns the text of capture group i and whether it participated.
func Group(m *regexp2.Match, i int) (string, bool) {
	g := m.GroupByNumber(i)
	if g == nil || len(g.Captures) == 0 {
		return "", false
	}
	return g.String(), true
}

// Matches reports whether re matches anywhere in s.
func Matches(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	if err != nil {
		logrus.Warnf("Ошибка при сопоставлении шаблона %q: %v", re.String(), err)
		return false
	}
	return ok
}

// FirstIndex returns the rune offset of the first match, or -1.
func FirstIndex(re *regexp2.Regexp, s string) int {
	m, err := re.FindStringMatch(s)
	if err != nil || m == nil {
		return -1
	}
	return m.Index
}

// Remove replaces every match with a single space.
func Remove(re *regexp2.Regexp, s string) string {
	out, err := re.Replace(s, " ", -1, -1)
	if err != nil {
		logrus.Warnf("Ошибка при замене по шаблону %q: %v", re.String(), err)
		return s
	}
	return out
}

// Mask blanks out, with spaces, every match accepted by keep. Rune positions
// of the rest of the text are preserved, so "first match by position" still
// holds for later scans.
func Mask(re *regexp2.Regexp, s string, keep func(m *regexp2.Match) bool) string {
	runes := []rune(s)
	changed := false
	Each(re, s, func(m *regexp2.Match) bool {
		if keep == nil || keep(m) {
			for i := m.Index; i < m.Index+m.Length && i < len(runes); i++ {
				runes[i] = ' '
			}
			changed = true
		}
		return true
	})
	if !changed {
		return s
	}
	return string(runes)
}

package lexicon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumberWords_Years(t *testing.T) {
	cases := map[string]int{
		"две тысячи двадцать шестого": 2026,
		"две тысячи двадцать пять":    2025,
		"тысяча сто":                  1100,
		"сто двадцать":                120,
		"2026":                        2026,
		"двадцать-первого":            21,
		"ноль":                        0,
	}
	for in, want := range cases {
		got, ok := ParseNumberWords(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseNumberWords_UnknownTokensIgnored(t *testing.T) {
	got, ok := ParseNumberWords("примерно двенадцать")
	require.True(t, ok)
	assert.Equal(t, 12, got)

	_, ok = ParseNumberWords("встреча с командой")
	assert.False(t, ok)

	_, ok = ParseNumberWords("   ")
	assert.False(t, ok)
}

func TestParseNumberWords_YoFolded(t *testing.T) {
	got, ok := ParseNumberWords("четвёртого")
	require.True(t, ok)
	assert.Equal(t, 4, got)
}

func TestDayOrdinal(t *testing.T) {
	day, ok := DayOrdinal("двадцать первого")
	require.True(t, ok)
	assert.Equal(t, 21, day)

	day, ok = DayOrdinal("тридцать первого")
	require.True(t, ok)
	assert.Equal(t, 31, day)

	_, ok = DayOrdinal("сорок")
	assert.False(t, ok)

	_, ok = DayOrdinal("встреча первого")
	assert.False(t, ok)
}

func TestMonth_MarchIsNotMay(t *testing.T) {
	m, ok := Month("марта")
	require.True(t, ok)
	assert.Equal(t, time.March, m)

	m, ok = Month("мая")
	require.True(t, ok)
	assert.Equal(t, time.May, m)

	m, ok = Month("Декабря")
	require.True(t, ok)
	assert.Equal(t, time.December, m)

	_, ok = Month("понедельник")
	assert.False(t, ok)
}

func TestNumberWordsPattern_LongestFirst(t *testing.T) {
	p := NumberWordsPattern()
	assert.Less(t, indexOf(p, "двадцатого"), indexOf(p, "два|"))
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

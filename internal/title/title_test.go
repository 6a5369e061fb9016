package title

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_StripsCommandAndTemporalPhrases(t *testing.T) {
	cases := map[string]string{
		"создай встречу завтра в 15:00 созвон с командой на 30 минут":           "созвон с командой",
		"Обсуждение бюджета 21 февраля в 14 часов":                              "Обсуждение бюджета",
		"ну, создай событие двадцать первого марта в двенадцать часов планёрка": "планёрка",
		"Ретро 21.02.2026 в 10:00 на 1.5 часа":                                  "Ретро",
		"созвон с клиентом в 7 вечера":                                          "созвон с клиентом",
	}
	for in, want := range cases {
		got, ok := Extract(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
}

func TestExtract_NothingLeft(t *testing.T) {
	_, ok := Extract("завтра в 10:00")
	assert.False(t, ok)

	assert.Equal(t, FallbackMeeting, OrDefault("создай встречу завтра в 10:00", FallbackMeeting))
}

func TestCutAtTemporalTail(t *testing.T) {
	assert.Equal(t, "созвон", CutAtTemporalTail("созвон длительность"))
	assert.Equal(t, "Планёрка", CutAtTemporalTail("Планёрка в 9"))
	assert.Equal(t, "в 9 планёрка", CutAtTemporalTail("в 9 планёрка"))
}

func TestStripCommandPhrases(t *testing.T) {
	assert.Equal(t, "обзор квартала", StripCommandPhrases("Запланируй встречу: обзор квартала"))
	assert.Equal(t, "Sync", StripCommandPhrases("Sync"))
}

func TestClean_CapsLength(t *testing.T) {
	long := strings.Repeat("а", 250)
	assert.Len(t, []rune(Clean(long, FallbackNote)), MaxLength)
	assert.Equal(t, FallbackTask, Clean("   ", FallbackTask))
	assert.Equal(t, "купить молоко", Clean("  купить \n молоко ", FallbackTask))
}

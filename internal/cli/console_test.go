package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"assistantbot/internal/dispatcher"
	"assistantbot/internal/intent"
	"assistantbot/internal/meetings"
	"assistantbot/internal/notes"
	"assistantbot/internal/sessions"
	"assistantbot/internal/wizard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunConsole(t *testing.T) {
	noteStore := notes.NewMemory()
	d := dispatcher.New(dispatcher.Deps{
		Engine:   intent.NewEngine(nil, 0, nil),
		Wizard:   wizard.New(sessions.NewMemory[wizard.EventSession](), sessions.NewMemory[wizard.NoteSession](), noteStore, nil, 0),
		Notes:    noteStore,
		Meetings: meetings.NewMemory(),
	})

	in := strings.NewReader("заметка: купить молоко\n\nмои заметки\n/quit\nзаметки\n")
	var out bytes.Buffer
	require.NoError(t, runConsole(context.Background(), d, 1, time.UTC, in, &out))

	text := out.String()
	assert.Contains(t, text, "[CREATE_NOTE]")
	assert.Contains(t, text, "[1] купить молоко")
	assert.Equal(t, 1, strings.Count(text, "📝 Ваши заметки:"))
}

func TestLoadPhrases(t *testing.T) {
	p, err := loadPhrases("")
	require.NoError(t, err)
	assert.NotEmpty(t, p.NoteCreatePrefixes)

	_, err = loadPhrases("/nonexistent/phrases.yaml")
	assert.Error(t, err)
}

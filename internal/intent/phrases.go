package intent

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode/utf8"

	"assistantbot/internal/lexicon"

	"gopkg.in/yaml.v3"
)

//go:embed phrases.yaml
var defaultPhrases []byte

type Phrases struct {
	NoteEditPrefixes   []string `yaml:"note_edit_prefixes"`
	NoteDeletePrefixes []string `yaml:"note_delete_prefixes"`
	NoteCreatePrefixes []string `yaml:"note_create_prefixes"`
	ShowNotes          []string `yaml:"show_notes"`

	GoogleConnect struct {
		Exact        []string `yaml:"exact"`
		GoogleWords  []string `yaml:"google_words"`
		ConnectWords []string `yaml:"connect_words"`
	} `yaml:"google_connect"`

	Schedule struct {
		Keywords  []string `yaml:"keywords"`
		RangeOnly []string `yaml:"range_only"`
		Tomorrow  []string `yaml:"tomorrow"`
		Week      []string `yaml:"week"`
	} `yaml:"schedule"`

	UILabels struct {
		EditNote   []string `yaml:"edit_note"`
		DeleteNote []string `yaml:"delete_note"`
	} `yaml:"ui_labels"`

	Noise        []string `yaml:"noise"`
	MeetingHints []string `yaml:"meeting_hints"`
	TaskHints    []string `yaml:"task_hints"`
}

// LoadPhrases parses a phrase catalogue. Entries are folded the same way
// inbound text is, so the file may use any case and ё.
func LoadPhrases(data []byte) (*Phrases, error) {
	var p Phrases
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("ошибка при чтении словаря фраз: %w", err)
	}
	for _, list := range []*[]string{
		&p.NoteEditPrefixes, &p.NoteDeletePrefixes, &p.NoteCreatePrefixes, &p.ShowNotes,
		&p.GoogleConnect.Exact, &p.GoogleConnect.GoogleWords, &p.GoogleConnect.ConnectWords,
		&p.Schedule.Keywords, &p.Schedule.RangeOnly, &p.Schedule.Tomorrow, &p.Schedule.Week,
		&p.UILabels.EditNote, &p.UILabels.DeleteNote,
		&p.Noise, &p.MeetingHints, &p.TaskHints,
	} {
		for i, s := range *list {
			(*list)[i] = lexicon.Fold(strings.TrimSpace(s))
		}
	}
	if len(p.NoteCreatePrefixes) == 0 || len(p.MeetingHints) == 0 {
		return nil, fmt.Errorf("словарь фраз неполон")
	}
	return &p, nil
}

// DefaultPhrases returns the embedded catalogue.
func DefaultPhrases() *Phrases {
	p, err := LoadPhrases(defaultPhrases)
	if err != nil {
		panic(err)
	}
	return p
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func equalsAny(s string, words []string) bool {
	for _, w := range words {
		if s == w {
			return true
		}
	}
	return false
}

// matchPrefix returns the length in runes of the first prefix of s found in
// prefixes. Folding keeps rune counts, so the length indexes the raw text too.
func matchPrefix(s string, prefixes []string) (int, bool) {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return utf8.RuneCountInString(p), true
		}
	}
	return 0, false
}

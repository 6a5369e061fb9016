// Package textnorm cleans inbound text before it reaches the parsers.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"assistantbot/internal/pattern"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Typical pairs left when UTF-8 Cyrillic was decoded as windows-1251.
var mojibakeMarkers = []string{
	"Р°", "Рё", "Рѕ", "Рµ", "С‚", "СЊ", "СЏ", "СЂ", "РЅ", "РІ", "Р»", "Рї",
}

var (
	misheardCreateRe = pattern.Compile(`^(?:знай|зай)\s+сам(?!\p{L})`)
	spacesRe         = pattern.Compile(`\s+`)
)

var voiceReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"\r", " ",
	"\n", " ",
	"–", "-",
	"—", "-",
	"−", "-",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"ё", "е",
	"Ё", "Е",
)

// Normalize repairs mojibake and composes the text to NFC.
func Normalize(s string) string {
	return norm.NFC.String(RepairMojibake(s))
}

// RepairMojibake re-decodes s as UTF-8 when it carries at least two
// windows-1251 mojibake markers. Anything that does not round-trip cleanly is
// returned unchanged.
func RepairMojibake(s string) string {
	if strings.TrimSpace(s) == "" || !looksLikeMojibake(s) {
		return s
	}
	raw, err := charmap.Windows1251.NewEncoder().String(s)
	if err != nil || !utf8.ValidString(raw) || strings.TrimSpace(raw) == "" {
		return s
	}
	return raw
}

func looksLikeMojibake(s string) bool {
	markers := 0
	for _, m := range mojibakeMarkers {
		markers += strings.Count(s, m)
		if markers >= 2 {
			return true
		}
	}
	return false
}

// SanitizeVoice tidies a transcription: flattens whitespace and typographic
// punctuation, fixes the common "знай сам" mishearing of "создай" and trims
// punctuation at both ends.
func SanitizeVoice(s string) string {
	compact := collapse(voiceReplacer.Replace(s))
	if m, err := misheardCreateRe.FindStringMatch(compact); err == nil && m != nil {
		compact = "создай" + string([]rune(compact)[m.Index+m.Length:])
	}
	compact = strings.TrimFunc(compact, func(r rune) bool {
		return unicode.IsSpace(r) || (r < utf8.RuneSelf && unicode.IsPunct(r))
	})
	if compact == "" {
		return strings.TrimSpace(s)
	}
	return compact
}

// CommandKey reduces s to lowercase letters, digits and slashes separated by
// single spaces, for exact comparison with button labels and commands.
func CommandKey(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "ё", "е")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '/' {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func collapse(s string) string {
	return strings.TrimSpace(pattern.Remove(spacesRe, s))
}

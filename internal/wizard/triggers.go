package wizard

import (
	"strings"

	"assistantbot/internal/lexicon"
	"assistantbot/internal/pattern"
	"assistantbot/internal/textnorm"
)

var (
	eventTriggerRe = pattern.Compile(`(?<!\p{L})(?:созда(?:ть|й)|добав(?:ить|ь)|запланиру(?:й|йте|ю)|сдела(?:й|ть))\s+(?:событи[еяю]|встреч[ауеи])(?!\p{L})`)

	eventTriggerKeys = []string{
		"создать событие", "создай событие", "добавить событие", "добавь событие",
		"создать события", "создай события", "добавить события", "добавь события",
		"новое событие", "создать встречу", "создай встречу",
	}
	noteEditKeys   = []string{"редактировать заметку", "редактировать"}
	noteDeleteKeys = []string{"удалить заметку", "удалить"}
)

// IsEventTrigger reports whether text asks to start the event flow.
func IsEventTrigger(text string) bool {
	key := textnorm.CommandKey(text)
	if key == "" {
		return false
	}
	for _, k := range eventTriggerKeys {
		if key == k || strings.HasPrefix(key, k+" ") {
			return true
		}
	}
	return pattern.Matches(eventTriggerRe, key)
}

// IsNoteEditTrigger matches the bare "edit a note" button or command.
func IsNoteEditTrigger(text string) bool {
	return isBareCommand(text, noteEditKeys, "✏️", "✏")
}

// IsNoteDeleteTrigger matches the bare "delete a note" button or command.
func IsNoteDeleteTrigger(text string) bool {
	return isBareCommand(text, noteDeleteKeys, "🗑️", "🗑")
}

func isBareCommand(text string, keys []string, emoji ...string) bool {
	trimmed := strings.TrimSpace(text)
	for _, e := range emoji {
		if trimmed == e {
			return true
		}
	}
	key := textnorm.CommandKey(text)
	for _, k := range keys {
		if key == k {
			return true
		}
	}
	return false
}

// IsCancel reports an explicit cancel: the ❌ marker, /cancel, "отмена" or
// any form of "отменить".
func IsCancel(text string) bool {
	if strings.Contains(text, "❌") {
		return true
	}
	key := textnorm.CommandKey(text)
	if key == "/cancel" || key == "отмена" {
		return true
	}
	folded := lexicon.Fold(text)
	return strings.Contains(folded, "отменить") || strings.Contains(folded, "cancel")
}

package core

import "fmt"

// composeText renders a template in the given language, falling back to the
// English template when the language has no translation.
func composeText(lang, id string, args ...interface{}) string {
	tmpl := ""
	if m, ok := templatesByLanguage[lang]; ok {
		tmpl = m[id]
	}
	if tmpl == "" {
		tmpl = englishTemplates[id]
	}
	if tmpl == "" {
		// Unknown template id; keep the failure visible but non-fatal.
		return fmt.Sprintf("(%s)", id)
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// quickReplies returns the localized chip set with English fallback.
func quickReplies(lang, set string) []string {
	m, ok := quickReplySets[set]
	if !ok {
		return nil
	}
	if chips, ok := m[lang]; ok {
		return chips
	}
	return m["en"]
}

// quickRepliesForState picks the default chip set for the state the session
// lands in after a turn.
func quickRepliesForState(lang string, state State, interrupt interruptKind) []string {
	if interrupt != interruptNone {
		return quickReplies(lang, "yes_no_cancel")
	}
	switch state {
	case StateAwaitingSymptoms:
		return quickReplies(lang, "symptoms")
	case StateAwaitingBookingConfirm, StateAwaitingSuggestedTimeConfirm:
		return quickReplies(lang, "yes_no_cancel")
	case StateAwaitingDateTime:
		return quickReplies(lang, "date_time")
	default:
		return quickReplies(lang, "menu")
	}
}

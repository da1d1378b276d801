package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeTextFallsBackToEnglish(t *testing.T) {
	// Tamil has no availability template; the English one fills in.
	got := composeText("ta", tmplAvailability, "slots")
	assert.Contains(t, got, "slots")
	assert.Contains(t, got, "availability")

	// Unknown language falls back wholesale.
	assert.Equal(t, englishTemplates[tmplOkay], composeText("fr", tmplOkay))
}

func TestComposeTextTranslatedWhenPresent(t *testing.T) {
	got := composeText("hi", tmplBookingCancelled)
	assert.Equal(t, hindiTemplates[tmplBookingCancelled], got)
	assert.NotEqual(t, englishTemplates[tmplBookingCancelled], got)
}

func TestComposeTextNeverEmpty(t *testing.T) {
	for _, lang := range []string{"en", "hi", "ta", "te", "kn", "ml", ""} {
		for id := range englishTemplates {
			args := countVerbs(englishTemplates[id])
			got := composeText(lang, id, make([]interface{}, args)...)
			assert.NotEmpty(t, got, "lang=%s id=%s", lang, id)
		}
	}
}

func countVerbs(tmpl string) int {
	n := 0
	for i := 0; i+1 < len(tmpl); i++ {
		if tmpl[i] == '%' && tmpl[i+1] != '%' {
			n++
		}
	}
	return n
}

func TestQuickRepliesLocalized(t *testing.T) {
	assert.Equal(t, []string{"Yes", "No", "Cancel booking"}, quickReplies("en", "yes_no_cancel"))
	assert.Equal(t, []string{"हाँ", "नहीं", "बुकिंग रद्द करो"}, quickReplies("hi", "yes_no_cancel"))
	// Unlocalized languages get the English chips.
	assert.Equal(t, quickReplies("en", "menu"), quickReplies("ml", "menu"))
	assert.Nil(t, quickReplies("en", "no_such_set"))
}

func TestQuickRepliesForState(t *testing.T) {
	assert.Contains(t, quickRepliesForState("en", StateAwaitingSymptoms, interruptNone), "Fever")
	assert.Contains(t, quickRepliesForState("en", StateAwaitingBookingConfirm, interruptNone), "Yes")
	assert.Contains(t, quickRepliesForState("en", StateAwaitingSuggestedTimeConfirm, interruptNone), "No")
	assert.Contains(t, quickRepliesForState("en", StateAwaitingDateTime, interruptNone), "Tomorrow")
	assert.Contains(t, quickRepliesForState("en", StateIdle, interruptNone), "Book appointment")
	// A pending interrupt is a yes/no question no matter the paused state.
	assert.Contains(t, quickRepliesForState("en", StateAwaitingDateTime, interruptRecordsConfirm), "Yes")
}

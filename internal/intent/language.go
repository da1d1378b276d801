package intent

import (
	"strings"
	"unicode"
)

// Supported language codes.
const (
	LangEnglish   = "en"
	LangHindi     = "hi"
	LangTamil     = "ta"
	LangTelugu    = "te"
	LangKannada   = "kn"
	LangMalayalam = "ml"
)

// SupportedLanguages lists every language the composer has templates or
// fallbacks for.
var SupportedLanguages = []string{
	LangEnglish, LangHindi, LangTamil, LangTelugu, LangKannada, LangMalayalam,
}

// Classifier decides which language a message is written in. The default is
// script detection; it is an interface so a real classifier can be dropped in
// without touching the state machine.
type Classifier interface {
	Detect(text string) string
}

// ScriptClassifier classifies by Unicode script membership. A message counts
// as English only when it is mostly Latin letters.
type ScriptClassifier struct{}

func (ScriptClassifier) Detect(text string) string {
	var latin, other int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Devanagari, r):
			return LangHindi
		case unicode.Is(unicode.Tamil, r):
			return LangTamil
		case unicode.Is(unicode.Telugu, r):
			return LangTelugu
		case unicode.Is(unicode.Kannada, r):
			return LangKannada
		case unicode.Is(unicode.Malayalam, r):
			return LangMalayalam
		case unicode.IsLetter(r):
			latin++
		default:
			other++
		}
	}
	if latin > 0 {
		return LangEnglish
	}
	return ""
}

var languageNames = map[string]string{
	"english":   LangEnglish,
	"hindi":     LangHindi,
	"tamil":     LangTamil,
	"telugu":    LangTelugu,
	"kannada":   LangKannada,
	"malayalam": LangMalayalam,
	"हिंदी":     LangHindi,
	"हिन्दी":    LangHindi,
	"தமிழ்":     LangTamil,
	"తెలుగు":    LangTelugu,
	"ಕನ್ನಡ":     LangKannada,
	"മലയാളം":    LangMalayalam,
}

var languageRequestMarkers = []string{
	"speak in", "talk in", "reply in", "answer in", "switch to",
	"में बोलो", "में बात करो", "இல் பேசு", "-ல் பேசு",
}

// ParseLanguageRequest recognizes fixed "speak in X" phrase templates and
// returns the requested language code, or "" when the message is not a
// language request.
func ParseLanguageRequest(text string) string {
	s := normalize(text)
	if s == "" {
		return ""
	}
	marked := false
	for _, m := range languageRequestMarkers {
		if strings.Contains(s, m) {
			marked = true
			break
		}
	}
	if !marked {
		return ""
	}
	for name, code := range languageNames {
		if strings.Contains(s, name) {
			return code
		}
	}
	return ""
}

// ResolveLanguage picks the active language for one turn. Priority: explicit
// per-message request, sticky session override, script-detected language,
// voice-input tag, ambient UI language. A generic English detection never
// silently overrides an established non-English session language when the
// message is short (short Latin fragments like "ok" carry no signal).
func ResolveLanguage(explicit, session, detected, voice, ambient string, shortMessage bool) string {
	if explicit != "" {
		return explicit
	}
	if detected == LangEnglish && session != "" && session != LangEnglish && shortMessage {
		return session
	}
	if detected != "" {
		return detected
	}
	if session != "" {
		return session
	}
	if voice != "" {
		return voice
	}
	if ambient != "" {
		return ambient
	}
	return LangEnglish
}

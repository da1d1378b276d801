package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"carebook-chatbot/internal/schedule"
)

// DateTime is the slot-filling tuple extracted from one message. Either half
// may be missing; absent halves stay empty with the corresponding Has flag
// false.
type DateTime struct {
	DateISO string
	Time24  string
	HasDate bool
	HasTime bool
}

var todayWords = []string{
	"today", "aaj", "आज", "இன்று", "ఈరోజు", "ಇಂದು", "ഇന്ന്",
}

var tomorrowWords = []string{
	"tomorrow", "tmrw", "कल", "நாளை", "రేపు", "ನಾಳೆ", "നാളെ",
}

var eveningHints = []string{
	"evening", "afternoon", "night", "शाम", "रात", "दोपहर",
	"மாலை", "இரவு", "సాయంత్రం", "ಸಂಜೆ", "വൈകുന്നേരം",
}

var morningHints = []string{
	"morning", "सुबह", "காலை", "ఉదయం", "ಬೆಳಿಗ್ಗೆ", "രാവിലെ",
}

var (
	reClockTime = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	reHourAMPM  = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	reBareHour  = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// ExtractDateTime pulls a date and a time out of free text. Rules run in
// priority order and the first match per half wins; conflicting later signals
// are ignored rather than fused.
//
// Dates: today/tomorrow keywords, then yyyy-MM-dd, then dd/MM/yyyy.
// Times: "HH:mm[am|pm]", then "H am/pm", then a bare hour adjacent to a
// time-of-day hint (evening hints push hours below 12 into the afternoon).
func ExtractDateTime(text string, now time.Time) DateTime {
	var out DateTime
	s := normalize(text)
	if s == "" {
		return out
	}

	switch {
	case containsAny(s, todayWords):
		out.DateISO = schedule.DateISO(now)
		out.HasDate = true
	case containsAny(s, tomorrowWords):
		out.DateISO = schedule.DateISO(now.AddDate(0, 0, 1))
		out.HasDate = true
	default:
		if d := schedule.FindISODate(s); d != "" {
			out.DateISO = d
			out.HasDate = true
		} else if d := schedule.FindDMYDate(s); d != "" {
			out.DateISO = d
			out.HasDate = true
		}
	}

	// Strip any matched date so its digits cannot be misread as a time.
	timeText := s
	if out.HasDate {
		timeText = stripDates(timeText)
	}

	if m := reClockTime.FindStringSubmatch(timeText); m != nil {
		candidate := m[1] + ":" + m[2]
		if m[3] != "" {
			candidate += m[3]
		}
		if t := schedule.NormalizeTime(candidate); t != "" {
			out.Time24 = t
			out.HasTime = true
			return out
		}
	}
	if m := reHourAMPM.FindStringSubmatch(timeText); m != nil {
		if t := schedule.NormalizeTime(m[1] + m[2]); t != "" {
			out.Time24 = t
			out.HasTime = true
			return out
		}
	}
	if t := contextualHour(timeText); t != "" {
		out.Time24 = t
		out.HasTime = true
	}
	return out
}

func stripDates(s string) string {
	s = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`).ReplaceAllString(s, " ")
	return regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`).ReplaceAllString(s, " ")
}

// contextualHour resolves a bare hour number near a time-of-day keyword, e.g.
// "around 5 in the evening" → "17:00". Without any hint the number is too
// ambiguous to use.
func contextualHour(s string) string {
	evening := containsAny(s, eveningHints)
	morning := containsAny(s, morningHints)
	if !evening && !morning {
		return ""
	}
	m := reBareHour.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	h, err := strconv.Atoi(m[1])
	if err != nil || h < 1 || h > 23 {
		return ""
	}
	if evening && h < 12 {
		h += 12
	}
	return schedule.NormalizeTime(strconv.Itoa(h) + ":00")
}

// IsShortMessage is true when a message is only a few words long; the
// language resolver treats such fragments as carrying no reliable script
// signal.
func IsShortMessage(text string) bool {
	return len(strings.Fields(strings.TrimSpace(text))) <= 4
}

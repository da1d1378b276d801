package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Calendar sources are not consistent about time formats: the machine value is
// usually "H:mm" 24-hour, but some feeds only fill the display label with a
// 12-hour string like "2:30 PM" or "9am". Everything is canonicalized to
// zero-padded "HH:mm" before matching or sorting.

var (
	re24h     = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	re12h     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	reISODate = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reDMYDate = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
)

// NormalizeTime canonicalizes a time string to "HH:mm" (24-hour, zero-padded).
// Accepted inputs: "H:mm"/"HH:mm", and 12-hour forms "h am", "h:mm pm",
// "9AM". Unrecognized or out-of-range input returns "". Idempotent.
func NormalizeTime(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if m := re24h.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h > 23 || min > 59 {
			return ""
		}
		return fmt.Sprintf("%02d:%02d", h, min)
	}
	if m := re12h.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min := 0
		if m[2] != "" {
			min, _ = strconv.Atoi(m[2])
		}
		if h < 1 || h > 12 || min > 59 {
			return ""
		}
		if m[3] == "pm" && h != 12 {
			h += 12
		}
		if m[3] == "am" && h == 12 {
			h = 0
		}
		return fmt.Sprintf("%02d:%02d", h, min)
	}
	return ""
}

// NormalizeSlot resolves a slot's canonical time, preferring the machine value
// over the display label. Returns "" when neither side parses.
func NormalizeSlot(label, value string) string {
	if t := NormalizeTime(value); t != "" {
		return t
	}
	return NormalizeTime(label)
}

// MinuteOfDay converts a canonical "HH:mm" string to minutes since midnight.
// Returns -1 for anything that does not normalize.
func MinuteOfDay(time24 string) int {
	t := NormalizeTime(time24)
	if t == "" {
		return -1
	}
	h, _ := strconv.Atoi(t[:2])
	m, _ := strconv.Atoi(t[3:])
	return h*60 + m
}

// FindISODate extracts the first valid yyyy-MM-dd date embedded in text.
func FindISODate(text string) string {
	m := reISODate.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if _, err := time.Parse("2006-01-02", m[0]); err != nil {
		return ""
	}
	return m[0]
}

// FindDMYDate extracts the first valid dd/MM/yyyy date embedded in text and
// returns it in ISO form.
func FindDMYDate(text string) string {
	m := reDMYDate.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	iso := fmt.Sprintf("%s-%s-%s", m[3], pad2(m[2]), pad2(m[1]))
	if _, err := time.Parse("2006-01-02", iso); err != nil {
		return ""
	}
	return iso
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// DateISO formats a wall-clock moment as a calendar date string.
func DateISO(t time.Time) string {
	return t.Format("2006-01-02")
}

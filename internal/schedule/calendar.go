package schedule

import (
	"fmt"
	"sort"
	"time"

	"carebook-chatbot/pkg"
)

// SlotRef identifies one bookable slot by its canonical coordinates.
type SlotRef struct {
	DateISO string
	Time24  string
}

// Display renders the slot for quick-reply actions, e.g. "Tomorrow 14:30".
func (r SlotRef) Display(now time.Time) string {
	return DayLabel(r.DateISO, now) + " " + r.Time24
}

// WindowPage is one page of the human-readable availability summary.
type WindowPage struct {
	Text      string
	Actions   []SlotRef
	NextIndex int
	HasMore   bool
}

// enabledSlots flattens a calendar snapshot into canonical slots: disabled
// days and slots are dropped, unparseable times are dropped, duplicates within
// a day are collapsed, and each day's slots are sorted ascending by
// minute-of-day. Day order follows the calendar.
func enabledSlots(days []pkg.Day) [][]SlotRef {
	out := make([][]SlotRef, 0, len(days))
	for _, day := range days {
		if !day.Enabled || day.DateISO == "" {
			out = append(out, nil)
			continue
		}
		seen := make(map[string]bool)
		var refs []SlotRef
		for _, sec := range day.Sections {
			for _, slot := range sec.Slots {
				if slot.Disabled {
					continue
				}
				t := NormalizeSlot(slot.Label, slot.Value)
				if t == "" || seen[t] {
					continue
				}
				seen[t] = true
				refs = append(refs, SlotRef{DateISO: day.DateISO, Time24: t})
			}
		}
		sort.Slice(refs, func(i, j int) bool {
			return MinuteOfDay(refs[i].Time24) < MinuteOfDay(refs[j].Time24)
		})
		out = append(out, refs)
	}
	return out
}

// IsAvailable reports whether the exact (date, time) pair is an enabled slot.
func IsAvailable(days []pkg.Day, dateISO, time24 string) bool {
	want := NormalizeTime(time24)
	if want == "" || dateISO == "" {
		return false
	}
	for _, refs := range enabledSlots(days) {
		for _, r := range refs {
			if r.DateISO == dateISO && r.Time24 == want {
				return true
			}
		}
	}
	return false
}

// NearestSlot returns the enabled slot closest to the requested target. With a
// date, distance is absolute minutes between the candidate and the target
// timestamp; without one, the first enabled slot in calendar order wins.
func NearestSlot(days []pkg.Day, dateISO, time24 string) (SlotRef, bool) {
	target := NormalizeTime(time24)
	if target == "" {
		return SlotRef{}, false
	}
	var (
		best     SlotRef
		bestDist int64 = -1
	)
	for _, refs := range enabledSlots(days) {
		for _, r := range refs {
			if dateISO == "" {
				return r, true
			}
			d := minuteDistance(r, dateISO, target)
			if d < 0 {
				continue
			}
			if bestDist < 0 || d < bestDist {
				best, bestDist = r, d
			}
		}
	}
	return best, bestDist >= 0
}

func minuteDistance(r SlotRef, dateISO, time24 string) int64 {
	d1, err := time.Parse("2006-01-02", r.DateISO)
	if err != nil {
		return -1
	}
	d2, err := time.Parse("2006-01-02", dateISO)
	if err != nil {
		return -1
	}
	dayDelta := int64(d1.Sub(d2) / (24 * time.Hour))
	diff := dayDelta*24*60 + int64(MinuteOfDay(r.Time24)-MinuteOfDay(time24))
	if diff < 0 {
		diff = -diff
	}
	return diff
}

// FirstTimeForDate returns the earliest enabled time on the given date.
func FirstTimeForDate(days []pkg.Day, dateISO string) (string, bool) {
	for _, refs := range enabledSlots(days) {
		for _, r := range refs {
			if r.DateISO == dateISO {
				return r.Time24, true
			}
		}
	}
	return "", false
}

// FirstDateForTime returns the first calendar date offering the given time.
func FirstDateForTime(days []pkg.Day, time24 string) (string, bool) {
	want := NormalizeTime(time24)
	if want == "" {
		return "", false
	}
	for _, refs := range enabledSlots(days) {
		for _, r := range refs {
			if r.Time24 == want {
				return r.DateISO, true
			}
		}
	}
	return "", false
}

// Window builds one page of the availability summary starting at startIndex,
// covering dayCount calendar days that have at least one open slot. Days with
// nothing open are skipped without consuming the page budget.
func Window(days []pkg.Day, startIndex, dayCount int, now time.Time) WindowPage {
	if dayCount <= 0 {
		dayCount = 2
	}
	if startIndex < 0 {
		startIndex = 0
	}
	flat := enabledSlots(days)

	var page WindowPage
	text := ""
	shown := 0
	i := startIndex
	for ; i < len(flat); i++ {
		refs := flat[i]
		if len(refs) == 0 {
			continue
		}
		if shown == dayCount {
			break
		}
		shown++
		label := DayLabel(refs[0].DateISO, now)
		text += fmt.Sprintf("%s — %d slot(s)\n", label, len(refs))
		for _, r := range refs {
			text += "  • " + r.Time24 + "\n"
			page.Actions = append(page.Actions, r)
		}
	}
	page.Text = text
	page.NextIndex = i
	for ; i < len(flat); i++ {
		if len(flat[i]) > 0 {
			page.HasMore = true
			break
		}
	}
	return page
}

// DayLabel renders a calendar date relative to now: "Today", "Tomorrow", or a
// short formatted date.
func DayLabel(dateISO string, now time.Time) string {
	today := DateISO(now)
	tomorrow := DateISO(now.AddDate(0, 0, 1))
	switch dateISO {
	case today:
		return "Today"
	case tomorrow:
		return "Tomorrow"
	}
	if d, err := time.Parse("2006-01-02", dateISO); err == nil {
		return d.Format("Mon, 02 Jan")
	}
	return dateISO
}

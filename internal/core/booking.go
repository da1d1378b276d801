package core

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"carebook-chatbot/internal/schedule"
	"carebook-chatbot/internal/suggest"
	"carebook-chatbot/pkg"
)

// runSuggestion answers the message through the suggestion cache and, when a
// valid specialty comes back while booking intent is live, moves the session
// into the booking confirmation.
func (e *Engine) runSuggestion(ctx context.Context, s *session, text, lang string, forceBooking bool) reply {
	digest := e.ensureRxDigest(ctx, s)
	risk := e.riskContext(ctx, s)

	cctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	sug, err := e.suggester.Suggest(cctx, suggest.Request{
		Language: lang,
		Risk:     risk,
		RxDigest: digest,
		Message:  text,
	})
	if err != nil {
		e.logger.Warn("suggestion call failed", "patient_id", s.patientID, "error", err)
		return reply{text: composeText(lang, tmplNetworkApology)}
	}

	if s.state == StateAwaitingSymptoms {
		s.state = StateIdle
	}

	if sug.Key == "" || !(s.bookingIntent || forceBooking) {
		if sug.Answer == "" {
			return reply{text: composeText(lang, tmplEmptyPrompt)}
		}
		return reply{text: composeText(lang, tmplAnswer, sug.Answer)}
	}

	doctors := e.fetchDoctors(ctx, sug.Key)
	if len(doctors) == 0 {
		// Valid specialty but nobody to book: degrade to the answer.
		if sug.Answer == "" {
			return reply{text: composeText(lang, tmplNoMoreDoctors, sug.Label)}
		}
		return reply{text: composeText(lang, tmplAnswer, sug.Answer)}
	}

	s.specialty = pendingSpecialty{Key: sug.Key, Label: sug.Label, Reason: sug.Reason}
	s.doctors = doctors
	s.doctorIdx = 0
	s.bookingIntent = false // consumed
	s.state = StateAwaitingBookingConfirm

	offer := composeText(lang, tmplOfferBooking, sug.Label, doctors[0].Name, doctors[0].Fee)
	if sug.Answer != "" {
		offer = sug.Answer + "\n\n" + offer
	}
	return reply{text: offer}
}

// fetchDoctors pulls the directory ranking and re-sorts defensively by
// (rating desc, experience desc).
func (e *Engine) fetchDoctors(ctx context.Context, specialtyKey string) []pkg.Doctor {
	cctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	doctors, err := e.directory.DoctorsBySpecialty(cctx, specialtyKey)
	if err != nil {
		e.logger.Warn("doctor directory failed", "specialty", specialtyKey, "error", err)
		return nil
	}
	sort.SliceStable(doctors, func(i, j int) bool {
		if doctors[i].Rating != doctors[j].Rating {
			return doctors[i].Rating > doctors[j].Rating
		}
		return doctors[i].ExperienceYears > doctors[j].ExperienceYears
	})
	return doctors
}

// nextDoctor advances to the next-ranked doctor for the pending specialty.
func (e *Engine) nextDoctor(s *session, lang string) reply {
	if s.doctorIdx+1 >= len(s.doctors) {
		return reply{text: composeText(lang, tmplNoMoreDoctors, s.specialty.Label)}
	}
	s.doctorIdx++
	s.calendar = nil // new doctor, stale calendar
	s.windowIndex = 0
	s.slot = pendingSlot{}
	s.suggested = nil
	s.state = StateAwaitingBookingConfirm
	d := s.doctor()
	return reply{text: composeText(lang, tmplOtherDoctor, d.Name, d.Fee)}
}

// ensureCalendar fetches the availability snapshot once per negotiation.
func (e *Engine) ensureCalendar(ctx context.Context, s *session) bool {
	if s.calendar != nil {
		return true
	}
	d := s.doctor()
	if d == nil {
		return false
	}
	cctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	days, err := e.avail.Availability(cctx, d.ID, e.daysAhead)
	if err != nil {
		e.logger.Warn("availability fetch failed", "doctor_id", d.ID, "error", err)
		return false
	}
	s.calendar = days
	s.windowIndex = 0
	return true
}

// resolveSlot reconciles the pending slot against the calendar. Deterministic
// rule: an unavailable exact request proposes the nearest slot; a lone date
// proposes that date's first time; a lone time proposes its first date; no
// candidate at all shows the availability window.
func (e *Engine) resolveSlot(ctx context.Context, s *session, lang string) reply {
	if !e.ensureCalendar(ctx, s) {
		return reply{text: composeText(lang, tmplNetworkApology)}
	}
	now := e.clock()
	hasDate := s.slot.DateISO != ""
	hasTime := s.slot.Time24 != ""

	switch {
	case hasDate && hasTime:
		if schedule.IsAvailable(s.calendar, s.slot.DateISO, s.slot.Time24) {
			return e.handoff(s, lang)
		}
		if ref, ok := schedule.NearestSlot(s.calendar, s.slot.DateISO, s.slot.Time24); ok {
			s.suggested = &suggestedSlot{DateISO: ref.DateISO, Time24: ref.Time24}
			s.state = StateAwaitingSuggestedTimeConfirm
			return reply{
				text: composeText(lang, tmplSuggestNearest, dayLabel(ref.DateISO, now), ref.Time24),
			}
		}

	case hasDate:
		if t, ok := schedule.FirstTimeForDate(s.calendar, s.slot.DateISO); ok {
			s.suggested = &suggestedSlot{DateISO: s.slot.DateISO, Time24: t}
			s.state = StateAwaitingSuggestedTimeConfirm
			return reply{
				text: composeText(lang, tmplSuggestFirstTime, dayLabel(s.slot.DateISO, now), t),
			}
		}

	case hasTime:
		if d, ok := schedule.FirstDateForTime(s.calendar, s.slot.Time24); ok {
			s.suggested = &suggestedSlot{DateISO: d, Time24: s.slot.Time24}
			s.state = StateAwaitingSuggestedTimeConfirm
			return reply{
				text: composeText(lang, tmplSuggestFirstDate, s.slot.Time24, dayLabel(d, now)),
			}
		}

	default:
		s.state = StateAwaitingDateTime
		return reply{text: composeText(lang, tmplAskDateTime)}
	}

	s.state = StateAwaitingDateTime
	s.windowIndex = 0
	return e.showWindow(s, lang)
}

// acceptSuggestedSlot commits the proposed slot after a yes, revalidating
// against a fresh calendar snapshot before handing off.
func (e *Engine) acceptSuggestedSlot(ctx context.Context, s *session, lang string) reply {
	if s.suggested == nil {
		s.state = StateAwaitingDateTime
		return reply{text: composeText(lang, tmplAskDateTime)}
	}
	s.slot.DateISO = s.suggested.DateISO
	s.slot.Time24 = s.suggested.Time24
	s.suggested = nil

	// Live revalidation: the slot may have been taken since it was proposed.
	s.calendar = nil
	if !e.ensureCalendar(ctx, s) {
		s.state = StateAwaitingSuggestedTimeConfirm
		s.suggested = &suggestedSlot{DateISO: s.slot.DateISO, Time24: s.slot.Time24}
		return reply{text: composeText(lang, tmplNetworkApology)}
	}
	if schedule.IsAvailable(s.calendar, s.slot.DateISO, s.slot.Time24) {
		return e.handoff(s, lang)
	}
	s.state = StateAwaitingDateTime
	s.slot.Time24 = ""
	s.windowIndex = 0
	return e.showWindow(s, lang)
}

// handoff emits the booking payload for the external flow and returns the
// session to idle.
func (e *Engine) handoff(s *session, lang string) reply {
	d := s.doctor()
	consult := s.slot.Consult
	if consult == "" {
		consult = pkg.ConsultInPerson
	}
	h := &pkg.BookingHandoff{
		ReferenceID:    uuid.NewString(),
		SpecialtyKey:   s.specialty.Key,
		SpecialtyLabel: s.specialty.Label,
		SymptomsText:   s.symptomsText,
		DoctorID:       d.ID,
		DoctorName:     d.Name,
		ConsultType:    consult,
		DateISO:        s.slot.DateISO,
		Time24:         s.slot.Time24,
	}
	text := composeText(lang, tmplBookingHandoff,
		h.SpecialtyLabel, h.DoctorName, dayLabel(h.DateISO, e.clock()), h.Time24,
		consultDisplay(consult))
	s.resetBooking()
	return reply{text: text, handoff: h}
}

func consultDisplay(c pkg.ConsultType) string {
	if c == pkg.ConsultOnline {
		return "online consult"
	}
	return "in-person visit"
}

// showWindow renders the current availability page and advances the cursor so
// "view more" pages without refetching.
func (e *Engine) showWindow(s *session, lang string) reply {
	now := e.clock()
	page := schedule.Window(s.calendar, s.windowIndex, 2, now)
	if len(page.Actions) == 0 && s.windowIndex > 0 {
		// Ran off the end: wrap to the first page.
		s.windowIndex = 0
		page = schedule.Window(s.calendar, 0, 2, now)
	}
	if len(page.Actions) == 0 {
		return reply{text: composeText(lang, tmplNoAvailability)}
	}
	s.windowIndex = page.NextIndex
	if s.state == StateIdle || s.state == StateAwaitingBookingConfirm {
		s.state = StateAwaitingDateTime
	}

	chips := make([]string, 0, len(page.Actions)+2)
	for _, a := range page.Actions {
		chips = append(chips, a.Display(now))
	}
	if page.HasMore {
		chips = append(chips, "View more availability")
	}
	chips = append(chips, quickReplies(lang, "yes_no_cancel")[2])
	return reply{
		text:  composeText(lang, tmplAvailability, page.Text),
		chips: chips,
	}
}

// viewAppointment answers "what's my appointment" from the memoized flag.
func (e *Engine) viewAppointment(ctx context.Context, s *session, lang string) reply {
	has, known := e.ensureUpcoming(ctx, s)
	if !known {
		return reply{text: composeText(lang, tmplNetworkApology)}
	}
	if has {
		return reply{text: composeText(lang, tmplUpcomingBooking)}
	}
	return reply{text: composeText(lang, tmplNoUpcoming)}
}

// listPrescriptions answers a direct prescriptions query without the LLM.
func (e *Engine) listPrescriptions(ctx context.Context, s *session, lang string) reply {
	f := e.startRxFetch(s)
	if f == nil {
		return reply{text: composeText(lang, tmplNoPrescriptions)}
	}
	select {
	case <-f.done:
	case <-time.After(e.callTimeout):
	case <-ctx.Done():
	}
	select {
	case <-f.done:
	default:
		return reply{text: composeText(lang, tmplNetworkApology)}
	}
	if f.err != nil {
		return reply{text: composeText(lang, tmplNetworkApology)}
	}
	if len(f.list) == 0 {
		return reply{text: composeText(lang, tmplNoPrescriptions)}
	}
	return reply{text: composeText(lang, tmplPrescriptions, formatPrescriptions(f.list))}
}

// medicationInfo replies with the digest once the records interrupt confirms.
func (e *Engine) medicationInfo(ctx context.Context, s *session, lang string) reply {
	digest := e.ensureRxDigest(ctx, s)
	if digest == "" {
		return reply{text: composeText(lang, tmplNoPrescriptions)}
	}
	return reply{text: composeText(lang, tmplMedicationInfo, digest)}
}

// startRxFetch launches the lazy prescriptions fetch once per session. The
// goroutine writes only into its own fetch record before closing done, so a
// record dropped by a reset can finish safely and be discarded.
func (e *Engine) startRxFetch(s *session) *rxFetch {
	if e.rxSource == nil {
		return nil
	}
	if s.rx != nil {
		return s.rx
	}
	f := &rxFetch{done: make(chan struct{})}
	s.rx = f
	patientID := s.patientID
	go func() {
		defer close(f.done)
		cctx, cancel := context.WithTimeout(context.Background(), e.callTimeout)
		defer cancel()
		f.list, f.err = e.rxSource.Prescriptions(cctx, patientID)
		if f.err != nil {
			return
		}
		f.digest, _ = e.digester.Digest(cctx, f.list)
	}()
	return f
}

// ensureRxDigest waits briefly for the prescriptions digest and proceeds with
// whatever is available once the bound elapses.
func (e *Engine) ensureRxDigest(ctx context.Context, s *session) string {
	f := e.startRxFetch(s)
	if f == nil {
		return ""
	}
	select {
	case <-f.done:
	case <-time.After(e.rxWait):
	case <-ctx.Done():
	}
	select {
	case <-f.done:
		return f.digest
	default:
		return ""
	}
}

// ensureUpcoming memoizes the upcoming-booking flag with a short bounded
// wait. The result is dropped as stale when the session record was swapped
// out (reset or booking_updates notification) while the fetch ran.
func (e *Engine) ensureUpcoming(ctx context.Context, s *session) (has, known bool) {
	if e.bookings == nil {
		return false, false
	}
	f := s.upcoming
	if f == nil {
		f = &bookingFetch{done: make(chan struct{})}
		s.upcoming = f
		patientID := s.patientID
		go func() {
			defer close(f.done)
			cctx, cancel := context.WithTimeout(context.Background(), e.callTimeout)
			defer cancel()
			f.has, f.err = e.bookings.HasUpcomingBooking(cctx, patientID)
		}()
	}
	select {
	case <-f.done:
	case <-time.After(e.bookingWait):
	case <-ctx.Done():
	}
	select {
	case <-f.done:
	default:
		return false, false
	}
	if f.err != nil || s.upcoming != f {
		return false, false
	}
	return f.has, true
}

func (e *Engine) riskContext(ctx context.Context, s *session) pkg.RiskContext {
	if e.risk == nil {
		return pkg.RiskContext{}
	}
	cctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	rc, err := e.risk.RiskContext(cctx, s.patientID)
	if err != nil {
		e.logger.Debug("risk context unavailable", "patient_id", s.patientID, "error", err)
		return pkg.RiskContext{}
	}
	return rc
}

func dayLabel(dateISO string, now time.Time) string {
	return schedule.DayLabel(dateISO, now)
}

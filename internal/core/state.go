package core

import (
	"sync"

	"carebook-chatbot/pkg"
)

// State is the single active dialogue state of a session. Exactly one value
// holds at any time; sub-questions that used to be tracked with independent
// boolean flags are all folded in here so the exclusivity is structural.
type State int

const (
	StateIdle State = iota
	StateAwaitingSymptoms
	StateAwaitingBookingConfirm
	StateAwaitingDateTime
	StateAwaitingSuggestedTimeConfirm
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSymptoms:
		return "awaiting_symptoms"
	case StateAwaitingBookingConfirm:
		return "awaiting_booking_confirm"
	case StateAwaitingDateTime:
		return "awaiting_date_time"
	case StateAwaitingSuggestedTimeConfirm:
		return "awaiting_suggested_time_confirm"
	}
	return "unknown"
}

// interruptKind marks a short-lived yes/no question that pauses the booking
// flow and resumes it afterwards.
type interruptKind int

const (
	interruptNone interruptKind = iota
	interruptRecordsConfirm
	interruptMedicationConfirm
)

// Observer receives session lifecycle events. Subscribe on open, unsubscribe
// on close; there is no global registry.
type Observer interface {
	TurnProcessed(patientID string, state State)
	BookingHandedOff(patientID string, handoff pkg.BookingHandoff)
}

type pendingSpecialty struct {
	Key    string
	Label  string
	Reason string
}

type pendingSlot struct {
	DateISO string
	Time24  string
	Consult pkg.ConsultType
}

type suggestedSlot struct {
	DateISO string
	Time24  string
}

// languageOverride resolves in three tiers: an explicit per-message override
// beats the sticky session override beats ambient UI language.
type languageOverride struct {
	active           string
	session          string
	pendingFromVoice string
}

// rxFetch carries one lazy prescriptions fetch. Fields are written only by
// the fetch goroutine before done is closed.
type rxFetch struct {
	done   chan struct{}
	list   []pkg.Prescription
	digest string
	err    error
}

// bookingFetch carries one lazy upcoming-booking check, same discipline.
type bookingFetch struct {
	done chan struct{}
	has  bool
	err  error
}

// session is all per-conversation state. The mutex serializes turns; no two
// turns ever run concurrently against the same session.
type session struct {
	mu        sync.Mutex
	patientID string

	state     State
	interrupt interruptKind

	specialty     pendingSpecialty
	symptomsText  string
	doctors       []pkg.Doctor
	doctorIdx     int
	slot          pendingSlot
	suggested     *suggestedSlot
	bookingIntent bool

	lang languageOverride

	calendar    []pkg.Day
	windowIndex int

	rx       *rxFetch
	upcoming *bookingFetch

	lastAssistant string

	observers []Observer
}

func newSession(patientID string) *session {
	return &session{patientID: patientID}
}

// doctor returns the currently selected doctor, if a suggestion round picked
// one.
func (s *session) doctor() *pkg.Doctor {
	if s.doctorIdx < 0 || s.doctorIdx >= len(s.doctors) {
		return nil
	}
	return &s.doctors[s.doctorIdx]
}

// resetBooking wipes every booking field in one transition and returns the
// session to idle. Language overrides and memoized fetches survive.
func (s *session) resetBooking() {
	s.state = StateIdle
	s.interrupt = interruptNone
	s.specialty = pendingSpecialty{}
	s.symptomsText = ""
	s.doctors = nil
	s.doctorIdx = 0
	s.slot = pendingSlot{}
	s.suggested = nil
	s.bookingIntent = false
	s.calendar = nil
	s.windowIndex = 0
}

// resetAll is the explicit "clear conversation" reset: everything goes,
// including language overrides and memoized context.
func (s *session) resetAll() {
	s.resetBooking()
	s.lang = languageOverride{}
	s.rx = nil
	s.upcoming = nil
	s.lastAssistant = ""
}

// Subscribe registers an observer for this session's events.
func (s *session) subscribe(o Observer) {
	if o == nil {
		return
	}
	s.observers = append(s.observers, o)
}

func (s *session) unsubscribe(o Observer) {
	for i, cur := range s.observers {
		if cur == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *session) notifyTurn() {
	for _, o := range s.observers {
		o.TurnProcessed(s.patientID, s.state)
	}
}

func (s *session) notifyHandoff(h pkg.BookingHandoff) {
	for _, o := range s.observers {
		o.BookingHandedOff(s.patientID, h)
	}
}

package core

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carebook-chatbot/internal/llm"
	"carebook-chatbot/internal/suggest"
	"carebook-chatbot/pkg"
)

var testNow = time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC)

const fverReply = "Rest and drink fluids.\nSPECIALITY_KEY=FEVER_CLINIC\nSPECIALITY_REASON=Fever symptoms."

type fakeLLM struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (f *fakeLLM) Complete(_ context.Context, _ llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reply, f.err
}

type fakeDirectory struct {
	doctors []pkg.Doctor
	err     error
}

func (f *fakeDirectory) DoctorsBySpecialty(_ context.Context, key string) ([]pkg.Doctor, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]pkg.Doctor, len(f.doctors))
	copy(out, f.doctors)
	for i := range out {
		out[i].SpecialtyKey = key
	}
	return out, nil
}

type fakeAvailability struct {
	mu    sync.Mutex
	days  []pkg.Day
	err   error
	calls int
}

func (f *fakeAvailability) Availability(_ context.Context, _ string, _ int) ([]pkg.Day, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.days, nil
}

type fakeRx struct {
	list []pkg.Prescription
	err  error
}

func (f *fakeRx) Prescriptions(_ context.Context, _ string) ([]pkg.Prescription, error) {
	return f.list, f.err
}

type fakeBookings struct {
	has bool
	err error
}

func (f *fakeBookings) HasUpcomingBooking(_ context.Context, _ string) (bool, error) {
	return f.has, f.err
}

type fakeStore struct {
	mu    sync.Mutex
	turns []pkg.Turn
}

func (f *fakeStore) SaveTurn(_ context.Context, t pkg.Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, t)
	return nil
}

func (f *fakeStore) LoadTurns(_ context.Context, _ string, _ int) ([]pkg.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.turns, nil
}

func defaultCalendar() []pkg.Day {
	return []pkg.Day{
		{
			DateISO: "2025-03-10",
			Enabled: true,
			Sections: []pkg.Section{{Slots: []pkg.Slot{
				{Label: "9:00 AM", Value: "9:00"},
				{Label: "2:30 PM", Value: "14:30"},
			}}},
		},
		{
			DateISO: "2025-03-11",
			Enabled: true,
			Sections: []pkg.Section{{Slots: []pkg.Slot{
				{Label: "10:00 AM", Value: "10:00"},
			}}},
		},
	}
}

type testRig struct {
	engine *Engine
	llm    *fakeLLM
	avail  *fakeAvailability
	store  *fakeStore
}

func newRig(days []pkg.Day) *testRig {
	fll := &fakeLLM{reply: fverReply}
	avail := &fakeAvailability{days: days}
	store := &fakeStore{}
	engine := NewEngine(Dependencies{
		Store: store,
		Directory: &fakeDirectory{doctors: []pkg.Doctor{
			{ID: "doc-1", Name: "Mehta", Fee: 300, Rating: 4.7, ExperienceYears: 12},
			{ID: "doc-2", Name: "Rao", Fee: 250, Rating: 4.7, ExperienceYears: 8},
			{ID: "doc-3", Name: "Iyer", Fee: 200, Rating: 4.2, ExperienceYears: 20},
		}},
		Availability:  avail,
		Prescriptions: &fakeRx{list: []pkg.Prescription{{Medicine: "Metformin", Dosage: "500mg", Frequency: "daily"}}},
		Bookings:      &fakeBookings{has: true},
		Suggester:     suggest.NewSuggester(fll, 0, nil),
		Digester:      NewPrescriptionDigester(nil),
	},
		WithClock(func() time.Time { return testNow }),
		WithEnsureWaits(50*time.Millisecond, 50*time.Millisecond),
		WithCallTimeout(time.Second),
	)
	return &testRig{engine: engine, llm: fll, avail: avail, store: store}
}

func (r *testRig) turn(t *testing.T, text string) pkg.ChatResponse {
	t.Helper()
	resp, err := r.engine.HandleTurn(context.Background(), "pat-1", pkg.ChatRequest{Content: text})
	require.NoError(t, err)
	return resp
}

func (r *testRig) sess() *session {
	return r.engine.session("pat-1")
}

func TestBookingHappyPath(t *testing.T) {
	r := newRig(defaultCalendar())

	resp := r.turn(t, "I want to book a doctor")
	assert.Equal(t, "awaiting_symptoms", resp.State)
	assert.Contains(t, resp.Reply, "symptoms")
	assert.Contains(t, resp.QuickReplies, "Fever")

	resp = r.turn(t, "high fever and a dry cough since yesterday")
	assert.Equal(t, "awaiting_booking_confirm", resp.State)
	assert.Contains(t, resp.Reply, "Rest and drink fluids.")
	assert.Contains(t, resp.Reply, "Fever Clinic")
	assert.Contains(t, resp.Reply, "Mehta", "top-rated doctor offered first")
	assert.Contains(t, resp.QuickReplies, "Yes")

	resp = r.turn(t, "yes, tomorrow at 14:30")
	assert.Equal(t, "idle", resp.State)
	require.NotNil(t, resp.Handoff)
	assert.Equal(t, "FEVER_CLINIC", resp.Handoff.SpecialtyKey)
	assert.Equal(t, "doc-1", resp.Handoff.DoctorID)
	assert.Equal(t, "2025-03-10", resp.Handoff.DateISO)
	assert.Equal(t, "14:30", resp.Handoff.Time24)
	assert.Equal(t, pkg.ConsultInPerson, resp.Handoff.ConsultType)
	assert.Equal(t, "high fever and a dry cough since yesterday", resp.Handoff.SymptomsText)

	// Booking fields are gone after handoff.
	s := r.sess()
	assert.Empty(t, s.specialty.Key)
	assert.Empty(t, s.slot.Time24)
	assert.False(t, s.bookingIntent)
}

func TestDoctorRankingPrefersExperienceOnTiedRating(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "book a doctor")
	resp := r.turn(t, "fever")
	assert.Contains(t, resp.Reply, "Mehta", "4.7 rating with 12y beats 4.7 with 8y")
}

func TestNegativeAtConfirmCancels(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "book a doctor")
	r.turn(t, "fever")
	resp := r.turn(t, "no")
	assert.Equal(t, "idle", resp.State)
	assert.Empty(t, r.sess().specialty.Key)
}

func TestUnavailableSlotProposesNearest(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "book a doctor")
	r.turn(t, "fever")

	resp := r.turn(t, "yes, tomorrow at 15:00")
	assert.Equal(t, "awaiting_suggested_time_confirm", resp.State)
	assert.Contains(t, resp.Reply, "14:30")
	require.NotNil(t, r.sess().suggested)
	assert.Equal(t, "2025-03-10", r.sess().suggested.DateISO)

	// Accepting revalidates against a fresh snapshot and hands off.
	before := r.avail.calls
	resp = r.turn(t, "yes")
	require.NotNil(t, resp.Handoff)
	assert.Equal(t, "14:30", resp.Handoff.Time24)
	assert.Greater(t, r.avail.calls, before, "live revalidation refetches the calendar")
}

func TestDateOnlySuggestsFirstTime(t *testing.T) {
	days := []pkg.Day{{
		DateISO: "2025-03-10",
		Enabled: true,
		Sections: []pkg.Section{{Slots: []pkg.Slot{
			{Label: "2:30 PM", Value: "14:30"},
		}}},
	}}
	r := newRig(days)
	r.turn(t, "book a doctor")
	r.turn(t, "fever")
	r.turn(t, "yes")

	resp := r.turn(t, "2025-03-10")
	assert.Equal(t, "awaiting_suggested_time_confirm", resp.State)
	assert.Contains(t, resp.Reply, "14:30")
}

func TestTimeOnlySuggestsFirstDate(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "book a doctor")
	r.turn(t, "fever")
	r.turn(t, "yes")

	resp := r.turn(t, "10:00 works for me")
	assert.Equal(t, "awaiting_suggested_time_confirm", resp.State)
	assert.Contains(t, resp.Reply, "10:00")
	assert.Equal(t, "2025-03-11", r.sess().suggested.DateISO)
}

func TestRejectedSuggestionClearsSlotAndShowsWindow(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "book a doctor")
	r.turn(t, "fever")
	r.turn(t, "yes, tomorrow at 15:00")
	require.NotNil(t, r.sess().suggested)

	resp := r.turn(t, "no")
	assert.Equal(t, "awaiting_date_time", resp.State)
	assert.Nil(t, r.sess().suggested, "rejected slot is not reused")
	assert.Contains(t, resp.Reply, "availability")
	assert.Contains(t, resp.QuickReplies, "Tomorrow 09:00")
}

func TestCancelFromAnySubStateWipesEverything(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "book a doctor")
	r.turn(t, "fever")
	r.turn(t, "yes, tomorrow at 15:00")

	resp := r.turn(t, "please cancel the booking")
	assert.Equal(t, "idle", resp.State)
	s := r.sess()
	assert.Empty(t, s.specialty.Key)
	assert.Empty(t, s.slot.DateISO)
	assert.Empty(t, s.slot.Time24)
	assert.Nil(t, s.suggested)
	assert.False(t, s.bookingIntent)
	assert.Empty(t, s.symptomsText)
}

func TestUnparseableInputReprompts(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "book a doctor")
	r.turn(t, "fever")

	resp := r.turn(t, "hmm let me think")
	assert.Equal(t, "awaiting_booking_confirm", resp.State, "never advances on unparseable input")
	assert.Contains(t, resp.Reply, "yes or a no")

	r.turn(t, "yes")
	resp = r.turn(t, "whenever is fine honestly")
	assert.Equal(t, "awaiting_date_time", resp.State)
	assert.Contains(t, resp.Reply, "couldn't read a date or time")
}

func TestLLMFailureLeavesStateUnchanged(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "book a doctor")

	r.llm.mu.Lock()
	r.llm.err = errors.New("timeout")
	r.llm.mu.Unlock()

	resp := r.turn(t, "fever and chills")
	assert.Equal(t, "awaiting_symptoms", resp.State)
	assert.Contains(t, resp.Reply, "trouble reaching")
}

func TestUnlistedSpecialtyDegradesToAnswer(t *testing.T) {
	r := newRig(defaultCalendar())
	r.llm.mu.Lock()
	r.llm.reply = "Try a sleep study.\nSPECIALITY_KEY=SLEEP_MEDICINE\nSPECIALITY_REASON=Snoring."
	r.llm.mu.Unlock()

	resp := r.turn(t, "i snore a lot at night these days")
	assert.Equal(t, "idle", resp.State, "no booking offer without an allow-listed code")
	assert.Contains(t, resp.Reply, "Try a sleep study.")
	assert.Empty(t, r.sess().specialty.Key)
}

func TestAvailabilityFetchFailureApologizes(t *testing.T) {
	r := newRig(nil)
	r.avail.err = errors.New("unreachable")
	r.turn(t, "book a doctor")
	r.turn(t, "fever")

	resp := r.turn(t, "yes, tomorrow at 15:00")
	assert.Contains(t, resp.Reply, "trouble reaching")
	assert.Equal(t, "awaiting_booking_confirm", resp.State, "slot state untouched for retry")
}

func TestOtherDoctorsAdvancesRanking(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "book a doctor")
	r.turn(t, "fever")

	resp := r.turn(t, "any other doctors?")
	assert.Contains(t, resp.Reply, "Rao")
	assert.Equal(t, "awaiting_booking_confirm", resp.State)

	r.turn(t, "other doctors")
	resp = r.turn(t, "other doctors")
	assert.Contains(t, resp.Reply, "everyone I have")
}

func TestViewMorePagesWithoutRefetch(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "book a doctor")
	r.turn(t, "fever")
	r.turn(t, "yes")
	resp := r.turn(t, "nonsense input")
	assert.Equal(t, "awaiting_date_time", resp.State)

	// Force the window open, then page it.
	resp = r.turn(t, "2025-04-01") // no slots that day -> window
	assert.Contains(t, resp.Reply, "availability")
	fetches := r.avail.calls
	resp = r.turn(t, "view more")
	assert.NotEmpty(t, resp.Reply)
	assert.Equal(t, fetches, r.avail.calls, "paging reuses the cached snapshot")
}

func TestRecordsInterruptResumesBooking(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "book a doctor")
	r.turn(t, "fever")

	resp := r.turn(t, "show me my health records")
	assert.Contains(t, resp.Reply, "health records")
	assert.Equal(t, "awaiting_booking_confirm", resp.State, "booking paused, not dropped")

	resp = r.turn(t, "yes")
	assert.Contains(t, resp.Reply, "Opening your health records")
	assert.Equal(t, "awaiting_booking_confirm", resp.State)

	// The next yes answers the original booking question.
	resp = r.turn(t, "yes, tomorrow at 14:30")
	require.NotNil(t, resp.Handoff)
}

func TestPrescriptionsQueryListsWithoutLLM(t *testing.T) {
	r := newRig(defaultCalendar())
	before := r.llm.calls
	resp := r.turn(t, "show my prescriptions")
	assert.Contains(t, resp.Reply, "Metformin")
	assert.Equal(t, before, r.llm.calls)
}

func TestViewAppointment(t *testing.T) {
	r := newRig(defaultCalendar())
	resp := r.turn(t, "what is my appointment?")
	assert.Contains(t, resp.Reply, "upcoming appointment")
}

func TestLanguageStickyOverride(t *testing.T) {
	r := newRig(defaultCalendar())

	resp := r.turn(t, "speak in hindi")
	assert.Equal(t, "hi", resp.Language)
	assert.Contains(t, resp.Reply, "हिंदी")

	// Short Latin replies do not silently flip the session back to English.
	resp = r.turn(t, "ok")
	assert.Equal(t, "hi", resp.Language)
}

func TestScriptDetectionSetsLanguage(t *testing.T) {
	r := newRig(defaultCalendar())
	r.llm.mu.Lock()
	r.llm.reply = "आराम कीजिए।\nSPECIALITY_KEY=NONE"
	r.llm.mu.Unlock()

	resp := r.turn(t, "मुझे बहुत तेज़ सिरदर्द हो रहा है")
	assert.Equal(t, "hi", resp.Language)
}

func TestResetClearsEverything(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "speak in tamil")
	r.turn(t, "book a doctor")
	r.engine.Reset("pat-1")

	s := r.sess()
	assert.Equal(t, StateIdle, s.state)
	assert.Empty(t, s.lang.session)
	assert.Nil(t, s.rx)
}

type recordingObserver struct {
	mu       sync.Mutex
	turns    int
	handoffs []pkg.BookingHandoff
}

func (o *recordingObserver) TurnProcessed(_ string, _ State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.turns++
}

func (o *recordingObserver) BookingHandedOff(_ string, h pkg.BookingHandoff) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handoffs = append(o.handoffs, h)
}

func TestObserverLifecycle(t *testing.T) {
	r := newRig(defaultCalendar())
	obs := &recordingObserver{}
	r.engine.Subscribe("pat-1", obs)

	r.turn(t, "book a doctor")
	r.turn(t, "fever")
	r.turn(t, "yes, tomorrow at 14:30")
	assert.Equal(t, 3, obs.turns)
	require.Len(t, obs.handoffs, 1)
	assert.Equal(t, "doc-1", obs.handoffs[0].DoctorID)

	r.engine.Unsubscribe("pat-1", obs)
	r.turn(t, "hello")
	assert.Equal(t, 3, obs.turns, "no events after unsubscribe")
}

func TestHistoryReturnsPersistedTail(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "hello there")
	turns, err := r.engine.History(context.Background(), "pat-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "hello there", turns[0].Content)
}

func TestTurnsPersisted(t *testing.T) {
	r := newRig(defaultCalendar())
	r.turn(t, "hello there")
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	require.Len(t, r.store.turns, 2)
	assert.Equal(t, pkg.RolePatient, r.store.turns[0].Role)
	assert.Equal(t, pkg.RoleAssistant, r.store.turns[1].Role)
}

// TestRandomizedTurnsKeepSingleActiveState drives long random conversations
// and asserts the automaton always lands in exactly one well-defined state.
func TestRandomizedTurnsKeepSingleActiveState(t *testing.T) {
	pool := []string{
		"yes", "no", "book a doctor", "fever and cough", "tomorrow 10:00",
		"cancel booking", "what is my appointment", "random chatter",
		"view more", "my prescriptions", "show my records", "2025-03-10",
		"other doctors", "speak in hindi", "9 in the evening", "", "ok",
	}
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 3; round++ {
		r := newRig(defaultCalendar())
		for i := 0; i < 60; i++ {
			msg := pool[rng.Intn(len(pool))]
			resp, err := r.engine.HandleTurn(context.Background(), "pat-1", pkg.ChatRequest{Content: msg})
			require.NoError(t, err)
			assert.NotEmpty(t, resp.Reply)

			s := r.sess()
			assert.GreaterOrEqual(t, int(s.state), int(StateIdle))
			assert.LessOrEqual(t, int(s.state), int(StateAwaitingSuggestedTimeConfirm))
			if s.suggested != nil && s.interrupt == interruptNone {
				assert.Equal(t, StateAwaitingSuggestedTimeConfirm, s.state,
					"a live suggestion implies the confirm state (turn %d, %q)", i, msg)
			}
			if s.state == StateAwaitingBookingConfirm {
				assert.NotEmpty(t, s.specialty.Key, "confirm state implies a pending specialty")
			}
		}
	}
}

func TestEmptyInputPrompts(t *testing.T) {
	r := newRig(defaultCalendar())
	resp := r.turn(t, "   ")
	assert.Contains(t, resp.Reply, "here to help")
	assert.Equal(t, "idle", resp.State)
}

func strState(s State) string { return s.String() }

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "idle", strState(StateIdle))
	assert.Equal(t, "awaiting_symptoms", strState(StateAwaitingSymptoms))
	assert.Equal(t, "awaiting_booking_confirm", strState(StateAwaitingBookingConfirm))
	assert.Equal(t, "awaiting_date_time", strState(StateAwaitingDateTime))
	assert.Equal(t, "awaiting_suggested_time_confirm", strState(StateAwaitingSuggestedTimeConfirm))
	assert.NotEmpty(t, strings.TrimSpace(strState(State(99))))
}

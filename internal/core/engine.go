package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"carebook-chatbot/internal/intent"
	"carebook-chatbot/internal/suggest"
	"carebook-chatbot/pkg"
	"carebook-chatbot/pkg/logging"
)

// TurnStore persists the recent chat tail per patient.
type TurnStore interface {
	LoadTurns(ctx context.Context, patientID string, limit int) ([]pkg.Turn, error)
	SaveTurn(ctx context.Context, turn pkg.Turn) error
}

// DoctorDirectory lists doctors for a specialty, pre-ranked by the backend.
type DoctorDirectory interface {
	DoctorsBySpecialty(ctx context.Context, key string) ([]pkg.Doctor, error)
}

// AvailabilitySource fetches a doctor's calendar snapshot.
type AvailabilitySource interface {
	Availability(ctx context.Context, doctorID string, daysAhead int) ([]pkg.Day, error)
}

// PrescriptionSource fetches a patient's prescription rows.
type PrescriptionSource interface {
	Prescriptions(ctx context.Context, patientID string) ([]pkg.Prescription, error)
}

// BookingSource answers whether the patient already has an upcoming booking.
type BookingSource interface {
	HasUpcomingBooking(ctx context.Context, patientID string) (bool, error)
}

// RiskSource supplies the opaque risk context for the suggestion prompt.
type RiskSource interface {
	RiskContext(ctx context.Context, patientID string) (pkg.RiskContext, error)
}

// Dependencies bundles the engine's collaborators.
type Dependencies struct {
	Store         TurnStore
	Directory     DoctorDirectory
	Availability  AvailabilitySource
	Prescriptions PrescriptionSource
	Bookings      BookingSource
	Risk          RiskSource
	Suggester     *suggest.Suggester
	Chips         *suggest.ChipGenerator
	Digester      *PrescriptionDigester
	Logger        *logging.Logger
}

// Option tunes engine behaviour.
type Option func(*Engine)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithClassifier swaps the language classification strategy.
func WithClassifier(c intent.Classifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithDefaultLanguage sets the ambient UI language.
func WithDefaultLanguage(lang string) Option {
	return func(e *Engine) {
		if lang != "" {
			e.defaultLanguage = lang
		}
	}
}

// WithEnsureWaits bounds the synchronous waits on the lazy prescription and
// booking-flag fetches.
func WithEnsureWaits(rx, booking time.Duration) Option {
	return func(e *Engine) {
		if rx > 0 {
			e.rxWait = rx
		}
		if booking > 0 {
			e.bookingWait = booking
		}
	}
}

// WithCallTimeout bounds each outbound network call.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.callTimeout = d
		}
	}
}

const (
	defaultCallTimeout = 8 * time.Second
	defaultRxWait      = 1500 * time.Millisecond
	defaultBookingWait = 700 * time.Millisecond
	defaultDaysAhead   = 7
	turnTailLimit      = 10
)

// Engine is the dialogue orchestrator. It owns all sessions and serializes
// turns per session.
type Engine struct {
	store     TurnStore
	directory DoctorDirectory
	avail     AvailabilitySource
	rxSource  PrescriptionSource
	bookings  BookingSource
	risk      RiskSource
	suggester *suggest.Suggester
	chips     *suggest.ChipGenerator
	digester  *PrescriptionDigester
	logger    *logging.Logger

	classifier      intent.Classifier
	clock           func() time.Time
	callTimeout     time.Duration
	rxWait          time.Duration
	bookingWait     time.Duration
	defaultLanguage string
	daysAhead       int

	mu       sync.Mutex
	sessions map[string]*session
}

// NewEngine wires the dialogue engine.
func NewEngine(deps Dependencies, opts ...Option) *Engine {
	if deps.Directory == nil {
		panic("core: doctor directory cannot be nil")
	}
	if deps.Availability == nil {
		panic("core: availability source cannot be nil")
	}
	if deps.Suggester == nil {
		panic("core: suggester cannot be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		store:           deps.Store,
		directory:       deps.Directory,
		avail:           deps.Availability,
		rxSource:        deps.Prescriptions,
		bookings:        deps.Bookings,
		risk:            deps.Risk,
		suggester:       deps.Suggester,
		chips:           deps.Chips,
		digester:        deps.Digester,
		logger:          logger,
		classifier:      intent.ScriptClassifier{},
		clock:           time.Now,
		callTimeout:     defaultCallTimeout,
		rxWait:          defaultRxWait,
		bookingWait:     defaultBookingWait,
		defaultLanguage: intent.LangEnglish,
		daysAhead:       defaultDaysAhead,
		sessions:        make(map[string]*session),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) session(patientID string) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[patientID]
	if !ok {
		s = newSession(patientID)
		e.sessions[patientID] = s
	}
	return s
}

// Subscribe attaches an observer to a patient's session.
func (e *Engine) Subscribe(patientID string, o Observer) {
	s := e.session(patientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribe(o)
}

// Unsubscribe detaches an observer.
func (e *Engine) Unsubscribe(patientID string, o Observer) {
	s := e.session(patientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribe(o)
}

// Reset is the explicit "clear conversation" operation.
func (e *Engine) Reset(patientID string) {
	s := e.session(patientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetAll()
}

// InvalidateBookingFlag drops the memoized upcoming-booking answer, typically
// on a booking_updates notification. A fetch already in flight keeps running
// but its result is discarded because the session no longer references it.
func (e *Engine) InvalidateBookingFlag(patientID string) {
	e.mu.Lock()
	s, ok := e.sessions[patientID]
	e.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upcoming = nil
}

// History returns the persisted conversation tail, oldest first, so a
// reopened conversation can render its recent context.
func (e *Engine) History(ctx context.Context, patientID string) ([]pkg.Turn, error) {
	if e.store == nil {
		return nil, nil
	}
	cctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	return e.store.LoadTurns(cctx, patientID, turnTailLimit)
}

// State reports a session's current dialogue state.
func (e *Engine) State(patientID string) State {
	s := e.session(patientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Chips returns best-effort quick-reply chips for the assistant's last
// utterance. Used by the rendering surface between turns.
func (e *Engine) Chips(ctx context.Context, patientID string) []string {
	s := e.session(patientID)
	s.mu.Lock()
	source := s.lastAssistant
	lang := e.activeLanguage(s)
	state := s.state
	interrupt := s.interrupt
	s.mu.Unlock()

	if state != StateIdle || interrupt != interruptNone || e.chips == nil {
		return quickRepliesForState(lang, state, interrupt)
	}
	if chips := e.chips.Chips(ctx, source, lang); len(chips) > 0 {
		return chips
	}
	return quickReplies(lang, "menu")
}

// reply is one composed turn outcome. lang is set when the turn itself
// switched the conversation language.
type reply struct {
	text    string
	chips   []string
	lang    string
	handoff *pkg.BookingHandoff
}

// HandleTurn processes one user turn and returns the assistant's reply.
// Turns within a session are strictly serialized.
func (e *Engine) HandleTurn(ctx context.Context, patientID string, req pkg.ChatRequest) (pkg.ChatResponse, error) {
	s := e.session(patientID)
	s.mu.Lock()
	defer s.mu.Unlock()

	lang := e.resolveLanguage(s, req)
	text := strings.TrimSpace(req.Content)

	if text != "" {
		e.persistTurn(ctx, patientID, pkg.RolePatient, text, lang)
	}

	out := e.route(ctx, s, text, lang)
	if out.lang != "" {
		lang = out.lang
	}

	if out.chips == nil {
		out.chips = quickRepliesForState(lang, s.state, s.interrupt)
	}
	s.lastAssistant = out.text
	e.persistTurn(ctx, patientID, pkg.RoleAssistant, out.text, lang)
	s.notifyTurn()
	if out.handoff != nil {
		s.notifyHandoff(*out.handoff)
	}

	e.logger.Debug("turn processed",
		"patient_id", patientID, "state", s.state.String(), "language", lang)

	return pkg.ChatResponse{
		Reply:        out.text,
		QuickReplies: out.chips,
		Language:     lang,
		State:        s.state.String(),
		Handoff:      out.handoff,
	}, nil
}

// route is the state machine proper. It is called with the session lock held.
func (e *Engine) route(ctx context.Context, s *session, text, lang string) reply {
	if text == "" {
		return reply{text: composeText(lang, tmplEmptyPrompt)}
	}

	// Explicit language requests apply immediately and consume the turn.
	if code := intent.ParseLanguageRequest(text); code != "" {
		s.lang.session = code
		return reply{text: composeText(code, tmplLanguageSet), lang: code}
	}

	// Explicit cancel wins from any booking sub-state.
	if intent.IsCancelBooking(text) {
		s.resetBooking()
		return reply{text: composeText(lang, tmplBookingCancelled)}
	}

	// Pending yes/no interrupts resume the paused flow afterwards.
	if s.interrupt != interruptNone {
		return e.routeInterrupt(ctx, s, text, lang)
	}

	// Quick intents that may arrive in any state.
	switch {
	case intent.IsRecordsQuery(text):
		s.interrupt = interruptRecordsConfirm
		return reply{text: composeText(lang, tmplRecordsConfirm)}
	case intent.IsMedicationInfoQuery(text):
		s.interrupt = interruptMedicationConfirm
		return reply{text: composeText(lang, tmplMedicationConfirm)}
	case intent.IsViewAppointment(text):
		return e.viewAppointment(ctx, s, lang)
	case intent.IsPrescriptionsQuery(text):
		return e.listPrescriptions(ctx, s, lang)
	case intent.IsViewMoreAvailability(text) && s.calendar != nil:
		return e.showWindow(s, lang)
	case intent.IsOtherDoctors(text) && s.specialty.Key != "":
		return e.nextDoctor(s, lang)
	}

	switch s.state {
	case StateAwaitingSymptoms:
		s.symptomsText = text
		return e.runSuggestion(ctx, s, text, lang, true)

	case StateAwaitingBookingConfirm:
		switch {
		case intent.IsAffirmative(text):
			s.slot.Consult = pkg.ConsultInPerson
			if intent.WantsOnlineConsult(text) {
				s.slot.Consult = pkg.ConsultOnline
			}
			// The confirming message may already carry a date/time.
			dt := intent.ExtractDateTime(text, e.clock())
			mergeDateTime(&s.slot, dt)
			return e.resolveSlot(ctx, s, lang)
		case intent.IsNegative(text):
			s.resetBooking()
			return reply{text: composeText(lang, tmplBookingCancelled)}
		default:
			return reply{text: composeText(lang, tmplRepromptYesNo)}
		}

	case StateAwaitingDateTime:
		dt := intent.ExtractDateTime(text, e.clock())
		if !dt.HasDate && !dt.HasTime {
			return reply{text: composeText(lang, tmplRepromptDateTime)}
		}
		mergeDateTime(&s.slot, dt)
		return e.resolveSlot(ctx, s, lang)

	case StateAwaitingSuggestedTimeConfirm:
		switch {
		case intent.IsAffirmative(text):
			return e.acceptSuggestedSlot(ctx, s, lang)
		case intent.IsNegative(text):
			s.suggested = nil
			s.state = StateAwaitingDateTime
			s.windowIndex = 0
			return e.showWindow(s, lang)
		default:
			return reply{text: composeText(lang, tmplRepromptYesNo)}
		}
	}

	// Idle.
	if intent.IsBookingIntent(text) {
		s.bookingIntent = true
	}
	if s.bookingIntent && s.symptomsText == "" {
		s.state = StateAwaitingSymptoms
		return reply{text: composeText(lang, tmplAskSymptoms)}
	}
	return e.runSuggestion(ctx, s, text, lang, false)
}

func (e *Engine) routeInterrupt(ctx context.Context, s *session, text, lang string) reply {
	kind := s.interrupt
	switch {
	case intent.IsAffirmative(text):
		s.interrupt = interruptNone
		if kind == interruptRecordsConfirm {
			return reply{text: composeText(lang, tmplOpeningRecords)}
		}
		return e.medicationInfo(ctx, s, lang)
	case intent.IsNegative(text):
		s.interrupt = interruptNone
		return reply{text: composeText(lang, tmplOkay)}
	default:
		return reply{text: composeText(lang, tmplRepromptYesNo)}
	}
}

func mergeDateTime(slot *pendingSlot, dt intent.DateTime) {
	if dt.HasDate {
		slot.DateISO = dt.DateISO
	}
	if dt.HasTime {
		slot.Time24 = dt.Time24
	}
}

// resolveLanguage applies the three-tier override rules for this turn.
func (e *Engine) resolveLanguage(s *session, req pkg.ChatRequest) string {
	s.lang.active = req.Language
	if req.VoiceLanguage != "" {
		s.lang.pendingFromVoice = req.VoiceLanguage
	}
	detected := e.classifier.Detect(req.Content)
	lang := intent.ResolveLanguage(
		s.lang.active,
		s.lang.session,
		detected,
		s.lang.pendingFromVoice,
		e.defaultLanguage,
		intent.IsShortMessage(req.Content),
	)
	if lang != intent.LangEnglish && s.lang.session == "" {
		s.lang.session = lang
	}
	return lang
}

func (e *Engine) activeLanguage(s *session) string {
	if s.lang.session != "" {
		return s.lang.session
	}
	return e.defaultLanguage
}

func (e *Engine) persistTurn(ctx context.Context, patientID string, role pkg.TurnRole, content, lang string) {
	if e.store == nil || content == "" {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	err := e.store.SaveTurn(cctx, pkg.Turn{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Role:      role,
		Content:   content,
		Language:  lang,
		CreatedAt: e.clock(),
	})
	if err != nil {
		e.logger.Warn("failed to persist turn", "patient_id", patientID, "error", err)
	}
}

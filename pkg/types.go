package pkg

import "time"

// TurnRole describes who authored a chat turn. There are only two roles:
// the patient and the assistant.
type TurnRole string

const (
	RolePatient   TurnRole = "patient"
	RoleAssistant TurnRole = "assistant"
)

// Turn is one persisted chat message. Turns are keyed by patient id and the
// store keeps only a short tail of recent turns per patient.
type Turn struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Doctor is one entry from the specialty/doctor directory. Directories return
// doctors pre-ranked; selection prefers higher rating, then more experience.
type Doctor struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	SpecialtyKey    string  `json:"specialty_key"`
	Fee             float64 `json:"fee"`
	Rating          float64 `json:"rating"`
	ExperienceYears int     `json:"experience_years"`
}

// Slot is one bookable time on a doctor's calendar. Value carries the
// machine time ("H:mm" or "HH:mm"); Label carries the display form and may be
// a 12-hour string ("2:30pm"). Either may be garbled in source data.
type Slot struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled"`
}

// Section groups slots within a day (e.g. "Morning", "Evening"). Duplicate
// times across sections are possible.
type Section struct {
	Title string `json:"title"`
	Slots []Slot `json:"slots"`
}

// Day is one calendar day of availability for a doctor.
type Day struct {
	DateISO  string    `json:"date"`
	Label    string    `json:"label,omitempty"`
	Enabled  bool      `json:"enabled"`
	Sections []Section `json:"sections"`
}

// SpecialtySuggestion is the parsed result of one suggestion round. Key is
// empty when the model's code failed allow-list validation; Answer always
// holds the human-readable reply with the tagged lines stripped.
type SpecialtySuggestion struct {
	Key    string `json:"key,omitempty"`
	Label  string `json:"label,omitempty"`
	Reason string `json:"reason,omitempty"`
	Answer string `json:"answer"`
}

// RiskContext is opaque read-only context supplied by the risk collaborator.
// The dialogue core only threads it into the suggestion prompt.
type RiskContext struct {
	RiskLevel         string            `json:"risk_level"`
	Category          string            `json:"category"`
	TopPredictedItems []string          `json:"top_predicted_items,omitempty"`
	LastLabs          map[string]string `json:"last_labs,omitempty"`
}

// Prescription is one medication row for a patient.
type Prescription struct {
	Medicine     string    `json:"medicine"`
	Dosage       string    `json:"dosage,omitempty"`
	Frequency    string    `json:"frequency,omitempty"`
	PrescribedOn time.Time `json:"prescribed_on"`
}

// ConsultType distinguishes in-person visits from online consultations.
type ConsultType string

const (
	ConsultInPerson ConsultType = "in_person"
	ConsultOnline   ConsultType = "online"
)

// BookingHandoff is the payload handed to the external booking flow once a
// slot is confirmed. The dialogue core never writes the booking itself.
type BookingHandoff struct {
	ReferenceID    string      `json:"reference_id"`
	SpecialtyKey   string      `json:"specialty_key"`
	SpecialtyLabel string      `json:"specialty_label"`
	SymptomsText   string      `json:"symptoms_text,omitempty"`
	DoctorID       string      `json:"doctor_id"`
	DoctorName     string      `json:"doctor_name"`
	ConsultType    ConsultType `json:"consult_type"`
	DateISO        string      `json:"date"`
	Time24         string      `json:"time"`
}

// ChatRequest is one inbound user turn.
type ChatRequest struct {
	Content       string `json:"content"`
	Language      string `json:"language,omitempty"`       // explicit per-message override
	VoiceLanguage string `json:"voice_language,omitempty"` // tag from speech input, if any
}

// ChatResponse is the assistant's reply for one turn.
type ChatResponse struct {
	Reply        string          `json:"reply"`
	QuickReplies []string        `json:"quick_replies,omitempty"`
	Language     string          `json:"language"`
	State        string          `json:"state"`
	Handoff      *BookingHandoff `json:"handoff,omitempty"`
}

package intent

import "strings"

// Quick intents are classified with fixed keyword unions across the supported
// languages, not a learned model. A miss is fine: the state machine re-prompts
// on anything it cannot classify.

var affirmativeWords = []string{
	"yes", "yeah", "yep", "yup", "ok", "okay", "sure", "confirm", "proceed",
	"go ahead", "book it", "fine", "done", "alright",
	"haan", "ha", "theek", "ji",
	"हाँ", "हां", "जी", "ठीक",
	"ஆம்", "ஆமாம்", "சரி",
	"అవును", "సరే",
	"ಹೌದು", "ಸರಿ",
	"അതെ", "ശരി",
}

var negativeWords = []string{
	"no", "nope", "nah", "not now", "later", "don't", "dont",
	"nahi", "nahin",
	"नहीं", "ना",
	"இல்லை", "வேண்டாம்",
	"కాదు", "వద్దు",
	"ಇಲ್ಲ", "ಬೇಡ",
	"അല്ല", "വേണ്ട",
}

var cancelPhrases = []string{
	"cancel booking", "cancel the booking", "cancel appointment",
	"cancel the appointment", "stop booking", "don't book", "dont book",
	"cancel it", "forget it",
	"booking cancel", "बुकिंग रद्द", "रद्द करो",
	"ரத்து செய்", "முன்பதிவை ரத்து",
	"రద్దు చేయి",
	"ರದ್ದು ಮಾಡಿ",
	"റദ്ദാക്കുക",
}

var bookingWords = []string{
	"book", "booking", "appointment", "consult", "consultation",
	"see a doctor", "meet a doctor", "visit a doctor", "doctor visit",
	"schedule", "slot",
	"अपॉइंटमेंट", "डॉक्टर से मिल", "बुक",
	"மருத்துவரை பார்க்க", "முன்பதிவு",
	"అపాయింట్మెంట్", "డాక్టర్",
	"ಅಪಾಯಿಂಟ್ಮೆಂಟ್", "ಡಾಕ್ಟರ್",
	"ഡോക്ടറെ കാണാൻ", "ബുക്ക്",
}

var otherDoctorsPhrases = []string{
	"other doctor", "other doctors", "another doctor", "different doctor",
	"someone else", "more doctors", "दूसरे डॉक्टर", "வேறு மருத்துவர்",
}

var viewAppointmentPhrases = []string{
	"my appointment", "my appointments", "upcoming appointment",
	"view appointment", "show my booking", "my booking",
	"मेरा अपॉइंटमेंट", "எனது முன்பதிவு",
}

var viewMorePhrases = []string{
	"view more", "more availability", "more slots", "more times",
	"show more", "next days",
}

var prescriptionPhrases = []string{
	"my prescription", "my prescriptions", "my medicines", "my medication",
	"what medicines am i", "मेरी दवा", "எனது மருந்து",
}

var medicationInfoPhrases = []string{
	"medicine info", "medication info", "about my medicine",
	"about my medication", "what is this medicine", "side effect",
}

var recordsPhrases = []string{
	"my records", "my health records", "medical records", "lab reports",
	"my reports", "मेरी रिपोर्ट", "எனது பதிவுகள்",
}

var onlineConsultWords = []string{
	"online", "video", "virtual", "teleconsult", "tele consult",
}

// IsAffirmative reports whether a short reply reads as "yes". Longer messages
// only match when they lead with an affirmative word, so "yes, tomorrow at 5"
// counts but "my leg is not yes good" noise does not.
func IsAffirmative(text string) bool {
	return matchesShortReply(text, affirmativeWords)
}

// IsNegative reports whether a short reply reads as "no".
func IsNegative(text string) bool {
	return matchesShortReply(text, negativeWords)
}

// IsCancelBooking detects an explicit cancel request; valid from any booking
// sub-state.
func IsCancelBooking(text string) bool {
	return containsAny(text, cancelPhrases)
}

// IsBookingIntent detects a request to book or see a doctor.
func IsBookingIntent(text string) bool {
	return containsAny(text, bookingWords)
}

// IsOtherDoctors detects a request for an alternative doctor.
func IsOtherDoctors(text string) bool {
	return containsAny(text, otherDoctorsPhrases)
}

// IsViewAppointment detects a request to see the upcoming appointment.
func IsViewAppointment(text string) bool {
	return containsAny(text, viewAppointmentPhrases)
}

// IsViewMoreAvailability detects the "view more" continuation.
func IsViewMoreAvailability(text string) bool {
	return containsAny(text, viewMorePhrases)
}

// IsPrescriptionsQuery detects a request to list current prescriptions.
func IsPrescriptionsQuery(text string) bool {
	return containsAny(text, prescriptionPhrases)
}

// IsMedicationInfoQuery detects a question about what a medication does.
func IsMedicationInfoQuery(text string) bool {
	return containsAny(text, medicationInfoPhrases)
}

// IsRecordsQuery detects a request to open health records.
func IsRecordsQuery(text string) bool {
	return containsAny(text, recordsPhrases)
}

// WantsOnlineConsult reports whether the message asks for an online visit.
func WantsOnlineConsult(text string) bool {
	return containsAny(text, onlineConsultWords)
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func containsAny(text string, phrases []string) bool {
	s := normalize(text)
	if s == "" {
		return false
	}
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func matchesShortReply(text string, words []string) bool {
	s := strings.Trim(normalize(text), ".,!?")
	if s == "" {
		return false
	}
	for _, w := range words {
		if s == w {
			return true
		}
	}
	// Leading-word match for slightly longer replies.
	if len(strings.Fields(s)) <= 6 {
		for _, w := range words {
			if strings.HasPrefix(s, w+" ") || strings.HasPrefix(s, w+",") {
				return true
			}
		}
	}
	return false
}

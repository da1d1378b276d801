package core

// templates.go holds the per-language utterance templates used by the
// composer. Keys missing from a language map fall back to the English
// template, never to an empty string. The English set is complete; other
// languages cover the high-traffic prompts.

const (
	tmplAskSymptoms       = "ask_symptoms"
	tmplOfferBooking      = "offer_booking"
	tmplAskDateTime       = "ask_date_time"
	tmplSuggestNearest    = "suggest_nearest"
	tmplSuggestFirstTime  = "suggest_first_time"
	tmplSuggestFirstDate  = "suggest_first_date"
	tmplAvailability      = "availability"
	tmplNoAvailability    = "no_availability"
	tmplBookingHandoff    = "booking_handoff"
	tmplBookingCancelled  = "booking_cancelled"
	tmplRepromptYesNo     = "reprompt_yes_no"
	tmplRepromptDateTime  = "reprompt_date_time"
	tmplNetworkApology    = "network_apology"
	tmplPrescriptions     = "prescriptions"
	tmplNoPrescriptions   = "no_prescriptions"
	tmplRecordsConfirm    = "records_confirm"
	tmplOpeningRecords    = "opening_records"
	tmplMedicationConfirm = "medication_confirm"
	tmplMedicationInfo    = "medication_info"
	tmplOkay              = "okay"
	tmplUpcomingBooking   = "upcoming_booking"
	tmplNoUpcoming        = "no_upcoming"
	tmplOtherDoctor       = "other_doctor"
	tmplNoMoreDoctors     = "no_more_doctors"
	tmplLanguageSet       = "language_set"
	tmplEmptyPrompt       = "empty_prompt"
	tmplAnswer            = "answer"
)

var englishTemplates = map[string]string{
	tmplAskSymptoms:       "Sure — please describe your symptoms briefly so I can suggest the right specialist.",
	tmplOfferBooking:      "Based on that, I'd suggest %s. Dr. %s is available (fee ₹%.0f). Shall I book an appointment?",
	tmplAskDateTime:       "When would you like to come in? You can say things like \"tomorrow 10:00\" or \"2025-03-15 evening 6\".",
	tmplSuggestNearest:    "That exact slot isn't available. The closest option is %s at %s — should I book that instead?",
	tmplSuggestFirstTime:  "On %s the first open time is %s — should I book that?",
	tmplSuggestFirstDate:  "%s is first open on %s — should I book that?",
	tmplAvailability:      "Here's the doctor's availability:\n%s\nTell me a date and time that suits you.",
	tmplNoAvailability:    "I couldn't find any open slots for this doctor right now. Please try again later or ask for other doctors.",
	tmplBookingHandoff:    "Great — booking %s with Dr. %s on %s at %s (%s). I'm taking you to the booking screen to confirm and pay.",
	tmplBookingCancelled:  "No problem, I've cancelled the booking request. Anything else I can help with?",
	tmplRepromptYesNo:     "Sorry, I didn't catch that — is that a yes or a no?",
	tmplRepromptDateTime:  "Sorry, I couldn't read a date or time in that. Try something like \"tomorrow 10:00\".",
	tmplNetworkApology:    "Sorry, I'm having trouble reaching the service right now. Please try that again in a moment.",
	tmplPrescriptions:     "Here are your current prescriptions:\n%s",
	tmplNoPrescriptions:   "I don't see any prescriptions on file for you.",
	tmplRecordsConfirm:    "Would you like me to open your health records?",
	tmplOpeningRecords:    "Opening your health records now.",
	tmplMedicationConfirm: "Would you like information about your current medication?",
	tmplMedicationInfo:    "About your medication: %s",
	tmplOkay:              "Okay.",
	tmplUpcomingBooking:   "You have an upcoming appointment. Open the appointments screen to see the details.",
	tmplNoUpcoming:        "You don't have any upcoming appointments.",
	tmplOtherDoctor:       "Another option: Dr. %s (fee ₹%.0f). Shall I book with them instead?",
	tmplNoMoreDoctors:     "That's everyone I have for %s right now.",
	tmplLanguageSet:       "Done — I'll reply in English from now on.",
	tmplEmptyPrompt:       "I'm here to help — describe a symptom, or ask me to book a doctor.",
	tmplAnswer:            "%s",
}

var hindiTemplates = map[string]string{
	tmplAskSymptoms:      "ज़रूर — कृपया अपने लक्षण संक्षेप में बताइए ताकि मैं सही विशेषज्ञ सुझा सकूँ।",
	tmplOfferBooking:     "इसके आधार पर मेरा सुझाव है: %s। डॉ. %s उपलब्ध हैं (फ़ीस ₹%.0f)। क्या मैं अपॉइंटमेंट बुक करूँ?",
	tmplAskDateTime:      "आप कब आना चाहेंगे? जैसे \"कल 10:00\" कह सकते हैं।",
	tmplSuggestNearest:   "वह स्लॉट उपलब्ध नहीं है। सबसे नज़दीकी विकल्प %s को %s बजे है — क्या वही बुक कर दूँ?",
	tmplSuggestFirstTime: "%s को पहला खाली समय %s है — क्या वही बुक कर दूँ?",
	tmplAvailability:     "डॉक्टर की उपलब्धता:\n%s\nजो तारीख़ और समय ठीक हो, बता दीजिए।",
	tmplBookingHandoff:   "बढ़िया — %s के लिए डॉ. %s के साथ %s को %s बजे (%s) बुकिंग हो रही है। पुष्टि और भुगतान के लिए बुकिंग स्क्रीन खोल रहा हूँ।",
	tmplBookingCancelled: "कोई बात नहीं, बुकिंग अनुरोध रद्द कर दिया है। और कुछ मदद करूँ?",
	tmplRepromptYesNo:    "माफ़ कीजिए, समझ नहीं आया — हाँ या नहीं?",
	tmplRepromptDateTime: "माफ़ कीजिए, इसमें तारीख़ या समय नहीं मिला। जैसे \"कल 10:00\" लिखिए।",
	tmplNetworkApology:   "माफ़ कीजिए, अभी सेवा से संपर्क नहीं हो पा रहा है। कृपया थोड़ी देर में फिर कोशिश कीजिए।",
	tmplLanguageSet:      "ठीक है — अब से मैं हिंदी में जवाब दूँगा।",
	tmplEmptyPrompt:      "मैं मदद के लिए हूँ — कोई लक्षण बताइए, या डॉक्टर बुक करने को कहिए।",
}

var tamilTemplates = map[string]string{
	tmplAskSymptoms:      "சரி — சரியான நிபுணரை பரிந்துரைக்க உங்கள் அறிகுறிகளை சுருக்கமாக சொல்லுங்கள்.",
	tmplOfferBooking:     "இதன் அடிப்படையில் %s பரிந்துரைக்கிறேன். டாக்டர் %s கிடைக்கிறார் (கட்டணம் ₹%.0f). அப்பாயின்ட்மென்ட் புக் செய்யவா?",
	tmplAskDateTime:      "எப்போது வர விரும்புகிறீர்கள்? \"நாளை 10:00\" என சொல்லலாம்.",
	tmplSuggestNearest:   "அந்த நேரம் கிடைக்கவில்லை. அருகிலுள்ள நேரம் %s அன்று %s — அதை புக் செய்யவா?",
	tmplBookingHandoff:   "சரி — %s க்காக டாக்டர் %s உடன் %s அன்று %s மணிக்கு (%s) புக்கிங். உறுதி செய்ய புக்கிங் திரைக்கு செல்கிறோம்.",
	tmplBookingCancelled: "பரவாயில்லை, புக்கிங் கோரிக்கையை ரத்து செய்துவிட்டேன். வேறு உதவி வேண்டுமா?",
	tmplRepromptYesNo:    "மன்னிக்கவும், புரியவில்லை — ஆம் அல்லது இல்லை?",
	tmplNetworkApology:   "மன்னிக்கவும், இப்போது சேவையை அணுக முடியவில்லை. சிறிது நேரம் கழித்து முயற்சிக்கவும்.",
	tmplLanguageSet:      "சரி — இனி தமிழில் பதிலளிப்பேன்.",
}

var templatesByLanguage = map[string]map[string]string{
	"en": englishTemplates,
	"hi": hindiTemplates,
	"ta": tamilTemplates,
}

// Quick-reply chip labels, localized the same way.
var quickReplySets = map[string]map[string][]string{
	"yes_no_cancel": {
		"en": {"Yes", "No", "Cancel booking"},
		"hi": {"हाँ", "नहीं", "बुकिंग रद्द करो"},
		"ta": {"ஆம்", "இல்லை", "ரத்து செய்"},
	},
	"symptoms": {
		"en": {"Fever", "Headache", "Chest pain", "Skin rash", "Stomach pain"},
		"hi": {"बुख़ार", "सिरदर्द", "सीने में दर्द", "त्वचा पर दाने", "पेट दर्द"},
		"ta": {"காய்ச்சல்", "தலைவலி", "மார்பு வலி", "தோல் தடிப்பு", "வயிற்று வலி"},
	},
	"date_time": {
		"en": {"Today", "Tomorrow", "View availability", "Cancel booking"},
		"hi": {"आज", "कल", "उपलब्धता देखें", "बुकिंग रद्द करो"},
		"ta": {"இன்று", "நாளை", "கிடைக்கும் நேரம்", "ரத்து செய்"},
	},
	"menu": {
		"en": {"Book appointment", "My prescriptions", "My appointment"},
		"hi": {"अपॉइंटमेंट बुक करें", "मेरी दवाएँ", "मेरा अपॉइंटमेंट"},
		"ta": {"முன்பதிவு செய்", "எனது மருந்துகள்", "எனது முன்பதிவு"},
	},
}

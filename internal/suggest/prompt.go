package suggest

import (
	"fmt"
	"sort"
	"strings"

	"carebook-chatbot/internal/llm"
	"carebook-chatbot/pkg"
)

const (
	keyTag    = "SPECIALITY_KEY="
	reasonTag = "SPECIALITY_REASON="

	// Bounds the reply so a suggestion round stays cheap.
	suggestionMaxTokens = 220
	maxLabPairs         = 8
)

// specialtyOrder fixes the enumeration order used in prompts and cache keys.
var specialtyOrder = []string{
	"GENERAL_PHYSICIAN",
	"CARDIOLOGY",
	"NEUROLOGY",
	"ORTHOPEDICS",
	"OPHTHALMOLOGY",
	"PEDIATRICS",
	"DERMATOLOGY",
	"PULMONOLOGY",
	"DIABETOLOGY",
	"FEVER_CLINIC",
	"GENERAL_MEDICINE",
	"EMERGENCY",
}

var specialtyLabels = map[string]string{
	"GENERAL_PHYSICIAN": "General Physician",
	"CARDIOLOGY":        "Cardiology",
	"NEUROLOGY":         "Neurology",
	"ORTHOPEDICS":       "Orthopedics",
	"OPHTHALMOLOGY":     "Ophthalmology",
	"PEDIATRICS":        "Pediatrics",
	"DERMATOLOGY":       "Dermatology",
	"PULMONOLOGY":       "Pulmonology",
	"DIABETOLOGY":       "Diabetology",
	"FEVER_CLINIC":      "Fever Clinic",
	"GENERAL_MEDICINE":  "General Medicine",
	"EMERGENCY":         "Emergency",
}

// AllowedSpecialties returns the fixed specialty enumeration in stable order.
func AllowedSpecialties() []string {
	out := make([]string, len(specialtyOrder))
	copy(out, specialtyOrder)
	return out
}

// LabelFor returns the display label for an allow-listed key, or "" when the
// key is not allow-listed.
func LabelFor(key string) string {
	return specialtyLabels[key]
}

// SanitizeKey canonicalizes a model-emitted specialty code and validates it
// against the allow-list. Anything that does not land on an allow-listed key
// comes back empty and is treated as "no suggestion".
func SanitizeKey(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.Trim(s, `"'.,:;`)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('_')
		}
	}
	key := b.String()
	if _, ok := specialtyLabels[key]; !ok {
		return ""
	}
	return key
}

// buildPrompt assembles the compact suggestion prompt. The model answers the
// patient, then emits the two tagged lines the parser strips back out.
func buildPrompt(req Request) llm.Request {
	system := "You are a helpful medical assistant inside a patient chat. " +
		"Answer the patient's question briefly (under 100 words), in the language tagged 'lang'. " +
		"Do not diagnose; give practical guidance. Then, on two separate final lines, output exactly:\n" +
		keyTag + "<one code from the allowed list, or NONE>\n" +
		reasonTag + "<one short sentence>"

	var b strings.Builder
	fmt.Fprintf(&b, "lang: %s\n", req.Language)
	fmt.Fprintf(&b, "risk_level: %s\n", req.Risk.RiskLevel)
	fmt.Fprintf(&b, "category: %s\n", req.Risk.Category)
	if len(req.Risk.TopPredictedItems) > 0 {
		fmt.Fprintf(&b, "predicted: %s\n", strings.Join(req.Risk.TopPredictedItems, ", "))
	}
	if len(req.Risk.LastLabs) > 0 {
		fmt.Fprintf(&b, "labs: %s\n", labsDigest(req.Risk.LastLabs))
	}
	if req.RxDigest != "" {
		fmt.Fprintf(&b, "prescriptions: %s\n", req.RxDigest)
	}
	fmt.Fprintf(&b, "allowed: %s\n", strings.Join(specialtyOrder, ", "))
	fmt.Fprintf(&b, "patient: %s", strings.TrimSpace(req.Message))

	return llm.Request{
		System:      system,
		User:        b.String(),
		MaxTokens:   suggestionMaxTokens,
		Temperature: 0.2,
		TopP:        0.9,
	}
}

// labsDigest flattens up to maxLabPairs lab values in key order so equal lab
// sets always produce equal strings.
func labsDigest(labs map[string]string) string {
	keys := make([]string, 0, len(labs))
	for k := range labs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxLabPairs {
		keys = keys[:maxLabPairs]
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labs[k])
	}
	return strings.Join(parts, ", ")
}

// parseReply splits the model output into the human-readable answer and the
// two tagged lines. Tagged lines are stripped from the answer wherever they
// appear; missing tags leave key/reason empty.
func parseReply(reply string) pkg.SpecialtySuggestion {
	var out pkg.SpecialtySuggestion
	var answer []string
	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, keyTag):
			out.Key = SanitizeKey(strings.TrimPrefix(trimmed, keyTag))
		case strings.HasPrefix(trimmed, reasonTag):
			out.Reason = strings.TrimSpace(strings.TrimPrefix(trimmed, reasonTag))
		default:
			answer = append(answer, line)
		}
	}
	out.Answer = strings.TrimSpace(strings.Join(answer, "\n"))
	if out.Key != "" {
		out.Label = LabelFor(out.Key)
	} else {
		out.Reason = ""
	}
	return out
}

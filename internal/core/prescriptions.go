package core

import (
	"context"
	"fmt"
	"strings"

	"carebook-chatbot/internal/llm"
	"carebook-chatbot/pkg"
)

// PrescriptionDigester condenses a patient's prescription rows into a short
// one-line digest for the suggestion prompt. It delegates to the LLM and
// falls back to a plain medicine list when the call fails.
type PrescriptionDigester struct {
	LLM llm.Client
}

// NewPrescriptionDigester constructs a digester.
func NewPrescriptionDigester(client llm.Client) *PrescriptionDigester {
	return &PrescriptionDigester{LLM: client}
}

// Digest summarizes the prescriptions. An empty list digests to "".
func (d *PrescriptionDigester) Digest(ctx context.Context, rx []pkg.Prescription) (string, error) {
	if len(rx) == 0 {
		return "", nil
	}
	if d == nil || d.LLM == nil {
		return medicineList(rx), nil
	}

	var b strings.Builder
	for _, p := range rx {
		fmt.Fprintf(&b, "%s %s %s\n", p.Medicine, p.Dosage, p.Frequency)
	}
	out, err := d.LLM.Complete(ctx, llm.Request{
		System:    "Condense this medication list into one short line (drug names and doses only, comma separated).",
		User:      b.String(),
		MaxTokens: 60,
	})
	if err != nil {
		// fallback digest when the LLM call fails
		return medicineList(rx), err
	}
	return out, nil
}

func medicineList(rx []pkg.Prescription) string {
	names := make([]string, 0, len(rx))
	for _, p := range rx {
		s := p.Medicine
		if p.Dosage != "" {
			s += " " + p.Dosage
		}
		names = append(names, s)
	}
	return strings.Join(names, ", ")
}

// formatPrescriptions renders the bullet list used when the patient asks for
// their prescriptions directly.
func formatPrescriptions(rx []pkg.Prescription) string {
	var b strings.Builder
	for _, p := range rx {
		b.WriteString("• " + p.Medicine)
		if p.Dosage != "" {
			b.WriteString(" — " + p.Dosage)
		}
		if p.Frequency != "" {
			b.WriteString(", " + p.Frequency)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

package engine

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/fieldline/voice-agent-platform/internal/booking"
)

// Decision is the validated form of the generator's structured output: which
// slot to collect next ("none" for a free conversational turn), a short
// acknowledgment of what the caller said, and advisory value extraction.
type Decision struct {
	Slot   string            `json:"slot"`
	Ack    string            `json:"ack"`
	Values map[string]string `json:"values,omitempty"`
}

const slotNone = "none"

// ParseDecision coerces raw generator output into a Decision. A parse failure
// is not an error: the raw text, stripped of control characters, becomes a
// free-turn acknowledgment.
func ParseDecision(raw string) Decision {
	content := strings.TrimSpace(raw)

	// Generators wrap JSON in prose and code fences; take the outermost
	// object if one is present.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		var d Decision
		if err := json.Unmarshal([]byte(content[start:end+1]), &d); err == nil {
			d.Slot = NormalizeSlotID(d.Slot)
			d.Ack = stripControl(d.Ack)
			return d
		}
	}

	return Decision{Slot: slotNone, Ack: stripControl(content)}
}

// Validate coerces the decision against the configured slot list: an unknown
// slot id becomes "none", and extracted values for unknown slots are dropped.
func (d *Decision) Validate(slots *booking.Slots) {
	if d.Slot != slotNone && slots.Lookup(d.Slot) == nil {
		d.Slot = slotNone
	}
	for slotID := range d.Values {
		if slots.Lookup(slotID) == nil {
			delete(d.Values, slotID)
		}
	}
}

// NormalizeSlotID strips delimiters and quoting from a generator-produced slot
// id: take the first token, lowercase it, trim punctuation.
func NormalizeSlotID(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.Trim(s, "\"'`{}[]()<>.,:;")
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	s = strings.Trim(s, "\"'`{}[]()<>.,:;")
	if s == "" || s == "null" {
		return slotNone
	}
	return s
}

func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

package engine

import (
	"strings"

	"github.com/fieldline/voice-agent-platform/internal/booking"
	"github.com/fieldline/voice-agent-platform/internal/catalog"
)

// AskedPredicate reports whether an acknowledgment already asks the caller for
// the given slot. It is a best-effort heuristic, exposed as a predicate so a
// stronger classifier can replace the string matching without touching the
// orchestration.
type AskedPredicate func(ack string, spec *booking.SlotSpec) bool

// slotTopicKeywords maps common slot ids to phrasings that indicate the ack is
// already requesting that information.
var slotTopicKeywords = map[string][]string{
	"name":    {"your name", "first and last", "who am i speaking", "whom am i speaking"},
	"phone":   {"phone number", "number to reach", "number to call", "call you back at", "best number"},
	"address": {"address", "where are you located", "where is the"},
	"time":    {"what day", "what time", "when works", "day and time", "when would", "time work"},
}

// DefaultAskedPredicate: the ack counts as asking for the slot when it
// contains a question mark and mentions the slot's topic.
func DefaultAskedPredicate(ack string, spec *booking.SlotSpec) bool {
	if spec == nil {
		return false
	}
	norm := strings.ToLower(ack)
	if !strings.Contains(norm, "?") {
		return false
	}
	keywords, ok := slotTopicKeywords[spec.SlotID]
	if !ok {
		// Unknown slot ids fall back to matching the id itself.
		keywords = []string{strings.ReplaceAll(strings.ToLower(spec.SlotID), "_", " ")}
	}
	for _, kw := range keywords {
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}

// assembleReply builds the final spoken reply for a slot request. The
// configured question string is never paraphrased: unless the ack already asks
// for the slot, the exact question text is appended unchanged.
func assembleReply(ack string, spec *booking.SlotSpec, asked AskedPredicate) string {
	ack = strings.TrimSpace(ack)
	if spec == nil {
		return ack
	}
	if ack != "" && asked(ack, spec) {
		return ack
	}
	if ack == "" {
		return spec.Question
	}
	return ack + " " + spec.Question
}

// confirmBackText renders the read-back line for a slot that requests
// confirmation. Address confirmation granularity follows the slot spec.
func confirmBackText(spec *booking.SlotSpec, value string) string {
	if spec == nil || !spec.ConfirmBack || strings.TrimSpace(value) == "" {
		return ""
	}
	spoken := value
	switch {
	case booking.IsPhoneSlot(spec.SlotID):
		spoken = booking.SpeakablePhone(value)
	case spec.AddressConfirmLevel == booking.AddressConfirmStreet:
		if idx := strings.Index(value, ","); idx > 0 {
			spoken = value[:idx]
		}
	case spec.AddressConfirmLevel == booking.AddressConfirmNone:
		return ""
	}
	return "Got it, " + spoken + "."
}

// scrubForbidden removes configured forbidden phrases from generator text.
// Only the acknowledgment is scrubbed; engine-owned text never contains them.
func scrubForbidden(ack string, forbidden []string) string {
	for _, phrase := range forbidden {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		for {
			idx := strings.Index(strings.ToLower(ack), strings.ToLower(phrase))
			if idx < 0 {
				break
			}
			ack = strings.TrimSpace(ack[:idx] + ack[idx+len(phrase):])
		}
	}
	return ack
}

// declineReply returns the deterministic decline text plus an alternative
// suggestion when the catalog offers one.
func declineReply(d catalog.Detection, cat *catalog.Catalog) string {
	reply := d.DeclineMessage
	for _, altKey := range d.Alternatives {
		alt := cat.Lookup(altKey)
		if alt == nil || !alt.Enabled || alt.ServiceType != catalog.ServiceTypeWork {
			continue
		}
		return reply + " We do offer " + strings.ToLower(alt.DisplayName) + " if that would help."
	}
	return reply
}

package engine

import (
	"strings"

	"github.com/fieldline/voice-agent-platform/internal/catalog"
)

const defaultRescueReply = "I'm sorry for the trouble. Let me have someone from the office call you right back to sort this out. Is the number you're calling from the best one to reach you?"

// matchedEscalation returns the configured trigger phrase heard in the
// utterance, or "". Trigger phrases are configuration-supplied, never
// hardcoded per company.
func matchedEscalation(utterance string, phrases []string) string {
	norm := catalog.Normalize(utterance)
	if norm == "" {
		return ""
	}
	for _, phrase := range phrases {
		if p := catalog.Normalize(phrase); p != "" && strings.Contains(norm, p) {
			return phrase
		}
	}
	return ""
}

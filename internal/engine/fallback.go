package engine

import (
	"strings"

	"github.com/fieldline/voice-agent-platform/internal/company"
)

// Fallback tiers escalate with consecutive misses. The scripts are honest
// about not having understood; the agent never pretends it did.
const (
	fallbackTier1 = "I'm sorry, I think the connection dropped for a second and I missed that. Could you say it one more time?"
	fallbackTier2 = "Apologies, I'm still having trouble hearing you clearly. Could you repeat that a little more slowly?"
	fallbackTier3 = "I'm having a hard time on this line. Would you like me to have someone from the office call you back?"

	// fallbackConfigError is a system defect, not a caller-comprehension
	// failure: the company has no booking slots configured.
	fallbackConfigError = "Thanks for calling. Let me have someone from our team follow up with you directly to get this scheduled."
)

// FallbackTier labels which script was used, for traces and metrics.
type FallbackTier string

const (
	TierRepeat      FallbackTier = "tier1_repeat"
	TierSlowDown    FallbackTier = "tier2_slow_down"
	TierHandoff     FallbackTier = "tier3_handoff"
	TierConfigError FallbackTier = "config_error"
)

// fallbackReply picks the script for the given consecutive miss count
// (1-based: the first miss gets tier 1). Company templates override the
// defaults when set.
func fallbackReply(missCount int, templates company.FallbackTemplates) (string, FallbackTier) {
	pick := func(configured, fallback string) string {
		if strings.TrimSpace(configured) != "" {
			return configured
		}
		return fallback
	}
	switch {
	case missCount <= 1:
		return pick(templates.Tier1, fallbackTier1), TierRepeat
	case missCount == 2:
		return pick(templates.Tier2, fallbackTier2), TierSlowDown
	default:
		return pick(templates.Tier3, fallbackTier3), TierHandoff
	}
}

func configErrorReply(templates company.FallbackTemplates) string {
	if strings.TrimSpace(templates.ConfigError) != "" {
		return templates.ConfigError
	}
	return fallbackConfigError
}

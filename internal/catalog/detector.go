package catalog

import (
	"strings"
	"unicode"
)

// Action tells the turn engine what to do with a detection result.
type Action string

const (
	// ActionDecline means the matched service is disabled; reply with the
	// decline script and never invoke the generator.
	ActionDecline Action = "DETERMINISTIC_DECLINE"
	// ActionProceed means an enabled service matched; continue with the hint.
	ActionProceed Action = "PROCEED"
	// ActionProceedToMatching means nothing matched; the engine carries on.
	ActionProceedToMatching Action = "PROCEED_TO_MATCHING"
)

// Detection is the outcome of scoring one utterance against the catalog.
type Detection struct {
	Matched        bool
	ServiceKey     string
	DisplayName    string
	ServiceType    ServiceType
	Confidence     float64
	Enabled        bool
	DeclineMessage string
	AdminResponse  string
	Alternatives   []string
	TriagePrompts  []string
	Action         Action
}

// Detect scores the utterance against every catalog entry and returns the
// winning detection. Scoring is a linear scan; catalogs are tens of entries.
func Detect(utterance string, c *Catalog) Detection {
	norm := Normalize(utterance)
	if norm == "" || c == nil || len(c.Entries) == 0 {
		return Detection{Action: ActionProceedToMatching}
	}

	var best *Entry
	var bestScore float64

	for i := range c.Entries {
		e := &c.Entries[i]
		score, ok := scoreEntry(norm, e)
		if !ok {
			continue
		}
		// Strictly-greater keeps catalog order as the tiebreak.
		if best == nil || score > bestScore {
			best = e
			bestScore = score
		}
	}

	if best == nil {
		return Detection{Action: ActionProceedToMatching}
	}

	d := Detection{
		Matched:       true,
		ServiceKey:    best.ServiceKey,
		DisplayName:   best.DisplayName,
		ServiceType:   best.ServiceType,
		Confidence:    bestScore,
		Enabled:       best.Enabled,
		Alternatives:  best.AlternativeServices,
		TriagePrompts: best.TriagePrompts,
	}
	if !best.Enabled {
		d.Action = ActionDecline
		d.DeclineMessage = best.DeclineMessage
		if strings.TrimSpace(d.DeclineMessage) == "" {
			d.DeclineMessage = best.FallbackDecline()
		}
		return d
	}
	if best.ServiceType == ServiceTypeAdmin {
		d.AdminResponse = best.AdminResponse
	}
	d.Action = ActionProceed
	return d
}

// scoreEntry returns the entry's confidence for the utterance and whether it
// qualifies. Negative keywords exclude the entry outright.
func scoreEntry(norm string, e *Entry) (float64, bool) {
	for _, neg := range e.NegativeKeywords {
		if kw := Normalize(neg); kw != "" && strings.Contains(norm, kw) {
			return 0, false
		}
	}

	var confidence float64
	for _, raw := range e.IntentKeywords {
		kw := Normalize(raw)
		if kw == "" || !strings.Contains(norm, kw) {
			continue
		}
		contribution := 0.1 + 0.05*float64(wordCount(kw))
		if contribution > 0.3 {
			contribution = 0.3
		}
		confidence += contribution
	}
	for _, raw := range e.IntentPhrases {
		if p := Normalize(raw); p != "" && strings.Contains(norm, p) {
			confidence += 0.4
		}
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < e.Threshold() {
		return 0, false
	}
	return confidence, true
}

// Normalize lowercases, strips punctuation, and collapses whitespace so
// substring checks behave consistently for spoken-text transcripts.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

package engine

import (
	"strings"

	"github.com/fieldline/voice-agent-platform/internal/catalog"
	"github.com/fieldline/voice-agent-platform/internal/company"
)

// minContainedLen guards the containment match against short phrases like
// "hours" matching inside unrelated sentences.
const minContainedLen = 10

// matchQA looks the utterance up against the pre-authored Q&A list. Matching
// is exact on the normalized text, or containment for longer phrasings
// ("what are your hours by the way"). Returns the canned answer and whether a
// pair matched.
func matchQA(utterance string, pairs []company.QAPair) (string, bool) {
	norm := catalog.Normalize(utterance)
	if norm == "" {
		return "", false
	}
	for _, pair := range pairs {
		candidates := append([]string{pair.Question}, pair.Variants...)
		for _, candidate := range candidates {
			cn := catalog.Normalize(candidate)
			if cn == "" {
				continue
			}
			if cn == norm {
				return pair.Answer, true
			}
			if len(cn) >= minContainedLen && strings.Contains(norm, cn) {
				return pair.Answer, true
			}
		}
	}
	return "", false
}

// bridgeAfterAnswer splices a canned answer with the pending slot question so
// the booking flow resumes without a generator call. The question text is
// reproduced verbatim.
func bridgeAfterAnswer(answer, question string) string {
	answer = strings.TrimSpace(answer)
	question = strings.TrimSpace(question)
	if question == "" {
		return answer
	}
	if answer == "" {
		return question
	}
	return answer + " " + question
}

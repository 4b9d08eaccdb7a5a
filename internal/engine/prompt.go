package engine

import (
	"fmt"
	"strings"

	"github.com/fieldline/voice-agent-platform/internal/booking"
	"github.com/fieldline/voice-agent-platform/internal/company"
	"github.com/fieldline/voice-agent-platform/internal/llm"
)

const decisionContract = `You are deciding the next step of a phone booking conversation.
Respond with JSON only, in exactly this shape:
{"slot": "<id of the next slot to collect, or \"none\">", "ack": "<one short spoken sentence acknowledging what the caller said>", "values": {"<slot id>": "<value the caller just provided>"}}

Rules:
- "slot" must be one of the needed slot ids listed above, or "none" for a purely conversational reply.
- Never choose a slot that is already collected.
- "ack" is at most one sentence; do not ask the question for the slot yourself, the system appends it.
- "values" contains only information the caller actually said this turn; omit it when there is none.`

// promptHints carries the short-lived context for a single turn. Everything
// here exists for this decision only and is never persisted.
type promptHints struct {
	TriageHint      string
	ServiceHint     string
	ServiceArea     string
	LastAgentLine   string
	PartialFollowUp bool
}

// buildPrompt assembles the minimal generator request: company identity, a
// style directive, collected and still-needed slots, and the short-lived
// hints. Prompt size is a latency and cost variable, so anything not needed
// for this decision stays out.
func buildPrompt(cfg *company.Config, state *ConversationState, slots *booking.Slots, utterance string, hints promptHints, window int) ([]string, []llm.Message) {
	var sys strings.Builder

	fmt.Fprintf(&sys, "You answer phone calls for %s.\n", cfg.Identity())
	style := strings.TrimSpace(cfg.StyleDirective)
	if style == "" {
		style = "Keep replies short, warm, and natural for speech."
	}
	sys.WriteString(style)
	sys.WriteString("\n\n")

	if len(state.KnownSlots) > 0 {
		sys.WriteString("Already collected (never ask for these again):\n")
		for _, spec := range slots.All() {
			if value := strings.TrimSpace(state.KnownSlots[spec.SlotID]); value != "" {
				fmt.Fprintf(&sys, "- %s: %s\n", spec.SlotID, value)
			}
		}
		sys.WriteString("\n")
	}

	missing := slots.Missing(state.KnownSlots)
	if len(missing) > 0 {
		sys.WriteString("Still needed, in order:\n")
		for _, spec := range missing {
			fmt.Fprintf(&sys, "- %s\n", spec.SlotID)
		}
		sys.WriteString("\n")
	}

	if hints.TriageHint != "" {
		fmt.Fprintf(&sys, "Caller's reported problem: %s\n", hints.TriageHint)
	}
	if hints.ServiceHint != "" {
		fmt.Fprintf(&sys, "Requested service: %s\n", hints.ServiceHint)
	}
	if hints.ServiceArea != "" {
		fmt.Fprintf(&sys, "Service area: %s\n", hints.ServiceArea)
	}
	if hints.PartialFollowUp {
		sys.WriteString("The caller gave a first name only; a last name was already requested once. Accept whatever they give.\n")
	}
	if hints.LastAgentLine != "" {
		fmt.Fprintf(&sys, "You just said: %q. Do not repeat it.\n", hints.LastAgentLine)
	}
	if summary := strings.TrimSpace(state.RunningSummary); summary != "" {
		fmt.Fprintf(&sys, "Earlier in the call: %s\n", summary)
	}

	system := []string{sys.String(), decisionContract}

	// History already ends with the current utterance. Drop leading agent
	// lines (the seeded greeting, or a window cut mid-exchange): Converse
	// backends reject sequences that do not open with a user turn.
	recent := state.RecentHistory(window)
	for len(recent) > 0 && recent[0].Role == RoleAgent {
		recent = recent[1:]
	}
	messages := make([]llm.Message, 0, len(recent)+1)
	for _, entry := range recent {
		role := llm.RoleUser
		if entry.Role == RoleAgent {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: entry.Text})
	}
	if len(messages) == 0 || messages[len(messages)-1].Role != llm.RoleUser {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: utterance})
	}

	return system, messages
}

// Package engine implements the per-turn orchestration for a live call:
// deterministic short-circuits, minimal prompt assembly, generator output
// validation, verbatim reply assembly, and tiered fallback. The engine is
// stateless across calls; it receives and returns ConversationState and never
// owns storage.
package engine

import "strings"

// Mode is the coarse conversation phase, recomputed each turn.
type Mode string

const (
	ModeFree         Mode = "free"
	ModeBooking      Mode = "booking"
	ModeTriage       Mode = "triage"
	ModeRescue       Mode = "rescue"
	ModeConfirmation Mode = "confirmation"
)

// HistoryEntry is one role/text pair in the transcript.
type HistoryEntry struct {
	Role string `json:"role"` // "caller" or "agent"
	Text string `json:"text"`
}

const (
	RoleCaller = "caller"
	RoleAgent  = "agent"
)

// ConversationState is the engine's view of one in-progress call. Storage is
// unbounded but the engine only ever reads a bounded recent window.
type ConversationState struct {
	CallID    string `json:"call_id"`
	CompanyID string `json:"company_id"`
	Mode      Mode   `json:"mode"`
	// KnownSlots maps slot id to collected value. Entries are added, never
	// silently overwritten with an older value.
	KnownSlots map[string]string `json:"known_slots"`
	History    []HistoryEntry    `json:"history"`
	// MissCount is the consecutive count of unusable generator outputs.
	MissCount int `json:"miss_count"`
	// PendingSlot is the slot the agent asked for on the previous turn; used
	// to bridge back after a canned answer.
	PendingSlot string `json:"pending_slot,omitempty"`
	// Flags carries small per-call markers (partial-name follow-up, caller-ID
	// offer) that don't warrant their own fields.
	Flags map[string]string `json:"flags,omitempty"`
	// RunningSummary is maintained by an external summarizer; read-only here.
	RunningSummary string `json:"running_summary,omitempty"`
}

// NewConversationState returns the call-start state: free mode, empty slots.
func NewConversationState(callID, companyID string) ConversationState {
	return ConversationState{
		CallID:     callID,
		CompanyID:  companyID,
		Mode:       ModeFree,
		KnownSlots: make(map[string]string),
		Flags:      make(map[string]string),
	}
}

func (s *ConversationState) appendHistory(role, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.History = append(s.History, HistoryEntry{Role: role, Text: text})
}

// RecentHistory returns the last n entries; the full transcript stays in
// History for the transcript sink.
func (s *ConversationState) RecentHistory(n int) []HistoryEntry {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// LastAgentLine returns the most recent agent reply, used for the repetition
// reminder in the prompt.
func (s *ConversationState) LastAgentLine() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleAgent {
			return s.History[i].Text
		}
	}
	return ""
}

func (s *ConversationState) flag(key string) string {
	if s.Flags == nil {
		return ""
	}
	return s.Flags[key]
}

func (s *ConversationState) setFlag(key, value string) {
	if s.Flags == nil {
		s.Flags = make(map[string]string)
	}
	s.Flags[key] = value
}

// TurnRequest is the per-turn input from the telephony layer.
type TurnRequest struct {
	State     ConversationState `json:"state"`
	Utterance string            `json:"utterance"`
	// CallerID is the inbound number, when the telephony layer has it.
	CallerID string `json:"caller_id,omitempty"`
}

// TurnResult is the per-turn output: the spoken reply, the updated state, and
// a diagnostic trace for observability collaborators.
type TurnResult struct {
	Reply string            `json:"reply"`
	State ConversationState `json:"state"`
	Trace Trace             `json:"trace"`
}

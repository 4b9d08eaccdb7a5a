package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldline/voice-agent-platform/internal/company"
	"github.com/fieldline/voice-agent-platform/internal/engine"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

// Service composes and sends the close-of-call email for a company.
type Service struct {
	email  EmailSender
	logger *logging.Logger
}

func NewService(email EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, logger: logger}
}

// CallClosed sends the right summary for how the call ended. Companies without
// an escalation email get nothing, which is a valid configuration.
func (s *Service) CallClosed(ctx context.Context, cfg *company.Config, state engine.ConversationState) error {
	if s.email == nil {
		s.logger.Debug("notify: no email sender configured, skipping")
		return nil
	}
	to := strings.TrimSpace(cfg.EscalationEmail)
	if to == "" {
		s.logger.Debug("notify: no escalation email for company", "company_id", cfg.CompanyID)
		return nil
	}

	var msg EmailMessage
	switch state.Mode {
	case engine.ModeConfirmation:
		msg = bookingSummary(cfg, state)
	case engine.ModeRescue:
		msg = rescueAlert(cfg, state)
	default:
		// Abandoned mid-call; still worth a note when anything was collected.
		if len(state.KnownSlots) == 0 {
			return nil
		}
		msg = partialSummary(cfg, state)
	}
	msg.To = to
	msg.ToName = cfg.Name

	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: failed to send call summary: %w", err)
	}
	return nil
}

func bookingSummary(cfg *company.Config, state engine.ConversationState) EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "A caller completed booking intake over the phone.\n\n")
	writeSlots(&b, cfg, state)
	fmt.Fprintf(&b, "\nCall ID: %s\n", state.CallID)
	return EmailMessage{
		Subject: fmt.Sprintf("New booking request (call %s)", shortID(state.CallID)),
		Body:    b.String(),
	}
}

func rescueAlert(cfg *company.Config, state engine.ConversationState) EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "A caller asked for a person, or the agent could not keep up. Please call them back.\n\n")
	writeSlots(&b, cfg, state)
	if last := lastCallerLine(state); last != "" {
		fmt.Fprintf(&b, "\nLast thing the caller said: %q\n", last)
	}
	fmt.Fprintf(&b, "\nCall ID: %s\n", state.CallID)
	return EmailMessage{
		Subject: fmt.Sprintf("Callback needed (call %s)", shortID(state.CallID)),
		Body:    b.String(),
	}
}

func partialSummary(cfg *company.Config, state engine.ConversationState) EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "A call ended before intake finished. Details collected so far:\n\n")
	writeSlots(&b, cfg, state)
	fmt.Fprintf(&b, "\nCall ID: %s\n", state.CallID)
	return EmailMessage{
		Subject: fmt.Sprintf("Incomplete call (call %s)", shortID(state.CallID)),
		Body:    b.String(),
	}
}

func writeSlots(b *strings.Builder, cfg *company.Config, state engine.ConversationState) {
	for _, spec := range cfg.BookingSlots().All() {
		value := strings.TrimSpace(state.KnownSlots[spec.SlotID])
		if value == "" {
			value = "(not collected)"
		}
		fmt.Fprintf(b, "%s: %s\n", slotLabel(spec.SlotID), value)
	}
}

func lastCallerLine(state engine.ConversationState) string {
	for i := len(state.History) - 1; i >= 0; i-- {
		if state.History[i].Role == engine.RoleCaller {
			return state.History[i].Text
		}
	}
	return ""
}

func slotLabel(slotID string) string {
	label := strings.ReplaceAll(slotID, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

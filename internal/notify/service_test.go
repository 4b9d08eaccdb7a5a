package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/voice-agent-platform/internal/booking"
	"github.com/fieldline/voice-agent-platform/internal/company"
	"github.com/fieldline/voice-agent-platform/internal/engine"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

type mockEmailSender struct {
	sent    []EmailMessage
	callErr error
}

func (m *mockEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if m.callErr != nil {
		return m.callErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func notifyTestConfig() *company.Config {
	return &company.Config{
		CompanyID:       "co_test",
		Name:            "Summit Heating and Air",
		Trade:           "HVAC",
		EscalationEmail: "office@summit-hvac.example",
		Slots: []booking.SlotSpec{
			{SlotID: "name", Question: "Name?", Required: true, Order: 1},
			{SlotID: "phone", Question: "Phone?", Required: true, Order: 2},
		},
	}
}

func TestCallClosedSendsBookingSummary(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, logging.Default())

	state := engine.NewConversationState("call_abc12345", "co_test")
	state.Mode = engine.ModeConfirmation
	state.KnownSlots["name"] = "Dana Ruiz"
	state.KnownSlots["phone"] = "+15125550140"

	require.NoError(t, svc.CallClosed(context.Background(), notifyTestConfig(), state))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "office@summit-hvac.example", msg.To)
	assert.Contains(t, msg.Subject, "New booking request")
	assert.Contains(t, msg.Body, "Dana Ruiz")
	assert.Contains(t, msg.Body, "+15125550140")
}

func TestCallClosedSendsRescueAlert(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, logging.Default())

	state := engine.NewConversationState("call_rescue1", "co_test")
	state.Mode = engine.ModeRescue
	state.History = append(state.History,
		engine.HistoryEntry{Role: engine.RoleCaller, Text: "let me talk to a person"},
	)

	require.NoError(t, svc.CallClosed(context.Background(), notifyTestConfig(), state))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "Callback needed")
	assert.Contains(t, sender.sent[0].Body, "let me talk to a person")
}

func TestCallClosedPartialIntake(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, logging.Default())

	state := engine.NewConversationState("call_partial", "co_test")
	state.Mode = engine.ModeBooking
	state.KnownSlots["name"] = "Dana Ruiz"

	require.NoError(t, svc.CallClosed(context.Background(), notifyTestConfig(), state))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "Incomplete call")
	assert.Contains(t, sender.sent[0].Body, "(not collected)")
}

func TestCallClosedSkipsEmptyAbandonedCall(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, logging.Default())

	state := engine.NewConversationState("call_empty", "co_test")
	require.NoError(t, svc.CallClosed(context.Background(), notifyTestConfig(), state))
	assert.Empty(t, sender.sent)
}

func TestCallClosedSkipsWithoutEscalationEmail(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, logging.Default())

	cfg := notifyTestConfig()
	cfg.EscalationEmail = ""
	state := engine.NewConversationState("call_noemail", "co_test")
	state.Mode = engine.ModeConfirmation

	require.NoError(t, svc.CallClosed(context.Background(), cfg, state))
	assert.Empty(t, sender.sent)
}

func TestCallClosedWrapsSendError(t *testing.T) {
	sender := &mockEmailSender{callErr: errors.New("smtp down")}
	svc := NewService(sender, logging.Default())

	state := engine.NewConversationState("call_err", "co_test")
	state.Mode = engine.ModeConfirmation

	err := svc.CallClosed(context.Background(), notifyTestConfig(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

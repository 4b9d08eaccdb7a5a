package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldline/voice-agent-platform/internal/booking"
	"github.com/fieldline/voice-agent-platform/internal/catalog"
)

var nameSpec = booking.SlotSpec{SlotID: "name", Question: "May I have your first and last name?", Required: true, Order: 1}

func TestAssembleReplyAppendsQuestionVerbatim(t *testing.T) {
	got := assembleReply("Sorry to hear that!", &nameSpec, DefaultAskedPredicate)
	assert.Equal(t, "Sorry to hear that! May I have your first and last name?", got)
}

func TestAssembleReplyEmptyAckIsQuestionOnly(t *testing.T) {
	got := assembleReply("   ", &nameSpec, DefaultAskedPredicate)
	assert.Equal(t, nameSpec.Question, got)
}

func TestAssembleReplySkipsQuestionWhenAckAlreadyAsks(t *testing.T) {
	ack := "Of course! Could I get your name?"
	got := assembleReply(ack, &nameSpec, DefaultAskedPredicate)
	assert.Equal(t, ack, got)
}

func TestAssembleReplyNilSpecReturnsAck(t *testing.T) {
	assert.Equal(t, "Okay.", assembleReply("Okay.", nil, DefaultAskedPredicate))
}

func TestDefaultAskedPredicate(t *testing.T) {
	phone := &booking.SlotSpec{SlotID: "phone", Question: "q", Order: 1}
	tests := []struct {
		name string
		ack  string
		spec *booking.SlotSpec
		want bool
	}{
		{"mentions topic with question mark", "What's the best phone number to reach you at?", phone, true},
		{"topic without question mark", "I'll need your phone number.", phone, false},
		{"question mark without topic", "How can I help you today?", phone, false},
		{"unknown slot id matches itself", "What's your gate code?", &booking.SlotSpec{SlotID: "gate_code", Question: "q", Order: 1}, true},
		{"nil spec", "anything?", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultAskedPredicate(tt.ack, tt.spec))
		})
	}
}

func TestConfirmBackText(t *testing.T) {
	phone := &booking.SlotSpec{SlotID: "phone", Question: "q", Order: 1, ConfirmBack: true}
	addrStreet := &booking.SlotSpec{SlotID: "address", Question: "q", Order: 2, ConfirmBack: true, AddressConfirmLevel: booking.AddressConfirmStreet}
	addrNone := &booking.SlotSpec{SlotID: "address", Question: "q", Order: 2, ConfirmBack: true, AddressConfirmLevel: booking.AddressConfirmNone}
	noConfirm := &booking.SlotSpec{SlotID: "time", Question: "q", Order: 3}

	assert.Equal(t, "Got it, 512-555-0140.", confirmBackText(phone, "+15125550140"))
	assert.Equal(t, "Got it, 414 Cedar Ln.", confirmBackText(addrStreet, "414 Cedar Ln, Austin, TX"))
	assert.Equal(t, "", confirmBackText(addrNone, "414 Cedar Ln, Austin, TX"))
	assert.Equal(t, "", confirmBackText(noConfirm, "tomorrow"))
	assert.Equal(t, "", confirmBackText(phone, "  "))
}

func TestScrubForbidden(t *testing.T) {
	got := scrubForbidden("As an AI assistant I can help. as an ai assistant, truly.", []string{"as an AI assistant"})
	assert.NotContains(t, got, "AI assistant")
	assert.NotContains(t, got, "ai assistant")

	assert.Equal(t, "hello", scrubForbidden("hello", nil))
	assert.Equal(t, "hello", scrubForbidden("hello", []string{"  "}))
}

func TestDeclineReplySuggestsEnabledAlternative(t *testing.T) {
	cat := &catalog.Catalog{Entries: []catalog.Entry{
		{ServiceKey: "furnace_tune_up", DisplayName: "Furnace Tune-Up", ServiceType: catalog.ServiceTypeWork, Enabled: true},
		{ServiceKey: "retired_service", DisplayName: "Retired", ServiceType: catalog.ServiceTypeWork, Enabled: false},
	}}

	d := catalog.Detection{
		DeclineMessage: "I'm sorry, we don't offer boiler installs.",
		Alternatives:   []string{"retired_service", "furnace_tune_up"},
	}
	got := declineReply(d, cat)
	assert.Equal(t, "I'm sorry, we don't offer boiler installs. We do offer furnace tune-up if that would help.", got)
}

func TestDeclineReplyNoUsableAlternative(t *testing.T) {
	cat := &catalog.Catalog{Entries: []catalog.Entry{
		{ServiceKey: "retired_service", DisplayName: "Retired", ServiceType: catalog.ServiceTypeWork, Enabled: false},
	}}
	d := catalog.Detection{
		DeclineMessage: "I'm sorry, we don't offer that.",
		Alternatives:   []string{"retired_service", "missing_key"},
	}
	assert.Equal(t, "I'm sorry, we don't offer that.", declineReply(d, cat))
}

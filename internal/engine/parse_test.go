package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/voice-agent-platform/internal/booking"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Decision
	}{
		{
			name: "clean json",
			raw:  `{"slot": "phone", "ack": "Got it!"}`,
			want: Decision{Slot: "phone", Ack: "Got it!"},
		},
		{
			name: "json wrapped in prose",
			raw:  "Here is the decision:\n```json\n{\"slot\": \"name\", \"ack\": \"Sure.\"}\n```",
			want: Decision{Slot: "name", Ack: "Sure."},
		},
		{
			name: "values map",
			raw:  `{"slot": "none", "ack": "Thanks!", "values": {"name": "Dana Ruiz"}}`,
			want: Decision{Slot: "none", Ack: "Thanks!", Values: map[string]string{"name": "Dana Ruiz"}},
		},
		{
			name: "plain prose coerces to free turn",
			raw:  "Happy to help with that!",
			want: Decision{Slot: "none", Ack: "Happy to help with that!"},
		},
		{
			name: "empty output",
			raw:  "",
			want: Decision{Slot: "none", Ack: ""},
		},
		{
			name: "null slot",
			raw:  `{"slot": null, "ack": "Okay."}`,
			want: Decision{Slot: "none", Ack: "Okay."},
		},
		{
			name: "quoted and cased slot id",
			raw:  `{"slot": "\"Phone\"", "ack": "Noted."}`,
			want: Decision{Slot: "phone", Ack: "Noted."},
		},
		{
			name: "malformed json keeps readable text",
			raw:  `{"slot": "phone", "ack": "unterminated`,
			want: Decision{Slot: "none", Ack: `{"slot": "phone", "ack": "unterminated`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDecision(tt.raw))
		})
	}
}

func TestParseDecisionStripsControlCharacters(t *testing.T) {
	d := ParseDecision("beep\x00boop\x07 reply")
	assert.Equal(t, "beepboop reply", d.Ack)
}

func TestDecisionValidate(t *testing.T) {
	slots, err := booking.NewSlots([]booking.SlotSpec{
		{SlotID: "name", Question: "Your name?", Required: true, Order: 1},
		{SlotID: "phone", Question: "Your number?", Required: true, Order: 2},
	})
	require.NoError(t, err)

	d := Decision{
		Slot: "favorite_color",
		Values: map[string]string{
			"name":  "Dana",
			"email": "dana@example.com",
		},
	}
	d.Validate(slots)

	assert.Equal(t, "none", d.Slot)
	assert.Equal(t, map[string]string{"name": "Dana"}, d.Values)
}

func TestNormalizeSlotID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"phone", "phone"},
		{"  Phone  ", "phone"},
		{`"address"`, "address"},
		{"name slot", "name"},
		{"null", "none"},
		{"", "none"},
		{"{time}", "time"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSlotID(tt.in), "input %q", tt.in)
	}
}

package company

import (
	"strings"
	"testing"
)

func TestDecodeValidConfig(t *testing.T) {
	data := []byte(`{
		"company_id": "acme-hvac",
		"name": "Acme HVAC",
		"trade": "HVAC",
		"slots": [
			{"slot_id": "name", "question": "May I have your name?", "required": true, "order": 1},
			{"slot_id": "phone", "question": "Best number to reach you?", "required": true, "order": 2}
		],
		"catalog": {
			"entries": [
				{"service_key": "ac_repair", "display_name": "AC Repair", "service_type": "work", "enabled": true}
			]
		},
		"qa": [{"question": "what are your hours", "answer": "We're open 8 to 6, Monday through Saturday."}]
	}`)

	cfg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if cfg.BookingSlots().Empty() {
		t.Error("expected booking slots")
	}
	if len(cfg.QA) != 1 {
		t.Errorf("qa pairs = %d, want 1", len(cfg.QA))
	}
}

func TestDecodeRejectsMissingCompanyID(t *testing.T) {
	_, err := Decode([]byte(`{"name": "No ID"}`))
	if err == nil || !strings.Contains(err.Error(), "company id") {
		t.Fatalf("error = %v, want company id complaint", err)
	}
}

func TestDecodeRejectsBadSlots(t *testing.T) {
	_, err := Decode([]byte(`{
		"company_id": "x",
		"slots": [
			{"slot_id": "name", "question": "q", "required": true, "order": 1},
			{"slot_id": "name", "question": "q2", "required": true, "order": 2}
		]
	}`))
	if err == nil {
		t.Fatal("expected duplicate slot error")
	}
}

func TestIdentity(t *testing.T) {
	tests := []struct {
		name, trade, want string
	}{
		{"Acme HVAC", "HVAC", "Acme HVAC, a HVAC company"},
		{"Acme HVAC", "", "Acme HVAC"},
		{"", "plumbing", "a plumbing company"},
		{"", "", "the company"},
	}
	for _, tt := range tests {
		c := &Config{Name: tt.name, Trade: tt.trade}
		if got := c.Identity(); got != tt.want {
			t.Errorf("Identity() = %q, want %q", got, tt.want)
		}
	}
}

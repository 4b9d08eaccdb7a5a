package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchedEscalation(t *testing.T) {
	phrases := []string{"speak to a human", "this is ridiculous", "real person"}

	tests := []struct {
		name      string
		utterance string
		want      string
	}{
		{"direct hit", "I want to speak to a human", "speak to a human"},
		{"punctuation and case ignored", "This. Is. RIDICULOUS!", "this is ridiculous"},
		{"embedded in longer sentence", "can I please just talk to a real person here", "real person"},
		{"no trigger", "my furnace is making a weird noise", ""},
		{"empty utterance", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchedEscalation(tt.utterance, phrases))
		})
	}
}

func TestMatchedEscalationNoPhrasesConfigured(t *testing.T) {
	assert.Equal(t, "", matchedEscalation("I want to speak to a human", nil))
}

// Package company provides per-company configuration for the voice agent: the
// trade identity, the booking slot specs, the service catalog, pre-authored
// Q&A, and the phrase lists that drive rescue and fallback behavior. Config is
// resolved once per call and injected into the engine; the engine never caches
// it across calls.
package company

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fieldline/voice-agent-platform/internal/booking"
	"github.com/fieldline/voice-agent-platform/internal/catalog"
)

// QAPair is a pre-authored answer to a common factual question (hours,
// pricing, service area). Matching is exact/near-exact on the normalized
// question text.
type QAPair struct {
	Question string `json:"question"`
	// Variants are alternate phrasings that match the same answer.
	Variants []string `json:"variants,omitempty"`
	Answer   string   `json:"answer"`
}

// FallbackTemplates are the tiered "I didn't catch that" scripts. Empty fields
// fall back to the built-in defaults.
type FallbackTemplates struct {
	Tier1       string `json:"tier1,omitempty"`
	Tier2       string `json:"tier2,omitempty"`
	Tier3       string `json:"tier3,omitempty"`
	ConfigError string `json:"config_error,omitempty"`
}

// Config holds everything the engine needs to run a call for one company.
type Config struct {
	CompanyID   string `json:"company_id"`
	Name        string `json:"name"`
	Trade       string `json:"trade"` // e.g. "HVAC", "plumbing"
	Greeting    string `json:"greeting,omitempty"`
	ServiceArea string `json:"service_area,omitempty"`
	// StyleDirective is the one-line tone instruction handed to the generator.
	StyleDirective string `json:"style_directive,omitempty"`

	Slots   []booking.SlotSpec `json:"slots"`
	Catalog catalog.Catalog    `json:"catalog"`
	QA      []QAPair           `json:"qa,omitempty"`

	// EscalationPhrases trigger rescue mode when heard in an utterance.
	EscalationPhrases []string `json:"escalation_phrases,omitempty"`
	// ForbiddenPhrases are scrubbed from generator acknowledgments.
	ForbiddenPhrases []string          `json:"forbidden_phrases,omitempty"`
	Fallback         FallbackTemplates `json:"fallback,omitempty"`

	// EscalationEmail receives the tier-3 human-handoff notification.
	EscalationEmail string `json:"escalation_email,omitempty"`
}

// Decode parses a stored JSON config and validates it.
func Decode(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("company: failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the parts the engine depends on. A company with no booking
// slots is still valid here; the engine reports it as a configuration-error
// fallback at turn time.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CompanyID) == "" {
		return fmt.Errorf("company: config has no company id")
	}
	if len(c.Slots) > 0 {
		if _, err := booking.NewSlots(c.Slots); err != nil {
			return err
		}
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	return nil
}

// BookingSlots returns the validated, order-sorted slot list. Returns an empty
// Slots value when none are configured.
func (c *Config) BookingSlots() *booking.Slots {
	slots, err := booking.NewSlots(c.Slots)
	if err != nil {
		// Validate() catches this at load time; an empty list keeps the
		// engine on its configuration-error path.
		slots, _ = booking.NewSlots(nil)
	}
	return slots
}

// Identity is the short company descriptor used in prompts.
func (c *Config) Identity() string {
	name := strings.TrimSpace(c.Name)
	trade := strings.TrimSpace(c.Trade)
	switch {
	case name != "" && trade != "":
		return fmt.Sprintf("%s, a %s company", name, trade)
	case name != "":
		return name
	case trade != "":
		return fmt.Sprintf("a %s company", trade)
	default:
		return "the company"
	}
}

// DefaultConfig returns a development config for a company id.
func DefaultConfig(companyID string) *Config {
	return &Config{
		CompanyID:      companyID,
		Name:           "Fieldline Demo HVAC",
		Trade:          "HVAC",
		StyleDirective: "Warm, brief, and plain-spoken. One question at a time.",
		Slots: []booking.SlotSpec{
			{SlotID: "name", Question: "May I have your first and last name?", Required: true, Order: 1},
			{SlotID: "phone", Question: "What's the best phone number to reach you?", Required: true, Order: 2, OfferCallerID: true},
			{SlotID: "address", Question: "What's the service address?", Required: true, Order: 3, ConfirmBack: true, AddressConfirmLevel: booking.AddressConfirmStreet},
			{SlotID: "time", Question: "What day and time work best for you?", Required: true, Order: 4},
		},
		EscalationPhrases: []string{
			"speak to a human", "talk to a person", "real person",
			"this is ridiculous", "stop transferring me",
		},
	}
}

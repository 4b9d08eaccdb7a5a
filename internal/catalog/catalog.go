// Package catalog holds the per-company registry of offerable services and the
// intent scoring that decides, before any generation happens, whether a caller
// request maps to a disabled service or a known symptom.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ServiceType partitions catalog entries by how the engine treats them.
type ServiceType string

const (
	// ServiceTypeWork is a bookable job (e.g. "ac_repair").
	ServiceTypeWork ServiceType = "work"
	// ServiceTypeSymptom describes a problem the caller reports; it is never
	// bookable itself and only contributes routing hints.
	ServiceTypeSymptom ServiceType = "symptom"
	// ServiceTypeAdmin is handled deterministically (transfer, link) and is
	// never subject to generation.
	ServiceTypeAdmin ServiceType = "admin"
)

// DefaultMinConfidence is the match threshold used when an entry does not
// configure its own.
const DefaultMinConfidence = 0.6

// Entry is a single offerable (or explicitly declined) service.
type Entry struct {
	ServiceKey          string      `json:"service_key"`
	DisplayName         string      `json:"display_name"`
	ServiceType         ServiceType `json:"service_type"`
	Enabled             bool        `json:"enabled"`
	IntentKeywords      []string    `json:"intent_keywords,omitempty"`
	IntentPhrases       []string    `json:"intent_phrases,omitempty"`
	NegativeKeywords    []string    `json:"negative_keywords,omitempty"`
	DeclineMessage      string      `json:"decline_message,omitempty"`
	AlternativeServices []string    `json:"alternative_services,omitempty"`
	// RoutesTo lists the work services a symptom entry points at.
	RoutesTo      []string `json:"routes_to,omitempty"`
	TriagePrompts []string `json:"triage_prompts,omitempty"`
	// AdminResponse is the fixed reply for an admin entry (transfer line,
	// payment link, office directions). Spoken as configured.
	AdminResponse string `json:"admin_response,omitempty"`
	// MinConfidence overrides DefaultMinConfidence when > 0.
	MinConfidence float64 `json:"min_confidence,omitempty"`
}

// Threshold returns the effective match threshold for the entry.
func (e *Entry) Threshold() float64 {
	if e.MinConfidence > 0 {
		return e.MinConfidence
	}
	return DefaultMinConfidence
}

// FallbackDecline builds a decline line from the display name when no message
// is configured.
func (e *Entry) FallbackDecline() string {
	name := strings.TrimSpace(e.DisplayName)
	if name == "" {
		name = strings.ReplaceAll(e.ServiceKey, "_", " ")
	}
	return fmt.Sprintf("I'm sorry, we don't offer %s at this time.", strings.ToLower(name))
}

// Catalog is an ordered list of entries. Order matters: confidence ties are
// broken by position.
type Catalog struct {
	Entries []Entry `json:"entries"`
}

// Parse decodes a catalog from its JSON configuration form and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: failed to decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate enforces the structural invariants of the catalog.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Entries))
	for i := range c.Entries {
		e := &c.Entries[i]
		key := strings.TrimSpace(e.ServiceKey)
		if key == "" {
			return fmt.Errorf("catalog: entry %d has no service key", i)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("catalog: duplicate service key %q", key)
		}
		seen[key] = struct{}{}

		switch e.ServiceType {
		case ServiceTypeWork, ServiceTypeSymptom, ServiceTypeAdmin:
		default:
			return fmt.Errorf("catalog: entry %q has unknown service type %q", key, e.ServiceType)
		}
		if e.ServiceType == ServiceTypeSymptom && len(e.RoutesTo) == 0 {
			return fmt.Errorf("catalog: symptom entry %q routes nowhere", key)
		}
		if e.ServiceType == ServiceTypeAdmin && e.Enabled && strings.TrimSpace(e.AdminResponse) == "" {
			return fmt.Errorf("catalog: admin entry %q has no response configured", key)
		}
	}
	return nil
}

// Lookup returns the entry for a service key, or nil.
func (c *Catalog) Lookup(serviceKey string) *Entry {
	for i := range c.Entries {
		if c.Entries[i].ServiceKey == serviceKey {
			return &c.Entries[i]
		}
	}
	return nil
}

// RoutingTargets resolves a symptom entry's routes into enabled work entries,
// preserving catalog order.
func (c *Catalog) RoutingTargets(symptom *Entry) []*Entry {
	if symptom == nil || symptom.ServiceType != ServiceTypeSymptom {
		return nil
	}
	wanted := make(map[string]struct{}, len(symptom.RoutesTo))
	for _, key := range symptom.RoutesTo {
		wanted[key] = struct{}{}
	}
	var targets []*Entry
	for i := range c.Entries {
		e := &c.Entries[i]
		if _, ok := wanted[e.ServiceKey]; ok && e.ServiceType == ServiceTypeWork && e.Enabled {
			targets = append(targets, e)
		}
	}
	return targets
}

// Package booking defines the ordered slot model the agent fills in over a
// call: which pieces of information to collect, the exact question that asks
// for each one, and how collected values merge into call state.
package booking

import (
	"fmt"
	"sort"
	"strings"
)

// AddressConfirmLevel controls how much of a collected address gets read back.
type AddressConfirmLevel string

const (
	AddressConfirmNone   AddressConfirmLevel = "none"
	AddressConfirmStreet AddressConfirmLevel = "street"
	AddressConfirmFull   AddressConfirmLevel = "full"
)

// SlotSpec is the static per-company definition of one piece of information to
// collect. Question is compliance text and must reach the caller verbatim.
type SlotSpec struct {
	SlotID   string `json:"slot_id"`
	Question string `json:"question"`
	Required bool   `json:"required"`
	Order    int    `json:"order"`
	// ConfirmBack makes the agent read the collected value back to the caller.
	ConfirmBack bool `json:"confirm_back,omitempty"`
	// UseFirstNameOnly accepts a bare first name as complete.
	UseFirstNameOnly bool `json:"use_first_name_only,omitempty"`
	// OfferCallerID lets the agent offer the inbound caller ID instead of
	// asking the caller to dictate their number.
	OfferCallerID       bool                `json:"offer_caller_id,omitempty"`
	AddressConfirmLevel AddressConfirmLevel `json:"address_confirm_level,omitempty"`
}

// Slots is a validated, order-sorted slot list.
type Slots struct {
	specs []SlotSpec
}

// NewSlots validates the specs and returns them sorted by ascending order.
func NewSlots(specs []SlotSpec) (*Slots, error) {
	seen := make(map[string]struct{}, len(specs))
	orders := make(map[int]string, len(specs))
	for i := range specs {
		s := &specs[i]
		if strings.TrimSpace(s.SlotID) == "" {
			return nil, fmt.Errorf("booking: slot %d has no id", i)
		}
		if strings.TrimSpace(s.Question) == "" {
			return nil, fmt.Errorf("booking: slot %q has no question", s.SlotID)
		}
		if _, dup := seen[s.SlotID]; dup {
			return nil, fmt.Errorf("booking: duplicate slot id %q", s.SlotID)
		}
		seen[s.SlotID] = struct{}{}
		if other, dup := orders[s.Order]; dup {
			return nil, fmt.Errorf("booking: slots %q and %q share order %d", other, s.SlotID, s.Order)
		}
		orders[s.Order] = s.SlotID
	}

	sorted := make([]SlotSpec, len(specs))
	copy(sorted, specs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return &Slots{specs: sorted}, nil
}

// Empty reports whether no slots are configured, which is a company
// configuration defect rather than a caller problem.
func (s *Slots) Empty() bool {
	return s == nil || len(s.specs) == 0
}

// All returns the specs in ascending order.
func (s *Slots) All() []SlotSpec {
	if s == nil {
		return nil
	}
	return s.specs
}

// Lookup returns the spec for a slot id, or nil.
func (s *Slots) Lookup(slotID string) *SlotSpec {
	if s == nil {
		return nil
	}
	for i := range s.specs {
		if s.specs[i].SlotID == slotID {
			return &s.specs[i]
		}
	}
	return nil
}

// NextMissing returns the first required slot, in ascending order, that has no
// non-empty value in known. Returns nil when every required slot is filled.
func (s *Slots) NextMissing(known map[string]string) *SlotSpec {
	if s == nil {
		return nil
	}
	for i := range s.specs {
		spec := &s.specs[i]
		if !spec.Required {
			continue
		}
		if strings.TrimSpace(known[spec.SlotID]) == "" {
			return spec
		}
	}
	return nil
}

// Missing lists every required slot still unfilled, in ascending order.
func (s *Slots) Missing(known map[string]string) []SlotSpec {
	if s == nil {
		return nil
	}
	var missing []SlotSpec
	for _, spec := range s.specs {
		if spec.Required && strings.TrimSpace(known[spec.SlotID]) == "" {
			missing = append(missing, spec)
		}
	}
	return missing
}

// Complete reports whether all required slots are filled.
func (s *Slots) Complete(known map[string]string) bool {
	return !s.Empty() && s.NextMissing(known) == nil
}

// Merge folds extracted values into known slots. Extraction is advisory for
// new fields only: an existing non-empty value is never overwritten, and empty
// extracted values are ignored. Merging the same extraction twice is a no-op.
// Phone-like slots are normalized before storage.
func (s *Slots) Merge(known, extracted map[string]string) map[string]string {
	if known == nil {
		known = make(map[string]string, len(extracted))
	}
	for slotID, value := range extracted {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if s != nil && s.Lookup(slotID) == nil {
			continue
		}
		if existing := strings.TrimSpace(known[slotID]); existing != "" {
			continue
		}
		if IsPhoneSlot(slotID) {
			if normalized := NormalizePhone(value); normalized != "" {
				value = normalized
			}
		}
		known[slotID] = value
	}
	return known
}

// IsPhoneSlot reports whether a slot id denotes a phone number.
func IsPhoneSlot(slotID string) bool {
	id := strings.ToLower(slotID)
	return strings.Contains(id, "phone") || strings.Contains(id, "callback_number")
}

// IsPartialName reports whether a collected name value looks like a first name
// only. Used to drive the single last-name follow-up.
func IsPartialName(value string) bool {
	return len(strings.Fields(strings.TrimSpace(value))) == 1
}

package booking

import "strings"

// ServiceClass is the controlled vocabulary a free-text service answer is
// folded into.
type ServiceClass string

const (
	ServiceClassRepair      ServiceClass = "repair"
	ServiceClassMaintenance ServiceClass = "maintenance"
	ServiceClassOther       ServiceClass = "other"
)

var repairKeywords = []string{
	"repair", "fix", "broken", "broke", "not working", "stopped working",
	"leaking", "leak", "won't turn on", "wont turn on", "dead", "making noise",
	"emergency",
}

var maintenanceKeywords = []string{
	"maintenance", "tune up", "tune-up", "tuneup", "checkup", "check up",
	"inspection", "seasonal", "service visit", "filter change", "annual",
	"cleaning",
}

// ClassifyService maps a caller's free-text description of what they need to
// the repair/maintenance/other vocabulary. Repair keywords win when both
// appear, since a broken system is the more urgent read.
func ClassifyService(text string) ServiceClass {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return ServiceClassOther
	}
	for _, kw := range repairKeywords {
		if strings.Contains(t, kw) {
			return ServiceClassRepair
		}
	}
	for _, kw := range maintenanceKeywords {
		if strings.Contains(t, kw) {
			return ServiceClassMaintenance
		}
	}
	return ServiceClassOther
}

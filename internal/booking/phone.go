package booking

import (
	"regexp"
	"strings"
)

var phoneDigitsRe = regexp.MustCompile(`\d+`)

// NormalizePhone collapses a spoken or formatted phone number to a canonical
// +<digits> form. Ten-digit North American numbers get a +1 country code.
// Returns "" when the input has too few digits to be a phone number.
func NormalizePhone(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	digits := strings.Join(phoneDigitsRe.FindAllString(value, -1), "")
	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	case len(digits) >= 7 && len(digits) <= 15:
		return "+" + digits
	default:
		return ""
	}
}

// SpeakablePhone renders a normalized number in the 3-3-4 grouping used when
// reading a number back over text-to-speech.
func SpeakablePhone(normalized string) string {
	digits := strings.Join(phoneDigitsRe.FindAllString(normalized, -1), "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return normalized
	}
	return digits[0:3] + "-" + digits[3:6] + "-" + digits[6:10]
}

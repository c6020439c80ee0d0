// Package util contains helpers used across the application that don't
// match any other package
package util

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed when a phone number has no country code
const DefaultRegion = "US"

// NormalizePhone converts a phone number to E.164. Numbers the phone
// library can't validate go through a digit based fallback that assumes
// North American numbering. Blank input returns an empty string.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	if num, err := phonenumbers.Parse(phone, DefaultRegion); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.E164)
	}

	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return -1
	}, phone)

	switch {
	case len(cleaned) == 11 && strings.HasPrefix(cleaned, "1"):
		return "+" + cleaned
	case len(cleaned) == 10 && !strings.HasPrefix(cleaned, "+"):
		return "+1" + cleaned
	case strings.HasPrefix(cleaned, "+"):
		return cleaned
	}

	return "+" + cleaned
}

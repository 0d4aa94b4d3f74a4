// Package phone normalizes lead and contact phone numbers. Brazilian
// national format is assumed when no country code is present.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "BR"

// NormalizeE164 formats a phone number to E.164. Input that cannot be
// parsed as a valid number is returned trimmed but otherwise untouched.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

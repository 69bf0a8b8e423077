// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "BR"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
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

// FromJID extracts the phone number from a WhatsApp JID such as
// "5547999887766@s.whatsapp.net" and normalizes it to E.164. Group JIDs
// ("@g.us") return an empty string.
func FromJID(jid string) string {
	if strings.HasSuffix(jid, "@g.us") {
		return ""
	}
	digits, _, found := strings.Cut(jid, "@")
	if !found {
		digits = jid
	}
	digits = strings.TrimSpace(digits)
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, "+") {
		digits = "+" + digits
	}
	return NormalizeE164(digits)
}

// ToJID converts an E.164 phone number to the WhatsApp JID form expected by
// the gateway send API.
func ToJID(e164 string) string {
	digits := strings.TrimPrefix(strings.TrimSpace(e164), "+")
	if digits == "" {
		return ""
	}
	return digits + "@s.whatsapp.net"
}

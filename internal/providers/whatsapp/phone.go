package whatsapp

import (
	"strings"
	"unicode"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// NormalizePhone turns a contact phone into the digits-only international
// form the provider expects. Ten-digit national numbers get countryCode
// prepended. ok is false when the input cannot be a phone number.
func NormalizePhone(raw, countryCode string) (string, bool) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		switch r {
		case '-', '(', ')', '.':
			return -1
		}
		return r
	}, raw)
	clean = strings.TrimLeft(clean, "+")
	if clean == "" {
		return "", false
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	if len(clean) < minPhoneDigits || len(clean) > maxPhoneDigits {
		return "", false
	}
	if len(clean) == minPhoneDigits && countryCode != "" && !strings.HasPrefix(clean, countryCode) {
		clean = countryCode + clean
	}
	return clean, true
}

// maskPhone keeps the last four digits for logs.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// Package identity normalizes raw gateway identifiers into canonical
// conversation identities.
//
// Each gateway decorates phone numbers differently ("+55 11 9999-9999",
// "5511999999999@s.whatsapp.net", "whatsapp:+5511999999999"); every decoration
// of the same contact must map to the same identity. Normalization is a pure
// function with no side effects.
package identity

import (
	"fmt"
	"log/slog"
	"strings"

	waTypes "go.mau.fi/whatsmeow/types"
)

// MinDigits is the minimum number of digits required for a valid identity.
const MinDigits = 6

// Brazilian numbering-plan correction: mobile numbers gained a ninth digit, but
// some gateways still deliver the old 8-digit subscriber form. A digits-only id
// of country code 55 + 2-digit area + 8 subscriber digits gets a "9" inserted
// after the area code. Applied at most once so normalization stays idempotent.
const (
	brazilCountryCode = "55"
	brazilLegacyLen   = 12
	brazilNinthOffset = 4
)

// Normalize converts a raw gateway identifier into a canonical conversation
// identity. It is deterministic and idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("identity cannot be empty")
	}

	// Multi-device protocol identifiers arrive as JIDs (user@server, possibly
	// with device/agent suffixes). Keep only the user part.
	if strings.ContainsRune(s, '@') {
		if jid, err := waTypes.ParseJID(s); err == nil && jid.User != "" {
			s = jid.User
		} else {
			s = s[:strings.IndexRune(s, '@')]
		}
	}

	canonical := stripNonDigits(s)
	if canonical == "" {
		return "", fmt.Errorf("invalid identity: no digits found in %q", raw)
	}
	if len(canonical) < MinDigits {
		return "", fmt.Errorf("invalid identity: %q is too short (minimum %d digits required)", canonical, MinDigits)
	}

	canonical = applyBrazilNinthDigit(canonical)

	if canonical != raw {
		slog.Debug("identity.Normalize: canonicalized identifier", "original", raw, "canonical", canonical)
	}
	return canonical, nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func applyBrazilNinthDigit(digits string) string {
	if len(digits) != brazilLegacyLen || !strings.HasPrefix(digits, brazilCountryCode) {
		return digits
	}
	return digits[:brazilNinthOffset] + "9" + digits[brazilNinthOffset:]
}

package phone

import "strings"

// Normalizer maps raw recipient input to the wire format the WhatsApp
// bridge expects. Numbers without a country code get DefaultPrefix
// prepended; numbers already carrying it are used as-is.
type Normalizer struct {
	DefaultPrefix string
}

func NewNormalizer(defaultPrefix string) Normalizer {
	return Normalizer{DefaultPrefix: defaultPrefix}
}

// Normalize strips every non-digit character and applies the country
// prefix heuristic.
func (n Normalizer) Normalize(raw string) string {
	digits := onlyDigits(raw)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, n.DefaultPrefix) {
		return digits
	}
	return n.DefaultPrefix + digits
}

// ChatID derives the bridge-side address token for a raw recipient,
// e.g. "11999998888" -> "5511999998888@c.us".
func (n Normalizer) ChatID(raw string) string {
	digits := n.Normalize(raw)
	if digits == "" {
		return ""
	}
	return digits + "@c.us"
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Package phone canonicalizes free-form phone numbers into a single E.164-like
// form and enumerates the stored-format variants historical records may hold.
package phone

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is assumed for national numbers without an explicit
// country prefix.
const DefaultCountryCode = "91"

var reDigits = regexp.MustCompile(`[^0-9+]`)

// Normalizer canonicalizes numbers against one default country code.
// The zero value is not usable; use New.
type Normalizer struct {
	cc string
}

func New(countryCode string) Normalizer {
	cc := strings.TrimLeft(strings.TrimSpace(countryCode), "+")
	if cc == "" {
		cc = DefaultCountryCode
	}
	return Normalizer{cc: cc}
}

// Normalize returns the canonical form "+<cc><national>". It is deterministic
// and idempotent: Normalize(Normalize(x)) == Normalize(x). An empty result
// means the input held no digits.
func (n Normalizer) Normalize(raw string) string {
	s := reDigits.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" || s == "+" {
		return ""
	}
	hadPlus := strings.HasPrefix(s, "+")
	s = strings.TrimLeft(s, "+")

	switch {
	case hadPlus:
		// Explicit international form; trust the given country code.
	case strings.HasPrefix(s, "00"):
		// International dialing prefix.
		s = s[2:]
	case strings.HasPrefix(s, "0"):
		// National form with trunk zero.
		s = n.cc + s[1:]
	case strings.HasPrefix(s, n.cc) && len(s) > len(n.cc)+9:
		// Already carries the country code without a plus.
	default:
		s = n.cc + s
	}
	return "+" + s
}

// National returns the subscriber part of a canonical number, without the
// country code. Returns the input digits unchanged when the number does not
// start with the normalizer's country code.
func (n Normalizer) National(canonical string) string {
	s := strings.TrimLeft(canonical, "+")
	if strings.HasPrefix(s, n.cc) && len(s) > len(n.cc) {
		return s[len(n.cc):]
	}
	return s
}

// Variants enumerates every stored format a record for this number may hold:
// with/without the country code, with/without a trunk zero, with/without "+".
// The canonical form is always the first element. Used for reads; writes must
// always store the canonical form.
func (n Normalizer) Variants(raw string) []string {
	canonical := n.Normalize(raw)
	if canonical == "" {
		return nil
	}
	bare := strings.TrimPrefix(canonical, "+")
	national := n.National(canonical)

	seen := make(map[string]bool, 5)
	out := make([]string, 0, 5)
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	add(canonical)
	add(bare)
	add(national)
	add("0" + national)
	add("+" + national)
	return out
}

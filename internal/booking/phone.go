package booking

import (
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^\+998\d{9}$`)

// NormalizePhone strips everything except digits and '+', then forces the
// +998 country prefix. It returns the cleaned number and whether it matches
// +998 followed by exactly nine digits.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw) + 4)
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if !strings.HasPrefix(s, "+") {
		if strings.HasPrefix(s, "998") {
			s = "+" + s
		} else {
			s = "+998" + s
		}
	}
	return s, phonePattern.MatchString(s)
}

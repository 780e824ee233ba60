package agent

import (
	"regexp"
	"strings"
)

// phoneCandidate is a digit run that may contain spaces, dashes and parentheses, but not line breaks.
var phoneCandidate = regexp.MustCompile(`\+?\(?\d[\d \t\-\(\)]*\d`)

// minPhoneDigits is the shortest digit count accepted as a phone number.
const minPhoneDigits = 10

// ExtractPhone returns the first phone-shaped substring of text with separators removed,
// or "" when there is none. A leading plus sign is kept.
func ExtractPhone(text string) string {
	for _, candidate := range phoneCandidate.FindAllString(text, -1) {
		var b strings.Builder
		if strings.HasPrefix(candidate, "+") {
			b.WriteByte('+')
		}
		digits := 0
		for _, r := range candidate {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
				digits++
			}
		}
		if digits >= minPhoneDigits {
			return b.String()
		}
	}
	return ""
}

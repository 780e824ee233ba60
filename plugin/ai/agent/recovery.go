package agent

import (
	"regexp"
	"strings"

	"github.com/hrygo/secretary/plugin/ai/tool"
)

var spaceRegex = regexp.MustCompile(`\s+`)

// recoverParams normalizes step parameters before a retry: string values get their
// whitespace collapsed, empty ones are dropped and a phone keeps only its digits.
// The input is never modified.
func recoverParams(params tool.Args) tool.Args {
	out := make(tool.Args, len(params))
	for k, v := range params {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		s = strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
		if s == "" {
			continue
		}
		if k == "phone" {
			if phone := ExtractPhone(s); phone != "" {
				s = phone
			}
		}
		out[k] = s
	}
	return out
}

package generation

import (
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("(?i)^```(?:html)?\\s*\\n?")
	trailingFence = regexp.MustCompile("\\n?```\\s*$")
)

const doctypePrefix = "<!doctype"

// Normalize strips code fences around model output and drops any preamble
// before the document type declaration.
func Normalize(raw string) string {
	out := leadingFence.ReplaceAllString(raw, "")
	out = trailingFence.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)

	lower := strings.ToLower(out)
	if !strings.HasPrefix(lower, doctypePrefix) {
		if idx := strings.Index(lower, doctypePrefix); idx > 0 {
			out = out[idx:]
		}
	}
	return out
}

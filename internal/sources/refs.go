package sources

import (
	"regexp"
	"strings"
)

// Reference patterns ordered most to least specific. The bare digit
// fallback is last: it matches almost anything four digits or longer,
// so it must only fire when nothing better did.
var refPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(S\.?R\.?O\.?\s*\d+\s*\([IVX]+\)\s*/\s*\d{4})`),
	regexp.MustCompile(`(?i)(SRO\s*\d+)`),
	regexp.MustCompile(`(?i)(Circular\s*No\.?\s*\d+)`),
	regexp.MustCompile(`(?i)(Ordinance\s*No\.?\s*\d+)`),
	regexp.MustCompile(`(?i)(Notification\s*No\.?\s*\d+)`),
	regexp.MustCompile(`(\d{4,})`),
}

// ExtractRef finds a reference number in the document URL or the
// surrounding text. Returns "" when no pattern matches.
func ExtractRef(url, text string) string {
	combined := text + " " + url
	for _, re := range refPatterns {
		if m := re.FindStringSubmatch(combined); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

package analyze

import "strings"

// DefaultMaxPromptChars bounds how much document text goes into a
// single prompt.
const DefaultMaxPromptChars = 8000

// Clean prepares document text for a model prompt: control characters
// become spaces, whitespace runs collapse to single spaces, and the
// result is truncated to maxChars. A non-positive maxChars falls back
// to DefaultMaxPromptChars.
func Clean(text string, maxChars int) string {
	if text == "" {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxPromptChars
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			sb.WriteRune(r)
		case r < 32 || r == 127:
			sb.WriteByte(' ')
		default:
			sb.WriteRune(r)
		}
	}

	cleaned := strings.Join(strings.Fields(sb.String()), " ")
	if runes := []rune(cleaned); len(runes) > maxChars {
		cleaned = string(runes[:maxChars])
	}
	return strings.TrimSpace(cleaned)
}

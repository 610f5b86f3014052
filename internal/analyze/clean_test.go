package analyze_test

import (
	"strings"
	"testing"

	"github.com/regwatch/regwatch/internal/analyze"
)

func TestCleanStripsControlCharacters(t *testing.T) {
	got := analyze.Clean("ab\x00cd\x07ef\x7fgh", 0)
	if got != "ab cd ef gh" {
		t.Errorf("expected control chars replaced by spaces, got %q", got)
	}
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	got := analyze.Clean("one  two\n\n\tthree   \n four", 0)
	if got != "one two three four" {
		t.Errorf("expected collapsed whitespace, got %q", got)
	}
}

func TestCleanTruncates(t *testing.T) {
	got := analyze.Clean(strings.Repeat("a", 9000), 0)
	if len(got) != analyze.DefaultMaxPromptChars {
		t.Errorf("expected default truncation to %d, got %d", analyze.DefaultMaxPromptChars, len(got))
	}

	got = analyze.Clean("abcdef", 3)
	if got != "abc" {
		t.Errorf("expected custom truncation, got %q", got)
	}
}

func TestCleanEmpty(t *testing.T) {
	if got := analyze.Clean("", 0); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := analyze.Clean("\x00\x01\x02", 0); got != "" {
		t.Errorf("expected control-only input to clean to empty, got %q", got)
	}
}

package analyze

import "fmt"

// Kind selects which analysis a request performs. The set is closed:
// unknown kinds are rejected up front rather than silently falling
// through to a default prompt.
type Kind string

const (
	// KindIdentify produces the structured extraction-and-summary
	// report that feeds notifications.
	KindIdentify Kind = "identify"
	// KindClassify assigns the document a regulatory domain label.
	KindClassify Kind = "classify"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindIdentify, KindClassify:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown analysis kind %q", s)
	}
}

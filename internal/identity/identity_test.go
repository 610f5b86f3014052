package identity_test

import (
	"testing"
	"time"

	"github.com/regwatch/regwatch/internal/identity"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDerive_Deterministic(t *testing.T) {
	first := identity.Derive("FBR", "SRO 1437", date(2025, time.July, 1))
	second := identity.Derive("FBR", "SRO 1437", date(2025, time.July, 1))

	if first != second {
		t.Errorf("expected identical ids, got %s and %s", first, second)
	}
	if len(first) != 32 {
		t.Errorf("expected 32-char hex id, got %d chars", len(first))
	}
}

func TestDerive_InputsChangeID(t *testing.T) {
	base := identity.Derive("FBR", "SRO 1437", date(2025, time.July, 1))

	cases := map[string]string{
		"source":    identity.Derive("SECP", "SRO 1437", date(2025, time.July, 1)),
		"reference": identity.Derive("FBR", "SRO 1438", date(2025, time.July, 1)),
		"date":      identity.Derive("FBR", "SRO 1437", date(2025, time.July, 2)),
		"no date":   identity.Derive("FBR", "SRO 1437", nil),
	}

	for name, id := range cases {
		if id == base {
			t.Errorf("changing %s should change the id", name)
		}
	}
}

func TestDerive_NilDateStable(t *testing.T) {
	first := identity.Derive("SECP", "SECP-WPDM-12345", nil)
	second := identity.Derive("SECP", "SECP-WPDM-12345", nil)
	if first != second {
		t.Errorf("nil-date ids should be stable, got %s and %s", first, second)
	}
}

func TestFallbackRef_DownloadManagerID(t *testing.T) {
	ref := identity.FallbackRef("SECP", "https://www.secp.gov.pk/?wpdmdl=51234&refresh=abc")
	if ref != "SECP-WPDM-51234" {
		t.Errorf("expected SECP-WPDM-51234, got %s", ref)
	}
}

func TestFallbackRef_PathSegment(t *testing.T) {
	ref := identity.FallbackRef("SECP", "https://www.secp.gov.pk/document/circular-no-9-of-2025.pdf")
	if ref != "SECP-circular-no-9-of-2025" {
		t.Errorf("expected SECP-circular-no-9-of-2025, got %s", ref)
	}
}

func TestFallbackRef_Stable(t *testing.T) {
	url := "https://www.secp.gov.pk/wp-content/uploads/2025/07/notification.pdf"
	if identity.FallbackRef("SECP", url) != identity.FallbackRef("SECP", url) {
		t.Error("fallback refs must be stable for the same URL")
	}
}

func TestFallbackRef_TruncatesLongSegments(t *testing.T) {
	long := "https://example.gov.pk/" + string(make([]byte, 0, 0)) +
		"a-very-long-file-name-that-keeps-going-and-going-and-going-far-past-fifty-characters.pdf"
	ref := identity.FallbackRef("PCP", long)
	// "PCP-" prefix plus at most 50 chars of segment.
	if len(ref) > 54 {
		t.Errorf("expected truncated ref, got %d chars: %s", len(ref), ref)
	}
}

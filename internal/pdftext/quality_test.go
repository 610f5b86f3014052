package pdftext_test

import (
	"strings"
	"testing"

	"github.com/regwatch/regwatch/internal/pdftext"
)

func TestNeedsFallbackEmpty(t *testing.T) {
	if !pdftext.NeedsFallback("") {
		t.Error("expected fallback for empty text")
	}
	if !pdftext.NeedsFallback("   \n\t  ") {
		t.Error("expected fallback for whitespace-only text")
	}
}

func TestNeedsFallbackShortText(t *testing.T) {
	// A typical watermark-only extraction: well-formed but far too short.
	if !pdftext.NeedsFallback("Scanned with CamScanner") {
		t.Error("expected fallback for short text")
	}
	if !pdftext.NeedsFallback(strings.Repeat("a", 199)) {
		t.Error("expected fallback just below the length threshold")
	}
}

func TestNeedsFallbackGibberish(t *testing.T) {
	// Long enough to pass the length check but mostly symbol noise.
	noise := strings.Repeat("#@!%^&*() ~`|\\<>{}[] a ", 20)
	if len([]rune(noise)) < 200 {
		t.Fatal("test fixture too short")
	}
	if !pdftext.NeedsFallback(noise) {
		t.Error("expected fallback for symbol-heavy text")
	}
}

func TestNeedsFallbackWatermarkDominated(t *testing.T) {
	// Clean, above the length floor, but the watermark token plus a few
	// hundred chars means the page is basically an image.
	text := "Scanned with CamScanner. " + strings.Repeat("income tax circular ", 15)
	if !pdftext.NeedsFallback(text) {
		t.Error("expected fallback for watermark-dominated text")
	}
}

func TestNeedsFallbackAcceptsRealText(t *testing.T) {
	text := strings.Repeat("The Federal Board of Revenue is pleased to notify the following amendment to the Sales Tax Rules 2006. ", 5)
	if pdftext.NeedsFallback(text) {
		t.Error("did not expect fallback for normal prose")
	}
}

func TestNeedsFallbackWatermarkInLongDocument(t *testing.T) {
	// A genuine long document that merely mentions the watermark token
	// must not be rejected.
	text := "Scanned with CamScanner. " + strings.Repeat("The Commission hereby directs all licensed entities to comply with the revised disclosure requirements. ", 15)
	if len([]rune(text)) < 1000 {
		t.Fatal("test fixture too short")
	}
	if pdftext.NeedsFallback(text) {
		t.Error("did not expect fallback for long text containing the watermark token")
	}
}

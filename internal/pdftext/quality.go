package pdftext

import (
	"strings"
	"unicode"
)

// Quality gate thresholds. The gate is deliberately biased toward false
// positives: an unnecessary fallback costs one bounded OCR call, while
// silently accepting garbage text poisons every downstream analysis.
const (
	// minTextLength is the minimum stripped length of usable text.
	minTextLength = 200
	// minCleanRatio is the minimum ratio of alphanumeric-or-whitespace
	// characters to total characters.
	minCleanRatio = 0.4
	// watermarkMaxLength bounds the "mostly watermark" case: the token
	// alone plus a little noise, not a real document.
	watermarkMaxLength = 1000
	// scannerWatermark is a token left behind by phone scanning apps on
	// image-only pages.
	scannerWatermark = "camscanner"
)

// NeedsFallback reports whether extracted text looks unusable and OCR
// should be attempted. Checks run cheapest first: emptiness, length,
// noise ratio, watermark.
func NeedsFallback(extracted string) bool {
	if extracted == "" {
		return true
	}

	text := strings.TrimSpace(extracted)
	if len([]rune(text)) < minTextLength {
		// Likely just a header or a scanner watermark.
		return true
	}

	total := 0
	clean := 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			clean++
		}
	}
	if float64(clean)/float64(total) < minCleanRatio {
		return true
	}

	if strings.Contains(strings.ToLower(text), scannerWatermark) &&
		len([]rune(text)) < watermarkMaxLength {
		return true
	}

	return false
}

package pdftext

import (
	"context"
	"strings"

	"github.com/regwatch/regwatch/internal/logger"
)

// TextSource produces primary (non-OCR) text for a PDF.
type TextSource interface {
	Extract(content []byte) string
}

// Pipeline combines content-stream extraction with an optional OCR
// fallback. A nil OCR client disables the fallback entirely.
type Pipeline struct {
	primary  TextSource
	ocr      OCRClient
	maxChars int
	logger   logger.Interface
}

// NewPipeline wires a primary text source and an optional OCR client
// together. A non-positive maxChars falls back to DefaultMaxChars.
func NewPipeline(primary TextSource, ocr OCRClient, maxChars int, log logger.Interface) *Pipeline {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Pipeline{
		primary:  primary,
		ocr:      ocr,
		maxChars: maxChars,
		logger:   log.WithComponent("pdftext"),
	}
}

// Text extracts text from a PDF, falling back to OCR when the primary
// result fails the quality gate. The returned string is empty only when
// both paths produce nothing; OCR failures never mask a usable primary
// result.
func (p *Pipeline) Text(ctx context.Context, content []byte) string {
	primary := p.primary.Extract(content)

	if !NeedsFallback(primary) {
		return primary
	}

	if p.ocr == nil {
		return primary
	}

	p.logger.Info("primary extraction below quality threshold, trying ocr",
		"primary_chars", len(primary))

	recognized, err := p.ocr.Recognize(ctx, content)
	if err != nil {
		p.logger.Warn("ocr fallback failed", "error", err)
		return primary
	}

	recognized = strings.TrimSpace(recognized)
	if recognized == "" {
		return primary
	}
	if runes := []rune(recognized); len(runes) > p.maxChars {
		recognized = string(runes[:p.maxChars])
	}
	return recognized
}

package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var blankLineRuns = regexp.MustCompile(`\n{3,}`)

// ExtractPDFText reads a PDF file and returns its text content: pages joined
// by newlines, runs of three or more newlines collapsed to two, surrounding
// whitespace trimmed. Pages with no extractable text (scanned images) are
// skipped rather than treated as errors.
func ExtractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	defer f.Close()

	var parts []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	return normalizeExtractedText(strings.Join(parts, "\n")), nil
}

// normalizeExtractedText collapses large blank gaps while preserving
// paragraph breaks.
func normalizeExtractedText(text string) string {
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

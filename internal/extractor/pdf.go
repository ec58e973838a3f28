// Package extractor converts uploaded PDF bytes into plain text.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtractionFailed indicates the PDF could not be parsed or read.
var ErrExtractionFailed = errors.New("pdf extraction failed")

// PDFExtractor extracts plain text from PDF documents held in memory.
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract parses the PDF content and returns the concatenated text of
// all pages, in order. A blank line separates successive pages so that
// downstream splitting can treat page boundaries as paragraph breaks.
//
// Corrupt or non-PDF bytes return an error wrapping ErrExtractionFailed
// with the filename attached. Whitespace-only output is returned as-is;
// deciding whether that is an error is the caller's concern.
func (e *PDFExtractor) Extract(content []byte, filename string) (text string, err error) {
	// The parser panics on some malformed inputs instead of returning
	// an error; convert those into extraction failures.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %s: %v", ErrExtractionFailed, filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtractionFailed, filename, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: %s: page %d: %v", ErrExtractionFailed, filename, i, err)
		}

		sb.WriteString(pageText)
		// Blank line between pages preserves paragraph-splitting cues.
		sb.WriteString("\n\n")
	}

	return strings.TrimSpace(sb.String()), nil
}

package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor pulls plain text out of an uploaded document.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// PDFExtractor extracts text from PDF bytes.
type PDFExtractor struct{}

// NewPDFExtractor constructs a PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract implements Extractor. The returned text is cleaned of control
// characters so it can be embedded safely in an LLM prompt and in UTF-8
// database columns.
func (e *PDFExtractor) Extract(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty document")
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	text := CleanText(string(raw))
	if strings.TrimSpace(text) == "" {
		return "", errors.New("document contains no extractable text")
	}
	return text, nil
}

// CleanText drops null bytes and non-printable characters while keeping
// tabs, newlines and the full printable Unicode range.
func CleanText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r >= 0x20 && r < 0x7F:
			return r
		case r >= 0xA0:
			return r
		default:
			return -1
		}
	}, s)
}

var _ Extractor = (*PDFExtractor)(nil)

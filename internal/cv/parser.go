// Package cv turns uploaded documents into plain text for the search index.
package cv

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"code.sajari.com/docconv"

	"nexus-ats/internal/model"
)

// ErrUnsupported is returned for MIME types that carry no extractable text.
var ErrUnsupported = errors.New("cv: unsupported mime type")

// MaxTextLength caps what is stored per document.
const MaxTextLength = 100_000

type TextExtractor struct {
	maxLength int
}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{maxLength: MaxTextLength}
}

// Supports reports whether Extract can handle mimeType.
func (e *TextExtractor) Supports(mimeType string) bool {
	switch mimeType {
	case model.MimePDF, model.MimeDOC, model.MimeDOCX, model.MimeText:
		return true
	}
	return false
}

// Extract returns the document body with whitespace collapsed.
func (e *TextExtractor) Extract(data []byte, mimeType string) (string, error) {
	var text string

	switch mimeType {
	case model.MimePDF, model.MimeDOC, model.MimeDOCX:
		// Use docconv for PDF/DOC/DOCX parsing
		res, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
		if err != nil {
			return "", fmt.Errorf("failed to parse document: %w", err)
		}
		text = res.Body
	case model.MimeText:
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}

	text = strings.Join(strings.Fields(text), " ")
	if len(text) > e.maxLength {
		text = truncateUTF8(text, e.maxLength)
	}
	return text, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	for n > 0 && n < len(s) && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

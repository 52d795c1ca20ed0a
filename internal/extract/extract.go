// Package extract converts uploaded document bytes into plain text for
// chunking and grounding. Plain text and markdown pass through as UTF-8;
// PDFs go through text extraction. Binary formats without a text layer
// are rejected rather than silently garbled.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedType means the document's type has no text extraction
// path. Callers should surface the detected type to the user.
var ErrUnsupportedType = errors.New("extract: unsupported document type")

// Text converts raw document bytes into plain text. The MIME type wins
// when provided; otherwise the filename extension decides. Unknown binary
// content returns ErrUnsupportedType.
func Text(name, mimeType string, data []byte) (string, error) {
	switch {
	case isPDF(name, mimeType, data):
		return pdfText(data)
	case isPlainText(name, mimeType):
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrUnsupportedType, name)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, name, mimeType)
	}
}

// pdfHeader is the magic prefix every PDF file starts with.
var pdfHeader = []byte("%PDF-")

func isPDF(name, mimeType string, data []byte) bool {
	if mimeType == "application/pdf" {
		return true
	}
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, pdfHeader)
}

// textExtensions lists filename extensions treated as plain text when no
// MIME type is available. Markdown keeps its formatting characters — they
// carry structure the model can use.
var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".text":     true,
}

func isPlainText(name, mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	if mimeType == "application/markdown" {
		return true
	}
	if mimeType != "" && mimeType != "application/octet-stream" {
		return false
	}
	for ext := range textExtensions {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return true
		}
	}
	return false
}

// pdfText extracts the plain text layer from PDF bytes. A PDF with no
// extractable text (scanned images) yields an empty string, not an error.
func pdfText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: reading pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract: extracting pdf text: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("extract: reading pdf text: %w", err)
	}
	return string(out), nil
}

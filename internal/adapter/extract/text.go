package extract

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// TextExtractor accepts UTF-8 plain text and markdown files as-is.
type TextExtractor struct {
	maxBytes int64
}

func NewTextExtractor(maxBytes int64) *TextExtractor {
	return &TextExtractor{maxBytes: maxBytes}
}

func (e *TextExtractor) Extract(ctx context.Context, r io.Reader, name string) (string, error) {
	data, err := readAll(r, e.maxBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrExtraction, name, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s: not valid UTF-8", domain.ErrExtraction, name)
	}
	return strings.TrimSpace(string(data)), nil
}

// ByExtension picks an extractor from the file name. Unknown extensions
// are treated as PDF, which is what the upload endpoint expects.
func ByExtension(name string, maxBytes int64) port.Extractor {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown", ".text":
		return NewTextExtractor(maxBytes)
	default:
		return NewPDFExtractor(maxBytes)
	}
}

package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"docqa/internal/domain"
)

// PDFExtractor pulls the plain text out of every page of a PDF. Pages are
// joined with newlines.
type PDFExtractor struct {
	maxBytes int64
}

// NewPDFExtractor limits the accepted upload to maxBytes; zero means unlimited.
func NewPDFExtractor(maxBytes int64) *PDFExtractor {
	return &PDFExtractor{maxBytes: maxBytes}
}

func (e *PDFExtractor) Extract(ctx context.Context, r io.Reader, name string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrExtraction, name, err)
	}
	data, err := readAll(r, e.maxBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrExtraction, name, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s: empty file", domain.ErrExtraction, name)
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: %s: malformed pdf: %v", domain.ErrExtraction, name, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrExtraction, name, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %s: %w", domain.ErrExtraction, name, err)
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: %s: page %d: %w", domain.ErrExtraction, name, i, err)
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	// Scanned documents have no text layer and yield "".
	return strings.TrimSpace(sb.String()), nil
}

func readAll(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d bytes", limit)
	}
	return data, nil
}

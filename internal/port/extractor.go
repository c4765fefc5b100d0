package port

import (
	"context"
	"io"
)

// Extractor converts an uploaded document into plain text. A readable
// document without text yields "" and no error.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, name string) (string, error)
}

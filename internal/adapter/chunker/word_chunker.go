package chunker

import (
	"fmt"
	"strings"

	"docqa/internal/domain"
)

const (
	DefaultSize    = 300
	DefaultOverlap = 50
)

// WordChunker splits text into windows of size words, each starting
// size-overlap words after the previous one.
type WordChunker struct {
	size    int
	overlap int
}

// NewWordChunker validates the window parameters. A step of zero or less would never advance.
func NewWordChunker(size, overlap int) (*WordChunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", domain.ErrInvalidChunking, size, overlap)
	}
	return &WordChunker{
		size:    size,
		overlap: overlap,
	}, nil
}

func (c *WordChunker) Chunk(text string) []domain.Fragment {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap
	fragments := make([]domain.Fragment, 0, (len(words)+step-1)/step)

	for start := 0; start < len(words); start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}

		chunk := strings.Join(words[start:end], " ")
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		fragments = append(fragments, domain.Fragment{
			Ordinal: len(fragments),
			Text:    chunk,
		})

		// Any later window would lie entirely inside this one.
		if end == len(words) {
			break
		}
	}

	return fragments
}

func (c *WordChunker) Size() int    { return c.size }
func (c *WordChunker) Overlap() int { return c.overlap }

package index

import (
	"fmt"
	"time"

	"docqa/internal/domain"
)

// Snapshot is the serializable form of an EmbeddingIndex.
type Snapshot struct {
	Model     string            `json:"model"`
	Name      string            `json:"name,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Dimension int               `json:"dimension"`
	Fragments []domain.Fragment `json:"fragments"`
	Vectors   [][]float32       `json:"vectors"`
}

// Snapshot captures the index for persistence.
func (x *EmbeddingIndex) Snapshot() Snapshot {
	vectors := make([][]float32, len(x.vectors))
	for i, v := range x.vectors {
		vectors[i] = append([]float32(nil), v...)
	}
	return Snapshot{
		Model:     x.model,
		Name:      x.name,
		CreatedAt: x.createdAt,
		Dimension: x.dimension,
		Fragments: x.Fragments(),
		Vectors:   vectors,
	}
}

// FromSnapshot rebuilds an index, checking the same invariants Build enforces.
func FromSnapshot(s Snapshot) (*EmbeddingIndex, error) {
	if len(s.Fragments) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(s.Fragments) != len(s.Vectors) {
		return nil, fmt.Errorf("snapshot has %d fragments but %d vectors", len(s.Fragments), len(s.Vectors))
	}
	for i, frag := range s.Fragments {
		if frag.Ordinal != i {
			return nil, fmt.Errorf("snapshot fragment %d has ordinal %d", i, frag.Ordinal)
		}
		if len(s.Vectors[i]) != s.Dimension {
			return nil, &domain.DimensionMismatchError{Expected: s.Dimension, Actual: len(s.Vectors[i])}
		}
	}

	return &EmbeddingIndex{
		fragments: s.Fragments,
		vectors:   s.Vectors,
		model:     s.Model,
		dimension: s.Dimension,
		name:      s.Name,
		createdAt: s.CreatedAt,
	}, nil
}

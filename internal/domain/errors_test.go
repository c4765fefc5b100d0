package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"not found", fmt.Errorf("lookup abc: %w", ErrDocumentNotFound), KindNotFound},
		{"empty document", ErrEmptyDocument, KindInput},
		{"model mismatch", fmt.Errorf("query: %w", ErrModelMismatch), KindInput},
		{"embedding", fmt.Errorf("fragment 3: %w: timeout", ErrEmbedding), KindCollaborator},
		{"extraction", ErrExtraction, KindCollaborator},
		{"generation", ErrGeneration, KindCollaborator},
		{"empty index", ErrEmptyIndex, KindInvariant},
		{"dimension", fmt.Errorf("build: %w", &DimensionMismatchError{Expected: 3, Actual: 4}), KindInvariant},
		{"other", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestDimensionMismatchError(t *testing.T) {
	err := &DimensionMismatchError{Expected: 1536, Actual: 768}
	assert.Equal(t, "dimension mismatch: expected 1536, got 768", err.Error())
}

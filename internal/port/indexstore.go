package port

import (
	"context"

	"docqa/internal/adapter/index"
	"docqa/internal/domain"
)

// DocumentStore maps document ids to their embedding index.
type DocumentStore interface {
	Get(ctx context.Context, id string) (*index.EmbeddingIndex, error)

	// Put replaces any existing index stored under id.
	Put(ctx context.Context, id string, idx *index.EmbeddingIndex) error

	Delete(ctx context.Context, id string) error

	Len() int
}

// IndexBackend is a durable store behind the in-memory document store.
type IndexBackend interface {
	SaveIndex(id string, idx *index.EmbeddingIndex) error

	LoadIndex(id string) (*index.EmbeddingIndex, error)

	DeleteIndex(id string) error

	ListDocuments() ([]domain.DocumentInfo, error)

	Close() error
}

package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
)

const (
	// DefaultTopK is used when a query asks for a non-positive number of results.
	DefaultTopK = 3

	DefaultConcurrency = 4
)

// Embedder is the subset of the embedding provider the index needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// EmbeddingIndex holds one document's fragments and their vectors.
// vectors[i] is the embedding of fragments[i].Text. An index is immutable once built.
type EmbeddingIndex struct {
	fragments []domain.Fragment
	vectors   [][]float32
	model     string
	dimension int
	name      string
	createdAt time.Time
}

type buildOptions struct {
	concurrency int
	name        string
	now         func() time.Time
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithConcurrency bounds the number of embedding calls in flight.
func WithConcurrency(n int) BuildOption {
	return func(o *buildOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithName records the source document name on the index.
func WithName(name string) BuildOption {
	return func(o *buildOptions) {
		o.name = name
	}
}

// Build embeds every fragment and returns the complete index.
// If any embedding call fails the outstanding calls are cancelled and no index is returned.
func Build(ctx context.Context, fragments []domain.Fragment, embedder Embedder, opts ...BuildOption) (*EmbeddingIndex, error) {
	if len(fragments) == 0 {
		return nil, domain.ErrEmptyIndex
	}

	o := buildOptions{concurrency: DefaultConcurrency, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	vectors := make([][]float32, len(fragments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i := range fragments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
			}
			vec, err := embedder.Embed(gctx, fragments[i].Text)
			if err != nil {
				return fmt.Errorf("%w: fragment %d: %w", domain.ErrEmbedding, fragments[i].Ordinal, err)
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The loop may have stopped early on a cancelled parent context without any call failing.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}

	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty vector", domain.ErrEmbedding)
	}
	for _, vec := range vectors {
		if len(vec) != dimension {
			return nil, &domain.DimensionMismatchError{Expected: dimension, Actual: len(vec)}
		}
	}

	frags := make([]domain.Fragment, len(fragments))
	copy(frags, fragments)

	return &EmbeddingIndex{
		fragments: frags,
		vectors:   vectors,
		model:     embedder.ModelName(),
		dimension: dimension,
		name:      o.name,
		createdAt: o.now(),
	}, nil
}

// Query embeds question with embedder and ranks the index fragments against it.
// The embedder must use the same model that built the index.
func (x *EmbeddingIndex) Query(ctx context.Context, question string, embedder Embedder, topK int) ([]domain.ScoredFragment, error) {
	if x.Len() == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if model := embedder.ModelName(); model != x.model {
		return nil, fmt.Errorf("%w: index built with %q, query uses %q", domain.ErrModelMismatch, x.model, model)
	}

	vec, err := embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: question: %w", domain.ErrEmbedding, err)
	}

	return x.Rank(vec, topK)
}

// Rank scores every fragment by cosine similarity with query and returns the best topK,
// highest score first and ties in document order.
func (x *EmbeddingIndex) Rank(query []float32, topK int) ([]domain.ScoredFragment, error) {
	if x.Len() == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(query) != x.dimension {
		return nil, &domain.DimensionMismatchError{Expected: x.dimension, Actual: len(query)}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	scored := make([]domain.ScoredFragment, len(x.fragments))
	for i, frag := range x.fragments {
		scored[i] = domain.ScoredFragment{
			Fragment: frag,
			Score:    CosineSimilarity(query, x.vectors[i]),
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Fragment.Ordinal < scored[j].Fragment.Ordinal
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

// Len returns the number of fragments in the index.
func (x *EmbeddingIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.fragments)
}

// Fragments returns a copy of the indexed fragments in document order.
func (x *EmbeddingIndex) Fragments() []domain.Fragment {
	out := make([]domain.Fragment, len(x.fragments))
	copy(out, x.fragments)
	return out
}

func (x *EmbeddingIndex) Model() string        { return x.model }
func (x *EmbeddingIndex) Dimension() int       { return x.dimension }
func (x *EmbeddingIndex) Name() string         { return x.name }
func (x *EmbeddingIndex) CreatedAt() time.Time { return x.createdAt }

// Describe summarizes the index as the document stored under id.
func (x *EmbeddingIndex) Describe(id string) domain.DocumentInfo {
	return domain.DocumentInfo{
		ID:            id,
		Name:          x.name,
		FragmentCount: x.Len(),
		Model:         x.model,
		Dimension:     x.dimension,
		IngestedAt:    x.createdAt,
	}
}

// CosineSimilarity returns dot(a, b) / (|a| * |b|), or 0 when either norm is zero
// or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

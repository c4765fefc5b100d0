package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/adapter/index"
	"docqa/internal/domain"
	"docqa/internal/logging"
	"docqa/internal/port"
)

// RetrievalOptions tunes the pipeline. Zero values pick the defaults.
type RetrievalOptions struct {
	TopK             int
	BuildConcurrency int

	// QueryEmbedder embeds questions; defaults to the ingest embedder. It must
	// report the same model name.
	QueryEmbedder port.Embedder

	Generator port.Generator
	Logger    *logging.Logger
	Metrics   port.MetricsObserver
}

// RetrievalUseCase turns documents into embedding indexes and answers
// questions against them.
type RetrievalUseCase struct {
	chunker       port.Chunker
	embedder      port.Embedder
	queryEmbedder port.Embedder
	generator     port.Generator
	store         port.DocumentStore
	topK          int
	concurrency   int
	logger        *logging.Logger
	metrics       port.MetricsObserver
}

// NewRetrievalUseCase creates a new retrieval use case.
func NewRetrievalUseCase(
	chunker port.Chunker,
	embedder port.Embedder,
	store port.DocumentStore,
	opts RetrievalOptions,
) *RetrievalUseCase {
	if opts.TopK <= 0 {
		opts.TopK = index.DefaultTopK
	}
	if opts.BuildConcurrency <= 0 {
		opts.BuildConcurrency = index.DefaultConcurrency
	}
	if opts.QueryEmbedder == nil {
		opts.QueryEmbedder = embedder
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	if opts.Metrics == nil {
		opts.Metrics = port.NoopMetricsObserver{}
	}

	return &RetrievalUseCase{
		chunker:       chunker,
		embedder:      embedder,
		queryEmbedder: opts.QueryEmbedder,
		generator:     opts.Generator,
		store:         store,
		topK:          opts.TopK,
		concurrency:   opts.BuildConcurrency,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
}

// NewDocumentID returns a fresh random document id.
func NewDocumentID() string {
	return uuid.NewString()
}

// Ingest chunks and embeds text and stores the resulting index under id,
// replacing any previous index. On failure the store is left untouched.
func (u *RetrievalUseCase) Ingest(ctx context.Context, id, name, text string) (domain.DocumentInfo, error) {
	start := time.Now()
	info, err := u.ingest(ctx, id, name, text)

	elapsed := time.Since(start)
	u.logger.LogIngest(ctx, id, name, info.FragmentCount, elapsed, err)
	u.metrics.OnIngest(elapsed, info.FragmentCount, err)
	u.metrics.OnDocuments(u.store.Len())
	return info, err
}

func (u *RetrievalUseCase) ingest(ctx context.Context, id, name, text string) (domain.DocumentInfo, error) {
	if id == "" {
		return domain.DocumentInfo{}, fmt.Errorf("%w: document id", domain.ErrMissingField)
	}

	fragments := u.chunker.Chunk(text)
	if len(fragments) == 0 {
		return domain.DocumentInfo{}, domain.ErrEmptyDocument
	}

	idx, err := index.Build(ctx, fragments, u.embedder,
		index.WithConcurrency(u.concurrency),
		index.WithName(name),
	)
	if err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("failed to build index: %w", err)
	}

	if err := u.store.Put(ctx, id, idx); err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("failed to store index: %w", err)
	}
	return idx.Describe(id), nil
}

// IngestReader extracts text from r and ingests it under a new id.
func (u *RetrievalUseCase) IngestReader(ctx context.Context, name string, r io.Reader, extractor port.Extractor) (domain.DocumentInfo, error) {
	text, err := extractor.Extract(ctx, r, name)
	if err != nil {
		u.logger.LogIngest(ctx, "", name, 0, 0, err)
		u.metrics.OnIngest(0, 0, err)
		return domain.DocumentInfo{}, err
	}
	return u.Ingest(ctx, NewDocumentID(), name, text)
}

// Answer retrieves the fragments of document id most relevant to question.
func (u *RetrievalUseCase) Answer(ctx context.Context, id, question string) (domain.AnswerContext, error) {
	return u.AnswerTopK(ctx, id, question, u.topK)
}

// AnswerTopK is Answer with an explicit fragment count.
func (u *RetrievalUseCase) AnswerTopK(ctx context.Context, id, question string, topK int) (domain.AnswerContext, error) {
	start := time.Now()
	ac, err := u.answer(ctx, id, question, topK)
	u.logger.LogQuery(ctx, id, topK, len(ac.Fragments), time.Since(start), err)
	return ac, err
}

func (u *RetrievalUseCase) answer(ctx context.Context, id, question string, topK int) (domain.AnswerContext, error) {
	if id == "" || strings.TrimSpace(question) == "" {
		return domain.AnswerContext{}, domain.ErrMissingField
	}

	idx, err := u.store.Get(ctx, id)
	if err != nil {
		return domain.AnswerContext{}, err
	}

	results, err := idx.Query(ctx, question, u.queryEmbedder, topK)
	if err != nil {
		return domain.AnswerContext{}, err
	}
	if len(results) == 0 {
		return domain.AnswerContext{}, domain.ErrNoRelevantContent
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Fragment.Text
	}
	return domain.AnswerContext{
		Context:   strings.Join(texts, "\n\n"),
		Fragments: results,
	}, nil
}

// Ask retrieves context for question and has the generator answer from it.
func (u *RetrievalUseCase) Ask(ctx context.Context, id, question string) (domain.Answer, error) {
	return u.AskTopK(ctx, id, question, u.topK)
}

func (u *RetrievalUseCase) AskTopK(ctx context.Context, id, question string, topK int) (domain.Answer, error) {
	start := time.Now()
	answer, err := u.ask(ctx, id, question, topK)
	u.metrics.OnQuery(time.Since(start), err)
	return answer, err
}

func (u *RetrievalUseCase) ask(ctx context.Context, id, question string, topK int) (domain.Answer, error) {
	if u.generator == nil {
		return domain.Answer{}, fmt.Errorf("%w: no generator configured", domain.ErrGeneration)
	}

	ac, err := u.AnswerTopK(ctx, id, question, topK)
	if err != nil {
		return domain.Answer{}, err
	}

	start := time.Now()
	text, err := u.generator.Generate(ctx, ac.Context, question)
	elapsed := time.Since(start)
	u.logger.LogGenerate(ctx, id, u.generator.ModelName(), elapsed, err)
	u.metrics.OnProviderCall(u.generator.ModelName(), "generate", elapsed, err)
	if err != nil {
		return domain.Answer{}, err
	}

	return domain.Answer{Text: text, FragmentsUsed: len(ac.Fragments)}, nil
}

// Delete removes the index stored under id.
func (u *RetrievalUseCase) Delete(ctx context.Context, id string) error {
	err := u.store.Delete(ctx, id)
	u.metrics.OnDocuments(u.store.Len())
	return err
}

// DocumentCount is the number of documents currently held in memory.
func (u *RetrievalUseCase) DocumentCount() int {
	return u.store.Len()
}

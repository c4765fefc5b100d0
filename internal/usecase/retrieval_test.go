package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/extract"
	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/memstore"
	"docqa/internal/domain"
)

// vocabEmbedder gives every known word its own dimension, so scores are exact.
type vocabEmbedder struct {
	vocab []string
	fail  string
}

func newVocabEmbedder(words ...string) *vocabEmbedder {
	return &vocabEmbedder{vocab: words}
}

func (e *vocabEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.fail != "" && strings.Contains(text, e.fail) {
		return nil, errors.New("provider unavailable")
	}
	vec := make([]float32, len(e.vocab))
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for i, v := range e.vocab {
			if v == w {
				vec[i]++
			}
		}
	}
	return vec, nil
}

func (e *vocabEmbedder) ModelName() string { return "vocab" }

type recordingObserver struct {
	mu        sync.Mutex
	ingests   []error
	queries   []error
	documents int
}

func (o *recordingObserver) OnIngest(d time.Duration, fragments int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ingests = append(o.ingests, err)
}

func (o *recordingObserver) OnQuery(d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queries = append(o.queries, err)
}

func (o *recordingObserver) OnProviderCall(provider, op string, d time.Duration, err error) {}

func (o *recordingObserver) OnDocuments(count int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.documents = count
}

func newUseCase(t *testing.T, size, overlap int, emb *vocabEmbedder, opts RetrievalOptions) *RetrievalUseCase {
	t.Helper()
	c, err := chunker.NewWordChunker(size, overlap)
	require.NoError(t, err)
	if opts.Generator == nil {
		opts.Generator = llm.NewEchoGenerator()
	}
	return NewRetrievalUseCase(c, emb, memstore.NewDocumentStore(memstore.Options{}), opts)
}

var animals = []string{"a", "cat", "sat", "dog", "ran", "bird", "flew"}

func TestEndToEndAnimals(t *testing.T) {
	ctx := context.Background()
	u := newUseCase(t, 4, 1, newVocabEmbedder(animals...), RetrievalOptions{})

	info, err := u.Ingest(ctx, "doc-1", "animals.txt", "A cat sat. A dog ran. A bird flew.")
	require.NoError(t, err)
	assert.Equal(t, 3, info.FragmentCount)
	assert.Equal(t, "doc-1", info.ID)
	assert.Equal(t, "vocab", info.Model)

	ac, err := u.Answer(ctx, "doc-1", "cat sat")
	require.NoError(t, err)
	require.Len(t, ac.Fragments, 3)
	assert.Equal(t, "A cat sat. A", ac.Fragments[0].Fragment.Text)
	assert.True(t, strings.HasPrefix(ac.Context, "A cat sat. A\n\n"))

	answer, err := u.Ask(ctx, "doc-1", "cat sat")
	require.NoError(t, err)
	assert.Equal(t, "A cat sat. A", answer.Text)
	assert.Equal(t, 3, answer.FragmentsUsed)
}

func TestAnswerRespectsTopK(t *testing.T) {
	ctx := context.Background()
	u := newUseCase(t, 2, 0, newVocabEmbedder(animals...), RetrievalOptions{TopK: 2})

	_, err := u.Ingest(ctx, "doc", "x", "cat sat dog ran bird flew cat dog")
	require.NoError(t, err)

	ac, err := u.Answer(ctx, "doc", "bird flew")
	require.NoError(t, err)
	assert.Len(t, ac.Fragments, 2)
	assert.Equal(t, "bird flew", ac.Fragments[0].Fragment.Text)

	ac, err = u.AnswerTopK(ctx, "doc", "bird flew", 10)
	require.NoError(t, err)
	assert.Len(t, ac.Fragments, 4)
}

func TestIsolationBetweenDocuments(t *testing.T) {
	ctx := context.Background()
	u := newUseCase(t, 3, 0, newVocabEmbedder(animals...), RetrievalOptions{})

	_, err := u.Ingest(ctx, "cats", "cats.txt", "cat sat cat sat")
	require.NoError(t, err)
	_, err = u.Ingest(ctx, "birds", "birds.txt", "bird flew bird flew")
	require.NoError(t, err)

	ac, err := u.Answer(ctx, "birds", "cat sat")
	require.NoError(t, err)
	for _, f := range ac.Fragments {
		assert.NotContains(t, f.Fragment.Text, "cat")
	}
	assert.Equal(t, 2, u.DocumentCount())
}

func TestOverwriteReplacesIndex(t *testing.T) {
	ctx := context.Background()
	u := newUseCase(t, 3, 0, newVocabEmbedder(animals...), RetrievalOptions{})

	_, err := u.Ingest(ctx, "doc", "v1", "cat sat")
	require.NoError(t, err)
	_, err = u.Ingest(ctx, "doc", "v2", "dog ran")
	require.NoError(t, err)

	ac, err := u.Answer(ctx, "doc", "cat")
	require.NoError(t, err)
	require.Len(t, ac.Fragments, 1)
	assert.Equal(t, "dog ran", ac.Fragments[0].Fragment.Text)
	assert.Equal(t, 1, u.DocumentCount())
}

func TestFailedIngestLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	emb := newVocabEmbedder(animals...)
	obs := &recordingObserver{}
	u := newUseCase(t, 2, 0, emb, RetrievalOptions{Metrics: obs})

	_, err := u.Ingest(ctx, "doc", "v1", "cat sat")
	require.NoError(t, err)

	emb.fail = "bird"
	_, err = u.Ingest(ctx, "doc", "v2", "dog ran bird flew")
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, domain.KindCollaborator, domain.Classify(err))

	ac, err := u.Answer(ctx, "doc", "cat")
	require.NoError(t, err)
	assert.Equal(t, "cat sat", ac.Fragments[0].Fragment.Text)

	require.Len(t, obs.ingests, 2)
	assert.NoError(t, obs.ingests[0])
	assert.Error(t, obs.ingests[1])
	assert.Equal(t, 1, obs.documents)
}

func TestIngestEmptyDocument(t *testing.T) {
	u := newUseCase(t, 3, 0, newVocabEmbedder(animals...), RetrievalOptions{})

	_, err := u.Ingest(context.Background(), "doc", "blank", "  \n\t ")
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
	assert.Equal(t, 0, u.DocumentCount())

	_, err = u.Ingest(context.Background(), "", "x", "cat")
	assert.ErrorIs(t, err, domain.ErrMissingField)
}

func TestAnswerUnknownDocument(t *testing.T) {
	u := newUseCase(t, 3, 0, newVocabEmbedder(animals...), RetrievalOptions{})

	_, err := u.Answer(context.Background(), "missing", "cat?")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	assert.Equal(t, domain.KindNotFound, domain.Classify(err))

	_, err = u.Answer(context.Background(), "missing", "  ")
	assert.ErrorIs(t, err, domain.ErrMissingField)
}

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context, contextText, question string) (string, error) {
	return "", domain.ErrGeneration
}

func (failingGenerator) ModelName() string { return "failing" }

func TestAskGenerationFailure(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	u := newUseCase(t, 3, 0, newVocabEmbedder(animals...), RetrievalOptions{
		Generator: failingGenerator{},
		Metrics:   obs,
	})

	_, err := u.Ingest(ctx, "doc", "x", "cat sat")
	require.NoError(t, err)

	_, err = u.Ask(ctx, "doc", "cat")
	assert.ErrorIs(t, err, domain.ErrGeneration)
	require.Len(t, obs.queries, 1)
	assert.Error(t, obs.queries[0])
}

func TestIngestReader(t *testing.T) {
	ctx := context.Background()
	u := newUseCase(t, 4, 1, newVocabEmbedder(animals...), RetrievalOptions{})

	info, err := u.IngestReader(ctx, "animals.txt", strings.NewReader("A cat sat. A dog ran."), extract.NewTextExtractor(0))
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "animals.txt", info.Name)

	_, err = u.Answer(ctx, info.ID, "dog")
	require.NoError(t, err)

	_, err = u.IngestReader(ctx, "blank.txt", strings.NewReader(" "), extract.NewTextExtractor(0))
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)

	_, err = u.IngestReader(ctx, "bad.pdf", strings.NewReader("not a pdf"), extract.NewPDFExtractor(0))
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	u := newUseCase(t, 3, 0, newVocabEmbedder(animals...), RetrievalOptions{})

	_, err := u.Ingest(ctx, "doc", "x", "cat sat")
	require.NoError(t, err)
	require.NoError(t, u.Delete(ctx, "doc"))

	_, err = u.Answer(ctx, "doc", "cat")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestNewDocumentIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewDocumentID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

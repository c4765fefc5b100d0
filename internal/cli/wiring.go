package cli

import (
	"fmt"
	"time"

	"docqa/config"
	"docqa/internal/adapter/cache"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/memstore"
	"docqa/internal/adapter/store"
	"docqa/internal/logging"
	"docqa/internal/metrics"
	"docqa/internal/port"
	"docqa/internal/usecase"
)

// pipeline bundles everything a command needs to ingest and answer.
type pipeline struct {
	useCase   *usecase.RetrievalUseCase
	documents *memstore.DocumentStore
	backend   *store.BoltIndexStore
	metrics   *metrics.PrometheusObserver
	logger    *logging.Logger
}

type pipelineOptions struct {
	// requireStore fails when store.path is not configured.
	requireStore bool
	// withGenerator builds the answer generator; context-only runs skip it.
	withGenerator bool
	// memoryOnly keeps indexes out of the persistent store.
	memoryOnly bool
}

func buildPipeline(cfg *config.Config, opts pipelineOptions) (*pipeline, error) {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	observer := metrics.NewPrometheusObserver()

	wc, err := chunker.NewWordChunker(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(cfg, observer)
	if err != nil {
		return nil, err
	}

	p := &pipeline{metrics: observer, logger: logger}

	var generator port.Generator
	if opts.withGenerator {
		generator, err = buildGenerator(cfg)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Store.Path == "" && opts.requireStore {
		return nil, fmt.Errorf("store.path is not configured (set it in docqa.yaml or DOCQA_STORE_PATH)")
	}

	storeOpts := memstore.Options{
		MaxDocuments: cfg.Store.MaxDocuments,
		TTL:          cfg.StoreTTL(),
		OnEvict: func(id string, reason memstore.EvictReason) {
			logger.LogEviction(id, string(reason))
		},
	}
	if cfg.Store.Path != "" && !opts.memoryOnly {
		p.backend, err = store.NewBoltIndexStore(cfg.Store.Path, embedder.ModelName())
		if err != nil {
			return nil, fmt.Errorf("failed to open index store: %w", err)
		}
		storeOpts.Backend = p.backend
	}
	p.documents = memstore.NewDocumentStore(storeOpts)

	queryEmbedder := port.Embedder(embedder)
	if cfg.Cache.Enabled {
		qc := cache.NewQueryCache(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
		observer.WatchQueryCache(qc)
		queryEmbedder = cache.NewCachedEmbedder(embedder, qc)
	}

	p.useCase = usecase.NewRetrievalUseCase(wc, embedder, p.documents, usecase.RetrievalOptions{
		TopK:             cfg.Retrieve.TopK,
		BuildConcurrency: cfg.Retrieve.BuildConcurrency,
		QueryEmbedder:    queryEmbedder,
		Generator:        generator,
		Logger:           logger,
		Metrics:          observer,
	})
	return p, nil
}

func (p *pipeline) Close() error {
	if p.backend != nil {
		return p.backend.Close()
	}
	return nil
}

func buildEmbedder(cfg *config.Config, observer port.MetricsObserver) (port.Embedder, error) {
	var inner port.Embedder
	switch cfg.Embedding.Provider {
	case "openai", "":
		e, err := embedding.NewOpenAICompatibleEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		inner = e
	case "mock", "hash":
		inner = embedding.NewHashEmbedder(cfg.Embedding.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}

	model := inner.ModelName()
	return embedding.NewResilient(inner, embedding.ResilientOptions{
		Timeout:    cfg.EmbeddingTimeout(),
		MaxRetries: cfg.Embedding.MaxRetries,
		RateLimit:  cfg.Embedding.RateLimit,
		Observe: func(d time.Duration, err error) {
			observer.OnProviderCall(model, "embed", d, err)
		},
	}), nil
}

func buildGenerator(cfg *config.Config) (port.Generator, error) {
	switch cfg.Generation.Provider {
	case "openai", "":
		g, err := llm.NewOpenAIGenerator(llm.GeneratorOptions{
			APIKeyEnv:   cfg.Generation.APIKeyEnv,
			Model:       cfg.Generation.Model,
			BaseURL:     cfg.Generation.BaseURL,
			Timeout:     cfg.GenerationTimeout(),
			Temperature: cfg.Generation.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
		return g, nil
	case "echo", "mock":
		return llm.NewEchoGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Generation.Provider)
	}
}

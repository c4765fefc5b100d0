package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"docqa/internal/adapter/index"
	"docqa/internal/domain"
	"docqa/internal/port"
)

const DefaultMaxDocuments = 256

// EvictReason says why an index left memory.
type EvictReason string

const (
	EvictCapacity EvictReason = "capacity"
	EvictExpired  EvictReason = "expired"
)

type Options struct {
	MaxDocuments int
	// TTL counts from the last Put or backend reload. Zero disables expiry.
	TTL     time.Duration
	Backend port.IndexBackend
	// OnEvict runs with the resident set locked; it must not call back into the store.
	OnEvict func(id string, reason EvictReason)
}

// DocumentStore keeps one immutable embedding index per document id.
// Entries are replaced whole, so readers see either the old or the new index.
type DocumentStore struct {
	resident *expirable.LRU[string, residentIndex]

	// mu serializes writes and orders backend reloads against them.
	mu      sync.Mutex
	version uint64

	// ids being removed by Delete; their eviction is not reported.
	dropping sync.Map
	opts     Options
}

type residentIndex struct {
	idx      *index.EmbeddingIndex
	storedAt time.Time
}

func NewDocumentStore(opts Options) *DocumentStore {
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = DefaultMaxDocuments
	}
	s := &DocumentStore{opts: opts}
	s.resident = expirable.NewLRU[string, residentIndex](opts.MaxDocuments, s.evicted, opts.TTL)
	return s
}

func (s *DocumentStore) Get(ctx context.Context, id string) (*index.EmbeddingIndex, error) {
	if id == "" {
		return nil, domain.ErrMissingField
	}
	if r, ok := s.resident.Get(id); ok {
		return r.idx, nil
	}

	if s.opts.Backend == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	seen := s.version
	s.mu.Unlock()

	idx, err := s.load(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.resident.Get(id); ok {
		return r.idx, nil
	}
	if s.version != seen {
		// A write landed while loading; the backend holds its result.
		if idx, err = s.load(id); err != nil {
			return nil, err
		}
	}
	s.resident.Add(id, residentIndex{idx: idx, storedAt: time.Now()})
	return idx, nil
}

// Put stores idx under id, replacing any previous index. With a backend
// configured the index is written through before it becomes visible.
func (s *DocumentStore) Put(ctx context.Context, id string, idx *index.EmbeddingIndex) error {
	if id == "" {
		return domain.ErrMissingField
	}
	if idx.Len() == 0 {
		return domain.ErrEmptyIndex
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.Backend != nil {
		if err := s.opts.Backend.SaveIndex(id, idx); err != nil {
			return fmt.Errorf("%w: save %s: %w", domain.ErrStorage, id, err)
		}
	}
	s.version++
	s.resident.Add(id, residentIndex{idx: idx, storedAt: time.Now()})
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	s.dropping.Store(id, struct{}{})
	s.resident.Remove(id)
	s.dropping.Delete(id)

	if s.opts.Backend != nil {
		if err := s.opts.Backend.DeleteIndex(id); err != nil {
			return fmt.Errorf("%w: delete %s: %w", domain.ErrStorage, id, err)
		}
	}
	return nil
}

// Len counts unexpired documents resident in memory.
func (s *DocumentStore) Len() int {
	return len(s.resident.Keys())
}

func (s *DocumentStore) load(id string) (*index.EmbeddingIndex, error) {
	idx, err := s.opts.Backend.LoadIndex(id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load %s: %w", domain.ErrStorage, id, err)
	}
	return idx, nil
}

func (s *DocumentStore) evicted(id string, r residentIndex) {
	if s.opts.OnEvict == nil {
		return
	}
	if _, ok := s.dropping.Load(id); ok {
		return
	}
	reason := EvictCapacity
	if s.opts.TTL > 0 && time.Since(r.storedAt) >= s.opts.TTL {
		reason = EvictExpired
	}
	s.opts.OnEvict(id, reason)
}

var _ port.DocumentStore = (*DocumentStore)(nil)

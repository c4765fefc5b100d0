package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"

	"docqa/internal/adapter/index"
	"docqa/internal/domain"
	"docqa/internal/port"
)

var (
	bucketIndexes = []byte("indexes")
	bucketDocs    = []byte("docs")
	bucketMeta    = []byte("meta")
)

// BoltIndexStore persists embedding indexes in a bbolt file. Index snapshots
// are stored as zstd-compressed JSON.
type BoltIndexStore struct {
	db      *bbolt.DB
	model   string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewBoltIndexStore opens (or creates) the database at path for indexes built
// with the given embedding model. Stored indexes from another model are dropped.
func NewBoltIndexStore(path, model string) (*BoltIndexStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketIndexes, bucketDocs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	s := &BoltIndexStore{db: db, model: model, encoder: encoder, decoder: decoder}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltIndexStore) Model() string {
	return s.model
}

func (s *BoltIndexStore) SaveIndex(id string, idx *index.EmbeddingIndex) error {
	if idx.Len() == 0 {
		return domain.ErrEmptyIndex
	}
	if idx.Model() != s.model {
		return fmt.Errorf("%w: index built with %q, store holds %q", domain.ErrModelMismatch, idx.Model(), s.model)
	}

	raw, err := json.Marshal(idx.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode index %s: %w", id, err)
	}
	blob := s.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	info, err := json.Marshal(idx.Describe(id))
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketIndexes).Put([]byte(id), blob); err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Put([]byte(id), info)
	})
}

func (s *BoltIndexStore) LoadIndex(id string) (*index.EmbeddingIndex, error) {
	var blob []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketIndexes).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
		}
		blob = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress index %s: %w", id, err)
	}
	var snap index.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode index %s: %w", id, err)
	}
	return index.FromSnapshot(snap)
}

func (s *BoltIndexStore) DeleteIndex(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketIndexes).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Delete([]byte(id))
	})
}

// ListDocuments returns stored documents, oldest first.
func (s *BoltIndexStore) ListDocuments() ([]domain.DocumentInfo, error) {
	var docs []domain.DocumentInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var info domain.DocumentInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return fmt.Errorf("failed to decode document %s: %w", k, err)
			}
			docs = append(docs, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].IngestedAt.Equal(docs[j].IngestedAt) {
			return docs[i].IngestedAt.Before(docs[j].IngestedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (s *BoltIndexStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketIndexes).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltIndexStore) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

var _ port.IndexBackend = (*BoltIndexStore)(nil)

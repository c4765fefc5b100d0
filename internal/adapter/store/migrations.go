package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is bumped on breaking changes to the stored format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyModel         = []byte("embedding_model")
)

// SchemaInfo is what the meta bucket records about the stored indexes.
type SchemaInfo struct {
	Version int    `json:"version"`
	Model   string `json:"model"`
}

func (s *BoltIndexStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				return fmt.Errorf("corrupt schema version: %w", err)
			}
		}
		if data := b.Get(keyModel); data != nil {
			info.Model = string(data)
		}
		return nil
	})
	return &info, err
}

func (s *BoltIndexStore) setSchemaInfo(tx *bbolt.Tx, info SchemaInfo) error {
	b := tx.Bucket(bucketMeta)
	data, err := json.Marshal(info.Version)
	if err != nil {
		return err
	}
	if err := b.Put(keySchemaVersion, data); err != nil {
		return err
	}
	return b.Put(keyModel, []byte(info.Model))
}

// MigrationResult describes what Migrate found.
type MigrationResult struct {
	NeedsMigration bool
	NeedsReset     bool
	OldVersion     int
	OldModel       string
	Reason         string
}

func (s *BoltIndexStore) CheckMigration() (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{OldVersion: info.Version, OldModel: info.Model}
	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version > CurrentSchemaVersion:
		result.NeedsReset = true
		result.Reason = fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	}

	// Vectors from different models live in different spaces.
	if info.Model != "" && info.Model != s.model {
		result.NeedsReset = true
		result.Reason = fmt.Sprintf("embedding model changed from %q to %q", info.Model, s.model)
	}
	return result, nil
}

// Migrate brings the database to the current schema, clearing stored
// indexes when they cannot be reused.
func (s *BoltIndexStore) Migrate() error {
	result, err := s.CheckMigration()
	if err != nil {
		return err
	}
	if !result.NeedsMigration && !result.NeedsReset {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if result.NeedsReset {
			if err := clearBuckets(tx, bucketIndexes, bucketDocs); err != nil {
				return err
			}
		}
		return s.setSchemaInfo(tx, SchemaInfo{Version: CurrentSchemaVersion, Model: s.model})
	})
}

// Clear removes every stored index, keeping the schema info.
func (s *BoltIndexStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return clearBuckets(tx, bucketIndexes, bucketDocs)
	})
}

func clearBuckets(tx *bbolt.Tx, names ...[]byte) error {
	for _, name := range names {
		if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		if _, err := tx.CreateBucket(name); err != nil {
			return err
		}
	}
	return nil
}

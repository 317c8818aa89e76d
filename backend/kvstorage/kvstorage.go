// Package kvstorage stores backend documents in a NATS JetStream KeyValue bucket.
//
// Each document is one key (its id) holding a JSON record. Listing a table
// reads every key of the bucket, which is fine for the demo-sized data sets
// the backend serves.
package kvstorage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/livesub/backend"
	"github.com/arloliu/livesub/internal/kvutil"
	"github.com/arloliu/livesub/internal/logger"
	"github.com/arloliu/livesub/types"
)

// Storage is a backend.Storage over a JetStream KV bucket.
type Storage struct {
	kv     jetstream.KeyValue
	logger types.Logger
}

var _ backend.Storage = (*Storage)(nil)

// record is the stored form of a document.
type record struct {
	ID           string         `json:"id"`
	Table        string         `json:"table"`
	CreationTime int64          `json:"creationTime"`
	Fields       map[string]any `json:"fields"`
}

// New opens (creating if needed) the bucket and returns a Storage over it.
//
// Parameters:
//   - ctx: Context for bucket creation
//   - js: JetStream context
//   - bucket: Bucket name (backend.Config.StorageBucket)
//   - l: Logger; nil disables logging
//
// Returns:
//   - *Storage: Storage ready for use
//   - error: Bucket creation error
func New(ctx context.Context, js jetstream.JetStream, bucket string, l types.Logger) (*Storage, error) {
	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "livesub backend documents",
		History:     1,
	}, 3)
	if err != nil {
		return nil, err
	}

	return &Storage{kv: kv, logger: logger.OrNop(l)}, nil
}

// Put implements backend.Storage.
func (s *Storage) Put(ctx context.Context, doc backend.Document) error {
	data, err := json.Marshal(record{
		ID:           doc.ID,
		Table:        doc.Table,
		CreationTime: doc.CreationTime,
		Fields:       doc.Fields,
	})
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
	}

	if _, err := s.kv.Put(ctx, doc.ID, data); err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
	}

	return nil
}

// Get implements backend.Storage.
func (s *Storage) Get(ctx context.Context, id string) (backend.Document, bool, error) {
	data, err := kvutil.GetOrNil(ctx, s.kv, id)
	if err != nil || data == nil {
		return backend.Document{}, false, err
	}

	doc, err := decode(data)
	if err != nil {
		return backend.Document{}, false, err
	}

	return doc, true, nil
}

// Delete implements backend.Storage.
func (s *Storage) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	return nil
}

// List implements backend.Storage.
func (s *Storage) List(ctx context.Context, table string) ([]backend.Document, error) {
	keys, err := kvutil.Keys(ctx, s.kv)
	if err != nil {
		return nil, err
	}

	var out []backend.Document
	for _, key := range keys {
		data, err := kvutil.GetOrNil(ctx, s.kv, key)
		if err != nil {
			return nil, err
		}
		if data == nil {
			// Deleted between listing and reading.
			continue
		}

		doc, err := decode(data)
		if err != nil {
			s.logger.Warn("skipping undecodable document", "key", key, "error", err)
			continue
		}
		if doc.Table == table {
			out = append(out, doc)
		}
	}
	backend.SortDocuments(out)

	return out, nil
}

func decode(data []byte) (backend.Document, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return backend.Document{}, fmt.Errorf("failed to decode document: %w", err)
	}
	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}

	return backend.Document{
		ID:           rec.ID,
		Table:        rec.Table,
		CreationTime: rec.CreationTime,
		Fields:       rec.Fields,
	}, nil
}

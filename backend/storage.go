package backend

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Document is one stored record.
//
// Documents encode as a flat JSON object holding the fields plus "_id" and
// "_creationTime".
type Document struct {
	ID           string
	Table        string
	CreationTime int64
	Fields       map[string]any
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+2)
	maps.Copy(out, d.Fields)
	out["_id"] = d.ID
	out["_creationTime"] = d.CreationTime

	return json.Marshal(out)
}

// Clone returns a copy with its own top-level field map.
func (d Document) Clone() Document {
	d.Fields = maps.Clone(d.Fields)
	if d.Fields == nil {
		d.Fields = map[string]any{}
	}

	return d
}

// Storage persists documents.
//
// Implementations must be safe for concurrent use. List returns the documents
// of a table ordered by id.
type Storage interface {
	Put(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (Document, bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, table string) ([]Document, error)
}

// MemoryStorage is a Storage kept in process memory.
type MemoryStorage struct {
	mu   sync.RWMutex
	docs map[string]Document
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{docs: make(map[string]Document)}
}

// Put implements Storage.
func (m *MemoryStorage) Put(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[doc.ID] = doc.Clone()

	return nil
}

// Get implements Storage.
func (m *MemoryStorage) Get(_ context.Context, id string) (Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return Document{}, false, nil
	}

	return doc.Clone(), true, nil
}

// Delete implements Storage.
func (m *MemoryStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, id)

	return nil
}

// List implements Storage.
func (m *MemoryStorage) List(_ context.Context, table string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for _, doc := range m.docs {
		if doc.Table == table {
			out = append(out, doc.Clone())
		}
	}
	SortDocuments(out)

	return out, nil
}

// SortDocuments orders docs by id.
func SortDocuments(docs []Document) {
	slices.SortFunc(docs, func(a, b Document) int { return strings.Compare(a.ID, b.ID) })
}

package backend

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Reader is the read side of the database, handed to queries.
//
// A Reader belongs to one query evaluation, or to one live subscription across
// its evaluations; it carries the subscription's pagination pin.
type Reader struct {
	store Storage
	cfg   *Config
	pin   *pin
}

// DB is the read-write database handed to mutations.
type DB struct {
	Reader
	now func() time.Time
}

func newDB(store Storage, cfg *Config) *DB {
	return &DB{Reader: Reader{store: store, cfg: cfg, pin: &pin{}}, now: time.Now}
}

// reader returns a Reader sharing db's storage with its own pin.
func (db *DB) reader(p *pin) *Reader {
	return &Reader{store: db.store, cfg: db.cfg, pin: p}
}

// Get returns the document with id, or false when it does not exist.
func (r *Reader) Get(ctx context.Context, id string) (Document, bool, error) {
	doc, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return Document{}, false, fmt.Errorf("failed to get document %s: %w", id, err)
	}

	return doc, ok, nil
}

// Collect returns every document of table ordered by id.
func (r *Reader) Collect(ctx context.Context, table string) ([]Document, error) {
	docs, err := r.store.List(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list table %s: %w", table, err)
	}

	return docs, nil
}

// Insert stores fields as a new document of table and returns its id.
//
// Ids are ULIDs: they sort in creation order, which makes them usable as
// pagination cursors.
func (db *DB) Insert(ctx context.Context, table string, fields map[string]any) (string, error) {
	if table == "" || strings.ContainsAny(table, ". ") {
		return "", fmt.Errorf("invalid table name %q", table)
	}

	now := db.now()
	doc := Document{
		ID:           ulid.Make().String(),
		Table:        table,
		CreationTime: now.UnixMilli(),
		Fields:       stripSystemFields(fields),
	}
	if err := db.store.Put(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	return doc.ID, nil
}

// Patch merges fields into the document with id.
func (db *DB) Patch(ctx context.Context, id string, fields map[string]any) error {
	doc, ok, err := db.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}

	maps.Copy(doc.Fields, stripSystemFields(fields))
	if err := db.store.Put(ctx, doc); err != nil {
		return fmt.Errorf("failed to patch document %s: %w", id, err)
	}

	return nil
}

// Delete removes the document with id.
func (db *DB) Delete(ctx context.Context, id string) error {
	_, ok, err := db.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}

	if err := db.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	return nil
}

func stripSystemFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = v
	}

	return out
}

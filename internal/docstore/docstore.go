// Package docstore is the client-side contract of the remote document
// store: keyed JSON documents grouped into collections, single-document
// CRUD with merge semantics, atomic multi-document batches, and continuous
// subscriptions that deliver full snapshots on every change.
//
// Two implementations exist: InMemory (tests, offline use) and Postgres
// (JSONB documents with LISTEN/NOTIFY change streams).
package docstore

import "context"

// Document is one stored document: its id and the raw JSON payload.
type Document struct {
	ID   string
	Data []byte
}

// Query selects documents of one collection, optionally filtered to one
// owner and ordered by a top-level field on the server.
type Query struct {
	Collection string
	Owner      string
	OrderBy    string
	Descending bool
}

// OpKind discriminates batch operations.
type OpKind int

const (
	OpSet OpKind = iota
	OpUpdate
	OpDelete
)

// Op is one element of an atomic batch.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       any            // OpSet: the document value
	Merge      bool           // OpSet: merge instead of replace
	Fields     map[string]any // OpUpdate: partial top-level fields
}

// DocSnapshot is one emitted state of a subscribed single document.
// Exists is false when the document is absent or has been deleted.
type DocSnapshot struct {
	Exists bool
	Doc    Document
}

// Store is the remote document store surface consumed by the sync layer.
// All failures are classified; see Classify.
type Store interface {
	// Get returns a single document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// List returns the documents matching q, in query order.
	List(ctx context.Context, q Query) ([]Document, error)

	// Set writes a full document. With merge=true existing top-level
	// fields not present in value are preserved.
	Set(ctx context.Context, collection, id string, value any, merge bool) error

	// Update patches top-level fields of an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Batch applies all ops atomically: either every op is applied or none.
	Batch(ctx context.Context, ops []Op) error

	// SubscribeCollection opens a continuous subscription delivering the
	// full matching document set on every change, starting with the
	// current state. An ordered query may fail with ErrMissingIndex; the
	// caller is expected to retry unordered and sort itself.
	SubscribeCollection(ctx context.Context, q Query) (*CollectionSub, error)

	// SubscribeDocument opens a continuous subscription on one document.
	SubscribeDocument(ctx context.Context, collection, id string) (*DocumentSub, error)

	// Close tears down subscriptions and releases resources.
	Close()
}

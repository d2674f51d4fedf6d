package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// InMemory is a complete in-process Store. It backs tests and offline runs
// and mirrors the remote contract exactly, including ordered-query
// failures (FailOrdered) so the client-side sort fallback can be exercised.
type InMemory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	colSubs     map[*CollectionSub]Query
	docSubs     map[*DocumentSub][2]string
	closed      bool

	// FailOrdered makes SubscribeCollection and List reject ordered
	// queries with ErrMissingIndex, simulating an absent server index.
	FailOrdered bool
}

// NewInMemory returns an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		collections: make(map[string]map[string]map[string]any),
		colSubs:     make(map[*CollectionSub]Query),
		docSubs:     make(map[*DocumentSub][2]string),
	}
}

// normalize round-trips a value through JSON so stored documents have the
// same field types a remote snapshot would deliver.
func normalize(value any) (map[string]any, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	return m, nil
}

func (s *InMemory) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Document{}, ErrClosed
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return encodeDoc(id, doc), nil
}

func (s *InMemory) List(ctx context.Context, q Query) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if q.OrderBy != "" && s.FailOrdered {
		return nil, ErrMissingIndex
	}
	return s.listLocked(q), nil
}

func (s *InMemory) Set(ctx context.Context, collection, id string, value any, merge bool) error {
	return s.Batch(ctx, []Op{{Kind: OpSet, Collection: collection, ID: id, Data: value, Merge: merge}})
}

func (s *InMemory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.Batch(ctx, []Op{{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields}})
}

func (s *InMemory) Delete(ctx context.Context, collection, id string) error {
	return s.Batch(ctx, []Op{{Kind: OpDelete, Collection: collection, ID: id}})
}

// Batch applies every op under one lock: all or nothing. Subscribers of
// touched collections get exactly one snapshot for the whole batch.
func (s *InMemory) Batch(ctx context.Context, ops []Op) error {
	// Normalize payloads before taking the lock so a bad op leaves the
	// store untouched.
	normalized := make([]map[string]any, len(ops))
	for i, op := range ops {
		switch op.Kind {
		case OpSet:
			m, err := normalize(op.Data)
			if err != nil {
				return err
			}
			normalized[i] = m
		case OpUpdate:
			m, err := normalize(op.Fields)
			if err != nil {
				return err
			}
			normalized[i] = m
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	// Validate update targets first so a failing op leaves the batch
	// entirely unapplied.
	setInBatch := make(map[string]struct{})
	for _, op := range ops {
		key := op.Collection + "/" + op.ID
		switch op.Kind {
		case OpSet:
			setInBatch[key] = struct{}{}
		case OpUpdate:
			if _, ok := s.collections[op.Collection][op.ID]; ok {
				continue
			}
			if _, ok := setInBatch[key]; ok {
				continue
			}
			s.mu.Unlock()
			return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, ErrNotFound)
		}
	}

	for i, op := range ops {
		col := s.collections[op.Collection]
		if col == nil {
			col = make(map[string]map[string]any)
			s.collections[op.Collection] = col
		}
		switch op.Kind {
		case OpSet:
			if op.Merge {
				if existing, ok := col[op.ID]; ok {
					merged := make(map[string]any, len(existing)+len(normalized[i]))
					for k, v := range existing {
						merged[k] = v
					}
					for k, v := range normalized[i] {
						merged[k] = v
					}
					col[op.ID] = merged
					continue
				}
			}
			col[op.ID] = normalized[i]
		case OpUpdate:
			existing := col[op.ID]
			if existing == nil {
				existing = make(map[string]any)
				col[op.ID] = existing
			}
			for k, v := range normalized[i] {
				existing[k] = v
			}
		case OpDelete:
			delete(col, op.ID)
		}
	}

	touched := make(map[string]struct{})
	for _, op := range ops {
		touched[op.Collection] = struct{}{}
	}
	s.notifyLocked(touched, ops)
	s.mu.Unlock()
	return nil
}

func (s *InMemory) SubscribeCollection(ctx context.Context, q Query) (*CollectionSub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if q.OrderBy != "" && s.FailOrdered {
		return nil, ErrMissingIndex
	}

	cs := &CollectionSub{}
	cs.inner = newSub[[]Document](func() {
		s.mu.Lock()
		delete(s.colSubs, cs)
		s.mu.Unlock()
	})
	s.colSubs[cs] = q
	cs.inner.publish(s.listLocked(q))
	return cs, nil
}

func (s *InMemory) SubscribeDocument(ctx context.Context, collection, id string) (*DocumentSub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	ds := &DocumentSub{}
	ds.inner = newSub[DocSnapshot](func() {
		s.mu.Lock()
		delete(s.docSubs, ds)
		s.mu.Unlock()
	})
	s.docSubs[ds] = [2]string{collection, id}
	ds.inner.publish(s.docSnapshotLocked(collection, id))
	return ds, nil
}

func (s *InMemory) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	colSubs := make([]*CollectionSub, 0, len(s.colSubs))
	for cs := range s.colSubs {
		colSubs = append(colSubs, cs)
	}
	docSubs := make([]*DocumentSub, 0, len(s.docSubs))
	for ds := range s.docSubs {
		docSubs = append(docSubs, ds)
	}
	s.mu.Unlock()

	for _, cs := range colSubs {
		cs.Close()
	}
	for _, ds := range docSubs {
		ds.Close()
	}
}

func (s *InMemory) listLocked(q Query) []Document {
	col := s.collections[q.Collection]
	ids := make([]string, 0, len(col))
	for id, doc := range col {
		if q.Owner != "" {
			owner, _ := doc["owner"].(string)
			if owner != q.Owner {
				continue
			}
		}
		ids = append(ids, id)
	}
	sort.Strings(ids) // stable base order before any field sort

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, encodeDoc(id, col[id]))
	}
	if q.OrderBy != "" {
		fields := make(map[string]any, len(docs))
		for _, id := range ids {
			fields[id] = col[id][q.OrderBy]
		}
		sort.SliceStable(docs, func(i, j int) bool {
			c := compareValues(fields[docs[i].ID], fields[docs[j].ID])
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	return docs
}

func (s *InMemory) docSnapshotLocked(collection, id string) DocSnapshot {
	doc, ok := s.collections[collection][id]
	if !ok {
		return DocSnapshot{Exists: false, Doc: Document{ID: id}}
	}
	return DocSnapshot{Exists: true, Doc: encodeDoc(id, doc)}
}

func (s *InMemory) notifyLocked(collections map[string]struct{}, ops []Op) {
	for cs, q := range s.colSubs {
		if _, ok := collections[q.Collection]; ok {
			cs.inner.publish(s.listLocked(q))
		}
	}
	for ds, key := range s.docSubs {
		for _, op := range ops {
			if op.Collection == key[0] && op.ID == key[1] {
				ds.inner.publish(s.docSnapshotLocked(key[0], key[1]))
				break
			}
		}
	}
}

func encodeDoc(id string, m map[string]any) Document {
	b, _ := json.Marshal(m)
	return Document{ID: id, Data: b}
}

// compareValues orders snapshot field values the way the server would:
// nil first, then numbers, strings and booleans by natural order.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case !av && bv:
				return -1
			case av && !bv:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

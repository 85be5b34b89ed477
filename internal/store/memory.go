package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps documents in process. Batches are applied under a single
// lock and notifications fire synchronously after commit.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]map[string]map[string]any
	notifier Notifier
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]map[string]map[string]any),
		notifier: NewLocalNotifier(),
	}
}

// Get returns a copy of a document.
func (m *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields, ok := m.data[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return Document{ID: id, Fields: cloneFields(fields)}, nil
}

// List returns copies of every document in a collection ordered by id.
func (m *MemoryStore) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]Document, 0, len(m.data[collection]))
	for id, fields := range m.data[collection] {
		docs = append(docs, Document{ID: id, Fields: cloneFields(fields)})
	}
	sortDocuments(docs)
	return docs, nil
}

type stagedKey struct {
	collection string
	id         string
}

type stagedDoc struct {
	fields  map[string]any
	deleted bool
}

// Apply commits the batch atomically.
func (m *MemoryStore) Apply(ctx context.Context, batch Batch) error {
	if len(batch) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	staged := make(map[stagedKey]stagedDoc, len(batch))
	order := make([]stagedKey, 0, len(batch))
	current := func(key stagedKey) (map[string]any, bool) {
		if doc, ok := staged[key]; ok {
			return doc.fields, !doc.deleted
		}
		fields, ok := m.data[key.collection][key.id]
		return fields, ok
	}
	stage := func(key stagedKey, doc stagedDoc) {
		if _, ok := staged[key]; !ok {
			order = append(order, key)
		}
		staged[key] = doc
	}

	applied := make(Batch, 0, len(batch))
	for _, w := range batch {
		if err := w.validate(); err != nil {
			m.mu.Unlock()
			return err
		}
		key := stagedKey{collection: w.Collection, id: w.ID}
		existing, exists := current(key)
		switch w.Op {
		case OpSet:
			fields, err := normalize(w.Fields)
			if err != nil {
				m.mu.Unlock()
				return err
			}
			stage(key, stagedDoc{fields: fields})
		case OpMerge:
			if !exists {
				if w.IfExists {
					continue
				}
				m.mu.Unlock()
				return fmt.Errorf("%s/%s: %w", w.Collection, w.ID, ErrNotFound)
			}
			patch, err := normalizePatch(w.Fields)
			if err != nil {
				m.mu.Unlock()
				return err
			}
			stage(key, stagedDoc{fields: mergeFields(existing, patch)})
		case OpDelete:
			if !exists {
				if w.IfExists {
					continue
				}
				m.mu.Unlock()
				return fmt.Errorf("%s/%s: %w", w.Collection, w.ID, ErrNotFound)
			}
			stage(key, stagedDoc{deleted: true})
		}
		applied = append(applied, w)
	}

	for _, key := range order {
		doc := staged[key]
		if doc.deleted {
			delete(m.data[key.collection], key.id)
			continue
		}
		if m.data[key.collection] == nil {
			m.data[key.collection] = make(map[string]map[string]any)
		}
		m.data[key.collection][key.id] = doc.fields
	}
	m.mu.Unlock()

	for _, change := range changesFor(applied) {
		_ = m.notifier.Publish(ctx, change)
	}
	return nil
}

// Subscribe registers a change handler for a collection.
func (m *MemoryStore) Subscribe(collection string, handler ChangeHandler) func() {
	return m.notifier.Subscribe(collection, handler)
}

// normalizePatch keeps explicit nils so they remove fields during merge.
func normalizePatch(patch map[string]any) (map[string]any, error) {
	values := make(map[string]any, len(patch))
	removals := []string{}
	for k, v := range patch {
		if v == nil {
			removals = append(removals, k)
			continue
		}
		values[k] = v
	}
	out, err := normalize(values)
	if err != nil {
		return nil, err
	}
	for _, k := range removals {
		out[k] = nil
	}
	return out, nil
}

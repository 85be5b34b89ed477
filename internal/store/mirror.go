package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DashboardCollections are the collections kept live for dashboard views.
var DashboardCollections = []string{
	CollectionTasks,
	CollectionClients,
	CollectionStrategyClients,
	CollectionEmployees,
}

// Mirror keeps an in-memory copy of selected collections. Each change
// notification reloads the whole collection and swaps it in atomically.
// Refreshes of one collection are serialized, so a slower load never
// replaces a newer one. Reads of other collections and all writes go to the
// source store.
type Mirror struct {
	source    Store
	logger    *zap.Logger
	watched   map[string]bool
	refreshMu map[string]*sync.Mutex
	notifier  Notifier

	mu      sync.RWMutex
	docs    map[string][]Document
	index   map[string]map[string]int
	cancels []func()
}

// NewMirror creates a mirror over the named collections.
func NewMirror(source Store, logger *zap.Logger, collections ...string) *Mirror {
	watched := make(map[string]bool, len(collections))
	refreshMu := make(map[string]*sync.Mutex, len(collections))
	for _, c := range collections {
		watched[c] = true
		refreshMu[c] = &sync.Mutex{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{
		source:    source,
		logger:    logger,
		watched:   watched,
		refreshMu: refreshMu,
		notifier:  NewLocalNotifier(),
		docs:      make(map[string][]Document),
		index:     make(map[string]map[string]int),
	}
}

// Start loads every watched collection and subscribes to its changes.
func (m *Mirror) Start(ctx context.Context) error {
	for collection := range m.watched {
		c := collection
		cancel := m.source.Subscribe(c, func(change Change) {
			refreshCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := m.refresh(refreshCtx, c); err != nil {
				m.logger.Error("mirror refresh failed", zap.String("collection", c), zap.Error(err))
				return
			}
			_ = m.notifier.Publish(refreshCtx, change)
		})
		m.mu.Lock()
		m.cancels = append(m.cancels, cancel)
		m.mu.Unlock()

		if err := m.refresh(ctx, c); err != nil {
			return fmt.Errorf("load %s: %w", c, err)
		}
	}
	return nil
}

// Stop unsubscribes from the source.
func (m *Mirror) Stop() {
	m.mu.Lock()
	cancels := m.cancels
	m.cancels = nil
	m.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// refresh holds the collection's refresh lock across the load and the swap.
// Every notification arrives after its write committed, so the load that
// runs last observes every committed write.
func (m *Mirror) refresh(ctx context.Context, collection string) error {
	lock := m.refreshMu[collection]
	lock.Lock()
	defer lock.Unlock()

	docs, err := m.source.List(ctx, collection)
	if err != nil {
		return err
	}
	idx := make(map[string]int, len(docs))
	for i, d := range docs {
		idx[d.ID] = i
	}
	m.mu.Lock()
	m.docs[collection] = docs
	m.index[collection] = idx
	m.mu.Unlock()
	return nil
}

// Get serves watched collections from memory.
func (m *Mirror) Get(ctx context.Context, collection, id string) (Document, error) {
	if !m.watched[collection] {
		return m.source.Get(ctx, collection, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	d := m.docs[collection][i]
	return Document{ID: d.ID, Fields: cloneFields(d.Fields)}, nil
}

// List serves watched collections from memory.
func (m *Mirror) List(ctx context.Context, collection string) ([]Document, error) {
	if !m.watched[collection] {
		return m.source.List(ctx, collection)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.docs[collection]
	out := make([]Document, len(src))
	for i, d := range src {
		out[i] = Document{ID: d.ID, Fields: cloneFields(d.Fields)}
	}
	return out, nil
}

// Apply writes through to the source.
func (m *Mirror) Apply(ctx context.Context, batch Batch) error {
	return m.source.Apply(ctx, batch)
}

// Subscribe delivers changes of watched collections after the mirror has
// been refreshed, so handlers observe the new state.
func (m *Mirror) Subscribe(collection string, handler ChangeHandler) func() {
	if !m.watched[collection] {
		return m.source.Subscribe(collection, handler)
	}
	return m.notifier.Subscribe(collection, handler)
}

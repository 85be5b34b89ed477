// Package store is the document store adapter. Records are flat key/value
// documents grouped in collections; every committed batch produces change
// notifications per touched collection.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Collection names used by the dashboard.
const (
	CollectionTasks               = "tasks"
	CollectionClients             = "clients"
	CollectionStrategyClients     = "strategyClients"
	CollectionEmployees           = "employees"
	CollectionDeletedAuthAccounts = "deletedAuthAccounts"
	CollectionAuthAccounts        = "authAccounts"
	CollectionPendingOperations   = "pendingOperations"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a single record in a collection.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Op is the kind of a write.
type Op string

const (
	// OpSet replaces the whole document, creating it when missing.
	OpSet Op = "set"
	// OpMerge overwrites the given top-level fields; a nil value removes the field.
	OpMerge Op = "merge"
	// OpDelete removes the document.
	OpDelete Op = "delete"
)

// Write is one keyed mutation of a batch.
type Write struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Op         Op             `json:"op"`
	Fields     map[string]any `json:"fields,omitempty"`
	// IfExists turns a merge or delete of a missing document into a no-op.
	IfExists bool `json:"ifExists,omitempty"`
}

// Batch is applied atomically: either every write lands or none does.
type Batch []Write

// Change describes the documents touched in one collection by a commit.
type Change struct {
	Collection string   `json:"collection"`
	IDs        []string `json:"ids"`
}

// ChangeHandler receives change notifications.
type ChangeHandler func(Change)

// Reader exposes read access to collections.
type Reader interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
}

// Store is the full document store contract.
type Store interface {
	Reader
	Apply(ctx context.Context, batch Batch) error
	Subscribe(collection string, handler ChangeHandler) (cancel func())
}

// Set writes a whole document.
func Set(ctx context.Context, s Store, collection, id string, fields map[string]any) error {
	return s.Apply(ctx, Batch{{Collection: collection, ID: id, Op: OpSet, Fields: fields}})
}

// Merge updates some fields of an existing document.
func Merge(ctx context.Context, s Store, collection, id string, fields map[string]any) error {
	return s.Apply(ctx, Batch{{Collection: collection, ID: id, Op: OpMerge, Fields: fields}})
}

// Delete removes a document.
func Delete(ctx context.Context, s Store, collection, id string) error {
	return s.Apply(ctx, Batch{{Collection: collection, ID: id, Op: OpDelete}})
}

func (w Write) validate() error {
	if w.Collection == "" || w.ID == "" {
		return fmt.Errorf("write requires collection and id")
	}
	switch w.Op {
	case OpSet, OpMerge, OpDelete:
		return nil
	}
	return fmt.Errorf("unknown write op %q", w.Op)
}

// normalize round-trips fields through JSON so every backend stores the same
// generic value shapes (string, float64, bool, map[string]any, []any).
func normalize(fields map[string]any) (map[string]any, error) {
	if fields == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, nil
}

// mergeFields applies patch onto a copy of base.
func mergeFields(base, patch map[string]any) map[string]any {
	out := cloneFields(base)
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return cloneFields(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// changesFor groups the ids of a batch per collection.
func changesFor(batch Batch) []Change {
	byCollection := map[string][]string{}
	order := []string{}
	for _, w := range batch {
		if _, seen := byCollection[w.Collection]; !seen {
			order = append(order, w.Collection)
		}
		byCollection[w.Collection] = append(byCollection[w.Collection], w.ID)
	}
	changes := make([]Change, 0, len(order))
	for _, c := range order {
		changes = append(changes, Change{Collection: c, IDs: byCollection[c]})
	}
	return changes
}

func sortDocuments(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

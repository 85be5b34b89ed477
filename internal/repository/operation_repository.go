package repository

import (
	"context"
	"encoding/base64"
	"sort"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/store"
)

// PendingOperationRepository reads workflow markers left behind by
// interrupted multi-record updates.
type PendingOperationRepository interface {
	List(ctx context.Context) ([]domain.PendingOperation, error)
	RecordFailure(ctx context.Context, id string, attempts int, cause error) error
}

type pendingOperationRepository struct {
	store store.Store
}

// NewPendingOperationRepository instantiates repository.
func NewPendingOperationRepository(s store.Store) PendingOperationRepository {
	return &pendingOperationRepository{store: s}
}

// List returns markers oldest first.
func (r *pendingOperationRepository) List(ctx context.Context) ([]domain.PendingOperation, error) {
	docs, err := r.store.List(ctx, store.CollectionPendingOperations)
	if err != nil {
		return nil, err
	}
	ops := make([]domain.PendingOperation, 0, len(docs))
	for _, doc := range docs {
		ops = append(ops, DecodePendingOperation(doc))
	}
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].CreatedAt.Before(ops[j].CreatedAt) })
	return ops, nil
}

func (r *pendingOperationRepository) RecordFailure(ctx context.Context, id string, attempts int, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return r.store.Apply(ctx, store.Batch{{
		Collection: store.CollectionPendingOperations,
		ID:         id,
		Op:         store.OpMerge,
		Fields:     map[string]any{"attempts": attempts, "lastError": msg},
		IfExists:   true,
	}})
}

// PendingOperationWrite creates the marker document.
func PendingOperationWrite(op domain.PendingOperation) store.Write {
	return store.Write{
		Collection: store.CollectionPendingOperations,
		ID:         op.ID,
		Op:         store.OpSet,
		Fields: map[string]any{
			"kind":      op.Kind,
			"clientId":  op.ClientID,
			"writes":    base64.StdEncoding.EncodeToString(op.Writes),
			"attempts":  op.Attempts,
			"lastError": op.LastError,
			"createdAt": encodeTime(op.CreatedAt),
		},
	}
}

// PendingOperationClearWrite removes the marker; it tolerates a marker that
// was already cleared by a concurrent replay.
func PendingOperationClearWrite(id string) store.Write {
	return store.Write{Collection: store.CollectionPendingOperations, ID: id, Op: store.OpDelete, IfExists: true}
}

// DecodePendingOperation maps a marker document.
func DecodePendingOperation(doc store.Document) domain.PendingOperation {
	f := doc.Fields
	writes, _ := base64.StdEncoding.DecodeString(str(f, "writes"))
	return domain.PendingOperation{
		ID:        doc.ID,
		Kind:      str(f, "kind"),
		ClientID:  str(f, "clientId"),
		Writes:    writes,
		Attempts:  integer(f, "attempts"),
		LastError: str(f, "lastError"),
		CreatedAt: timestamp(f, "createdAt"),
	}
}

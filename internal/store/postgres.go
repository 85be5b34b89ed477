package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore keeps every collection in the documents table. A batch runs
// in one transaction, so writes spanning collections commit together.
type PostgresStore struct {
	pool     *pgxpool.Pool
	notifier Notifier
	logger   *zap.Logger
}

// NewPostgresStore builds the store. A nil notifier falls back to in-process
// delivery.
func NewPostgresStore(pool *pgxpool.Pool, notifier Notifier, logger *zap.Logger) *PostgresStore {
	if notifier == nil {
		notifier = NewLocalNotifier()
	}
	return &PostgresStore{pool: pool, notifier: notifier, logger: logger}
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	const query = `SELECT data FROM documents WHERE collection=$1 AND id=$2`

	var raw []byte
	if err := s.pool.QueryRow(ctx, query, collection, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return Document{}, err
	}
	fields, err := decodeData(raw)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Fields: fields}, nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	const query = `SELECT id, data FROM documents WHERE collection=$1 ORDER BY id`

	rows, err := s.pool.Query(ctx, query, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		fields, err := decodeData(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, Document{ID: id, Fields: fields})
	}
	return result, rows.Err()
}

func (s *PostgresStore) Apply(ctx context.Context, batch Batch) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	applied := make(Batch, 0, len(batch))
	for _, w := range batch {
		if err := w.validate(); err != nil {
			return err
		}
		ok, err := s.applyWrite(ctx, tx, w)
		if err != nil {
			return fmt.Errorf("%s %s/%s: %w", w.Op, w.Collection, w.ID, err)
		}
		if ok {
			applied = append(applied, w)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for _, change := range changesFor(applied) {
		if err := s.notifier.Publish(ctx, change); err != nil {
			s.logger.Warn("change notification failed",
				zap.String("collection", change.Collection), zap.Error(err))
		}
	}
	return nil
}

func (s *PostgresStore) applyWrite(ctx context.Context, tx pgx.Tx, w Write) (bool, error) {
	switch w.Op {
	case OpSet:
		fields, err := normalize(w.Fields)
		if err != nil {
			return false, err
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return false, err
		}
		const upsert = `
        INSERT INTO documents (collection, id, data)
        VALUES ($1,$2,$3::jsonb)
        ON CONFLICT (collection, id) DO UPDATE SET data=EXCLUDED.data, updated_at=NOW()`
		_, err = tx.Exec(ctx, upsert, w.Collection, w.ID, string(raw))
		return err == nil, err

	case OpMerge:
		const lock = `SELECT data FROM documents WHERE collection=$1 AND id=$2 FOR UPDATE`
		var current []byte
		if err := tx.QueryRow(ctx, lock, w.Collection, w.ID).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				if w.IfExists {
					return false, nil
				}
				return false, ErrNotFound
			}
			return false, err
		}
		base, err := decodeData(current)
		if err != nil {
			return false, err
		}
		patch, err := normalizePatch(w.Fields)
		if err != nil {
			return false, err
		}
		raw, err := json.Marshal(mergeFields(base, patch))
		if err != nil {
			return false, err
		}
		const update = `UPDATE documents SET data=$3::jsonb, updated_at=NOW() WHERE collection=$1 AND id=$2`
		_, err = tx.Exec(ctx, update, w.Collection, w.ID, string(raw))
		return err == nil, err

	case OpDelete:
		const del = `DELETE FROM documents WHERE collection=$1 AND id=$2`
		cmd, err := tx.Exec(ctx, del, w.Collection, w.ID)
		if err != nil {
			return false, err
		}
		if cmd.RowsAffected() == 0 {
			if w.IfExists {
				return false, nil
			}
			return false, ErrNotFound
		}
		return true, nil
	}
	return false, fmt.Errorf("unknown write op %q", w.Op)
}

func (s *PostgresStore) Subscribe(collection string, handler ChangeHandler) func() {
	return s.notifier.Subscribe(collection, handler)
}

func decodeData(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}

package store

import (
	"context"
	"testing"
)

type countingRecorder struct {
	ok, failed int
}

func (r *countingRecorder) RecordStoreBatch(err error) {
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func TestInstrumentRecordsBatchOutcomes(t *testing.T) {
	ctx := context.Background()
	recorder := &countingRecorder{}
	s := Instrument(NewMemoryStore(), recorder)

	if err := Set(ctx, s, CollectionTasks, "t1", map[string]any{"taskName": "Reel"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Apply(ctx, Batch{{Collection: CollectionTasks, ID: "t2", Op: "upsert"}}); err == nil {
		t.Fatal("expected invalid op to fail")
	}
	if recorder.ok != 1 || recorder.failed != 1 {
		t.Errorf("unexpected counts ok=%d failed=%d", recorder.ok, recorder.failed)
	}

	if _, err := s.Get(ctx, CollectionTasks, "t1"); err != nil {
		t.Errorf("reads should pass through: %v", err)
	}
	if Instrument(s, nil) != s {
		t.Error("nil recorder should return the store unchanged")
	}
}

package store

import "context"

// BatchRecorder observes batch outcomes.
type BatchRecorder interface {
	RecordStoreBatch(err error)
}

type instrumented struct {
	Store
	recorder BatchRecorder
}

// Instrument wraps s so every Apply is reported to recorder.
func Instrument(s Store, recorder BatchRecorder) Store {
	if recorder == nil {
		return s
	}
	return &instrumented{Store: s, recorder: recorder}
}

func (i *instrumented) Apply(ctx context.Context, batch Batch) error {
	err := i.Store.Apply(ctx, batch)
	i.recorder.RecordStoreBatch(err)
	return err
}

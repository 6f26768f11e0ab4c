package storage

import (
	"context"

	"contractbind/internal/model"
)

// Storage defines a sink for decoded event records.
type Storage interface {
	PutEventBatch(ctx context.Context, events []model.EventRecord) error
}

// ErrorSink receives logs that matched a query but failed to decode.
type ErrorSink interface {
	PutDecodeErrors(ctx context.Context, errs []model.DecodeError) error
}

// Multi fans a batch out to every sink in order and stops at the first
// failure.
type Multi []Storage

func (m Multi) PutEventBatch(ctx context.Context, events []model.EventRecord) error {
	for _, sink := range m {
		if err := sink.PutEventBatch(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

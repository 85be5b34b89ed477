package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Recoverer replays unfinished workflow writes.
type Recoverer interface {
	Recover(ctx context.Context) (int, error)
}

// StartRecoveryWorker replays leftover workflow markers once immediately and
// then every interval until ctx is done. The returned channel closes when the
// worker exits.
func StartRecoveryWorker(ctx context.Context, recoverer Recoverer, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		defer close(done)
		runRecovery(ctx, recoverer, logger)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runRecovery(ctx, recoverer, logger)
			}
		}
	}()
	return done
}

func runRecovery(ctx context.Context, recoverer Recoverer, logger *zap.Logger) {
	replayed, err := recoverer.Recover(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("workflow recovery failed", zap.Error(err))
		}
		return
	}
	if replayed > 0 {
		logger.Info("workflow operations replayed", zap.Int("count", replayed))
	}
}

package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"photolog-backend/internal/metadata"
)

// Reconciler repairs records left in "uploading" by pipeline runs that never
// finished: anything older than the staleness threshold is marked failed.
// The threshold guarantees it cannot race a just-started upload.
type Reconciler struct {
	meta      metadata.Store
	threshold time.Duration
	log       *zap.Logger
}

func NewReconciler(meta metadata.Store, threshold time.Duration, log *zap.Logger) *Reconciler {
	if threshold <= 0 {
		threshold = time.Hour
	}
	return &Reconciler{meta: meta, threshold: threshold, log: log}
}

// Sweep performs one pass. Re-running with no newly-stale records is a no-op.
func (r *Reconciler) Sweep(ctx context.Context) ([]string, error) {
	ids, err := r.meta.CleanupStaleUploads(ctx, r.threshold)
	if err != nil {
		r.log.Error("stale upload sweep failed", zap.Error(err))
		return ids, err
	}
	if len(ids) > 0 {
		r.log.Info("stale uploads marked failed",
			zap.Int("count", len(ids)),
			zap.Strings("photo_ids", ids))
	}
	return ids, nil
}

// Run sweeps on a fixed interval until the context is cancelled. Failures are
// logged and the next tick retries.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.Sweep(ctx)
		}
	}
}

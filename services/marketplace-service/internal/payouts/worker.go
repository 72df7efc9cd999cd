package payouts

import (
	"context"
	"log/slog"
	"time"

	"github.com/helpmarket/platform/services/marketplace-service/internal/booking"
)

// Worker runs the payout sweep on a fixed interval. The sweep itself is
// idempotent, so the worker and the manual release endpoint can overlap
// without coordination.
type Worker struct {
	svc       *booking.Service
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
}

func NewWorker(svc *booking.Service, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Worker{
		svc:       svc,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
	}
}

func (w *Worker) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Warn("payout worker disabled (no sweep interval configured)")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// The service logs released counts; the worker only reports failures.
			if _, err := w.svc.Sweep(ctx, time.Now().UTC(), w.batchSize); err != nil {
				w.logger.Error("payout sweep failed", "err", err)
			}
		}
	}
}

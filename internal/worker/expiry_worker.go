package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/solicitudes-service/internal/service"
)

// ExpiryWorker periodically expires stale cost quotations. Expiry is also
// applied lazily on every read, so the worker only bounds how long an
// expired quote stays visible in listings nobody touches.
type ExpiryWorker struct {
	travel   *service.TravelService
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewExpiryWorker constructs the worker.
func NewExpiryWorker(travel *service.TravelService, interval time.Duration, logger *zap.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ExpiryWorker{
		travel:   travel,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (w *ExpiryWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
}

// Stop cancels the loop and waits for the current sweep to finish.
func (w *ExpiryWorker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *ExpiryWorker) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := w.travel.SweepExpired(ctx)
			if err != nil {
				w.logger.Warn("expiry sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				w.logger.Info("expiry sweep", zap.Int("expired", expired))
			}
		}
	}
}

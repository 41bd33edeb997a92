package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/corray333/backend-labs/checkout/internal/config"
	"github.com/corray333/backend-labs/checkout/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/checkout/internal/metrics"
	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
	"golang.org/x/sync/errgroup"
)

const maxBackoff = 6 * time.Hour

// dispatcher delivers one kind of side effect.
type dispatcher interface {
	Dispatch(ctx context.Context, msg outbox.OutboxMessage) error
}

// Dispatchers routes each message kind to its delivery.
type Dispatchers map[outbox.Kind]dispatcher

// Worker processes messages from the outbox table.
type Worker struct {
	outboxRepo   ioutboxrepo.IOutboxRepository
	dispatchers  Dispatchers
	pollInterval time.Duration
	batchSize    int
	retryBase    time.Duration
	concurrency  int
	now          func() time.Time
	stopCh       chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new outbox worker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	dispatchers Dispatchers,
	cfg config.OutboxConfig,
) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 10 * time.Second
	}

	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}

	retryBase := cfg.RetryBase
	if retryBase == 0 {
		retryBase = 30 * time.Second
	}

	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = 4
	}

	return &Worker{
		outboxRepo:   outboxRepo,
		dispatchers:  dispatchers,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		retryBase:    retryBase,
		concurrency:  concurrency,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// Start begins processing messages from the outbox. It returns when ctx is done or Stop
// is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// processMessages retrieves and delivers pending messages from the outbox.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing outbox messages", "count", len(messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, msg := range messages {
		msg := msg
		g.Go(func() error {
			w.deliver(gctx, msg)

			return nil
		})
	}
	_ = g.Wait()
}

func (w *Worker) deliver(ctx context.Context, msg outbox.OutboxMessage) {
	log := slog.With("outbox_id", msg.ID, "kind", msg.Kind, "reference", msg.OrderNumber)

	err := w.dispatch(ctx, msg)
	if err == nil {
		if err := w.outboxRepo.MarkProcessed(ctx, msg.ID, w.now()); err != nil {
			log.Error("Failed to mark outbox message processed after successful delivery", "error", err)

			return
		}
		metrics.RecordSideEffectDelivered(string(msg.Kind))
		log.Info("Outbox message delivered")

		return
	}

	// Update retry count and schedule next retry with exponential backoff
	newRetryCount := msg.RetryCount + 1
	exhausted := newRetryCount >= msg.MaxRetries
	nextRetryAt := w.now().Add(w.backoff(newRetryCount))

	metrics.RecordSideEffectFailure(string(msg.Kind), exhausted)
	if exhausted {
		log.Error("Outbox message delivery failed, retries exhausted",
			"retry_count", newRetryCount,
			"error", err,
		)
	} else {
		log.Warn("Failed to deliver outbox message, will retry",
			"retry_count", newRetryCount,
			"next_retry", nextRetryAt,
			"error", err,
		)
	}

	if err := w.outboxRepo.UpdateRetry(ctx, msg.ID, newRetryCount, err.Error(), nextRetryAt); err != nil {
		log.Error("Failed to update retry information", "error", err)
	}
}

func (w *Worker) dispatch(ctx context.Context, msg outbox.OutboxMessage) (err error) {
	d, ok := w.dispatchers[msg.Kind]
	if !ok {
		return fmt.Errorf("no dispatcher for %q", msg.Kind)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher panicked: %v", r)
		}
	}()

	return d.Dispatch(ctx, msg)
}

// backoff returns retryBase * 2^retryCount, capped.
func (w *Worker) backoff(retryCount int) time.Duration {
	d := time.Duration(math.Pow(2, float64(retryCount)) * float64(w.retryBase))
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}

	return d
}

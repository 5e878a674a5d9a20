package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smallbiznis/journalpay/internal/clock"
	obsmetrics "github.com/smallbiznis/journalpay/internal/observability/metrics"
	"github.com/smallbiznis/journalpay/internal/outbox/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Rows that failed this many dispatch cycles are parked as failed.
const maxDispatchCycles = 5

type Options struct {
	BatchSize  int
	Interval   time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// Dispatcher drains pending outbox rows to the publisher.
type Dispatcher struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	publisher domain.Publisher
	clock     clock.Clock
	metrics   *obsmetrics.Metrics
	opts      Options

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(db *gorm.DB, log *zap.Logger, repo domain.Repository, publisher domain.Publisher, clk clock.Clock, m *obsmetrics.Metrics, opts Options) *Dispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	return &Dispatcher{
		db:        db,
		log:       log.Named("outbox.dispatcher"),
		repo:      repo,
		publisher: publisher,
		clock:     clk,
		metrics:   m,
		opts:      opts,
	}
}

// Start runs the polling loop until Stop.
func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
}

func (d *Dispatcher) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	return d.publisher.Close()
}

func (d *Dispatcher) run(ctx context.Context) {
	d.log.Info("outbox dispatcher started",
		zap.Int("batch_size", d.opts.BatchSize),
		zap.Duration("interval", d.opts.Interval),
	)
	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	for {
		if err := d.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Error("outbox batch failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			d.log.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch publishes up to BatchSize pending rows. A failing row does not
// block the rest of the batch.
func (d *Dispatcher) ProcessBatch(ctx context.Context) error {
	events, err := d.repo.ListPending(ctx, d.db, d.opts.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("list pending outbox events: %w", err)
	}

	for _, event := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := d.dispatch(ctx, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.log.Warn("outbox event not delivered",
				zap.String("event_id", event.EventID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, event domain.Event) error {
	var lastErr error
	for attempt := 1; attempt <= d.opts.MaxRetries; attempt++ {
		lastErr = d.publisher.Publish(ctx, event)
		if lastErr == nil {
			d.metrics.RecordOutboxPublished(ctx, event.EventType)
			return d.repo.MarkSent(ctx, d.db, event.ID, d.clock.Now())
		}
		if attempt < d.opts.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.opts.Backoff * time.Duration(attempt)):
			}
		}
	}

	giveUp := event.Attempts+1 >= maxDispatchCycles
	if giveUp {
		d.metrics.RecordOutboxFailed(ctx, event.EventType)
	}
	if err := d.repo.RecordFailure(ctx, d.db, event.ID, lastErr.Error(), giveUp); err != nil {
		return fmt.Errorf("record outbox failure: %w", err)
	}
	return lastErr
}

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smallbiznis/purchasing/internal/clock"
	"github.com/smallbiznis/purchasing/internal/config"
	"github.com/smallbiznis/purchasing/pkg/log/ctxlogger"
	"github.com/smallbiznis/purchasing/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultBatchSize = 50
	maxAttempts      = 10
)

// Handler consumes a single event. Returning an error leaves the event
// pending for the next poll.
type Handler func(ctx context.Context, evt Envelope) error

type DispatcherParams struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Config  config.Config
	Clock   clock.Clock
	Metrics *telemetry.Metrics `optional:"true"`
}

// Dispatcher drains the outbox and routes events to registered handlers.
type Dispatcher struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	metrics   *telemetry.Metrics
	batchSize int

	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	batchSize := p.Config.OutboxBatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Dispatcher{
		db:        p.DB,
		log:       p.Log.Named("events.dispatcher"),
		clock:     p.Clock,
		metrics:   p.Metrics,
		batchSize: batchSize,
		handlers:  make(map[string][]Handler),
	}
}

// Register adds h for eventType.
func (d *Dispatcher) Register(eventType string, h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], h)
}

func (d *Dispatcher) handlersFor(eventType string) []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[eventType]
}

// ProcessPending dispatches one batch of unpublished events in creation
// order and returns how many were marked published.
func (d *Dispatcher) ProcessPending(ctx context.Context) (int, error) {
	start := d.clock.Now()

	var records []Record
	err := d.db.WithContext(ctx).Raw(
		`SELECT id, event_type, payload, dedupe_key, published, attempts, last_error, created_at, published_at
		 FROM outbox_events
		 WHERE published = false AND attempts < ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		maxAttempts,
		d.batchSize,
	).Scan(&records).Error
	if err != nil {
		d.metrics.RecordOutboxBatch("error", 0, time.Since(start))
		return 0, err
	}

	published := 0
	failed := 0
	for _, record := range records {
		if err := d.dispatch(ctx, record); err != nil {
			failed++
			d.log.Error("event dispatch failed",
				zap.Error(err),
				zap.String("event_id", record.ID.String()),
				zap.String("event_type", record.EventType),
				zap.Int("attempts", record.Attempts+1),
			)
			if markErr := d.markFailed(ctx, record, err); markErr != nil {
				return published, markErr
			}
			continue
		}
		if err := d.markPublished(ctx, record); err != nil {
			return published, err
		}
		published++
	}

	status := "success"
	if failed > 0 {
		status = "partial"
	}
	d.metrics.RecordOutboxBatch(status, len(records), time.Since(start))
	return published, nil
}

// Unpublished counts events not yet published, including those that
// exhausted their attempts.
func (d *Dispatcher) Unpublished(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM outbox_events WHERE published = false`,
	).Scan(&count).Error
	return count, err
}

func (d *Dispatcher) dispatch(ctx context.Context, record Record) error {
	ctx = ctxlogger.ContextWithEventSubject(ctx, record.EventType)
	env := Envelope{
		ID:        record.ID,
		Type:      record.EventType,
		Payload:   []byte(record.Payload),
		CreatedAt: record.CreatedAt,
	}

	for _, h := range d.handlersFor(record.EventType) {
		start := time.Now()
		herr := d.invoke(ctx, h, env)
		status := "success"
		if herr != nil {
			status = "error"
		}
		d.metrics.RecordHandler(record.EventType, status, time.Since(start))
		if herr != nil {
			return herr
		}
	}
	return nil
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, env)
}

func (d *Dispatcher) markPublished(ctx context.Context, record Record) error {
	return d.db.WithContext(ctx).Exec(
		`UPDATE outbox_events SET published = true, published_at = ?, last_error = '' WHERE id = ?`,
		d.clock.Now(),
		record.ID,
	).Error
}

func (d *Dispatcher) markFailed(ctx context.Context, record Record, cause error) error {
	return d.db.WithContext(ctx).Exec(
		`UPDATE outbox_events SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		cause.Error(),
		record.ID,
	).Error
}

package subscriber

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/purchasing/internal/events"
	paymentdomain "github.com/smallbiznis/purchasing/internal/payment/domain"
	"github.com/smallbiznis/purchasing/internal/reconciliation/domain"
	"github.com/smallbiznis/purchasing/internal/reconciliation/service"
	"github.com/smallbiznis/purchasing/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Service *service.Service
}

// PaymentStatusSubscriber keeps order payment status in step with payment
// lifecycle events.
type PaymentStatusSubscriber struct {
	log *zap.Logger
	svc *service.Service
}

func New(p Params) *PaymentStatusSubscriber {
	return &PaymentStatusSubscriber{
		log: p.Log.Named("reconciliation.subscriber"),
		svc: p.Service,
	}
}

// Register subscribes to every payment lifecycle event.
func (s *PaymentStatusSubscriber) Register(d *events.Dispatcher) {
	d.Register(events.PaymentCreated, s.Handle)
	d.Register(events.PaymentUpdated, s.Handle)
	d.Register(events.PaymentDeleted, s.Handle)
}

// Handle recomputes each affected order once. An order that no longer
// exists is skipped; any other failure is returned so the event is retried.
func (s *PaymentStatusSubscriber) Handle(ctx context.Context, evt events.Envelope) error {
	var payload paymentdomain.LifecyclePayload
	if err := evt.Decode(&payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", evt.Type, err)
	}

	log := ctxlogger.WithContext(ctx, s.log).With(
		zap.String("event_id", evt.ID.String()),
		zap.String("payment_id", payload.PaymentID),
	)

	seen := make(map[snowflake.ID]struct{}, len(payload.OrderIDs))
	for _, raw := range payload.OrderIDs {
		orderID, err := snowflake.ParseString(raw)
		if err != nil || orderID == 0 {
			log.Warn("skipping malformed order id", zap.String("order_id", raw))
			continue
		}
		if _, ok := seen[orderID]; ok {
			continue
		}
		seen[orderID] = struct{}{}

		if _, err := s.svc.RecomputePaymentStatus(ctx, orderID, evt.Type); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				log.Warn("order not found, skipping recompute", zap.String("order_id", raw))
				continue
			}
			return fmt.Errorf("recompute order %s: %w", raw, err)
		}
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/purchasing/internal/clock"
	"github.com/smallbiznis/purchasing/internal/config"
	purchaseorderdomain "github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
	"github.com/smallbiznis/purchasing/internal/reconciliation/domain"
	"github.com/smallbiznis/purchasing/internal/reconciliation/engine"
	"github.com/smallbiznis/purchasing/pkg/log/ctxlogger"
	"github.com/smallbiznis/purchasing/pkg/telemetry"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidID = errors.New("invalid_id")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Config    config.Config
	Engine    *engine.Engine
	Stores    domain.StoreFactory
	OrderRepo purchaseorderdomain.Repository
	Metrics   *telemetry.Metrics `optional:"true"`
}

// Service recomputes and persists the payment status of orders.
type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	engine      *engine.Engine
	stores      domain.StoreFactory
	orderRepo   purchaseorderdomain.Repository
	metrics     *telemetry.Metrics
	concurrency int
}

func New(p Params) *Service {
	concurrency := p.Config.RecomputeConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("reconciliation.service"),
		clock:       p.Clock,
		engine:      p.Engine,
		stores:      p.Stores,
		orderRepo:   p.OrderRepo,
		metrics:     p.Metrics,
		concurrency: concurrency,
	}
}

// RecomputePaymentStatus reads the evidence and writes the summary in one
// transaction, so the persisted fields always match a single snapshot.
func (s *Service) RecomputePaymentStatus(ctx context.Context, orderID snowflake.ID, trigger string) (domain.Result, error) {
	ctx, span := otel.Tracer("purchasing/reconciliation").Start(ctx, "reconciliation.recompute")
	defer span.End()
	span.SetAttributes(
		attribute.String("order_id", orderID.String()),
		attribute.String("trigger", trigger),
	)

	var result domain.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}

		result, err = s.engine.Compute(ctx, s.stores(tx), domain.OrderRef{
			ID:          order.ID,
			Name:        order.Name,
			VendorID:    order.VendorID,
			AmountTotal: order.AmountTotal,
		})
		if err != nil {
			return err
		}
		return s.orderRepo.UpdatePaymentSummary(ctx, tx, order.ID, result.Summary(), s.clock.Now())
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Result{}, err
	}

	percentage, _ := result.Percentage.Float64()
	s.metrics.RecordRecompute(trigger, string(result.Status), percentage)
	span.SetAttributes(attribute.String("payment_status", string(result.Status)))

	ctxlogger.WithContext(ctx, s.log).Debug("payment status recomputed",
		zap.String("order_id", orderID.String()),
		zap.String("trigger", trigger),
		zap.String("total_paid", result.TotalPaid.String()),
		zap.String("percentage", result.Percentage.String()),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

// ForceRecompute is the operator entry point.
func (s *Service) ForceRecompute(ctx context.Context, id string) (domain.Result, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || orderID == 0 {
		return domain.Result{}, ErrInvalidID
	}
	return s.RecomputePaymentStatus(ctx, orderID, domain.TriggerManual)
}

// RecomputeMany recomputes each distinct order once. Orders are independent
// so they run concurrently; a failing order does not stop the others and
// all errors are joined.
func (s *Service) RecomputeMany(ctx context.Context, orderIDs []snowflake.ID, trigger string) ([]domain.Result, error) {
	seen := make(map[snowflake.ID]struct{}, len(orderIDs))
	unique := make([]snowflake.ID, 0, len(orderIDs))
	for _, id := range orderIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	results := make([]domain.Result, len(unique))
	found := make([]bool, len(unique))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(s.concurrency)
	for i, id := range unique {
		p.Go(func(ctx context.Context) error {
			result, err := s.RecomputePaymentStatus(ctx, id, trigger)
			if err != nil {
				return err
			}
			results[i] = result
			found[i] = true
			return nil
		})
	}
	err := p.Wait()

	out := make([]domain.Result, 0, len(unique))
	for i := range results {
		if found[i] {
			out = append(out, results[i])
		}
	}
	return out, err
}

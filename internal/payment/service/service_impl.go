package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/purchasing/internal/clock"
	"github.com/smallbiznis/purchasing/internal/events"
	"github.com/smallbiznis/purchasing/internal/payment/domain"
	purchaseorderdomain "github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
	vendordomain "github.com/smallbiznis/purchasing/internal/supplier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Outbox     *events.Outbox
	Repo       domain.Repository
	OrderRepo  purchaseorderdomain.Repository
	VendorRepo vendordomain.Repository
}

// Service owns payment records. Every mutation records a lifecycle event
// in the same transaction so the affected orders get recomputed.
type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	outbox     *events.Outbox
	repo       domain.Repository
	orderRepo  purchaseorderdomain.Repository
	vendorRepo vendordomain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		outbox:     p.Outbox,
		repo:       p.Repo,
		orderRepo:  p.OrderRepo,
		vendorRepo: p.VendorRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePaymentRequest) (domain.Payment, error) {
	direction := domain.Direction(strings.TrimSpace(req.Direction))
	if direction == "" {
		direction = domain.DirectionOutbound
	}
	if !direction.Valid() {
		return domain.Payment{}, domain.ErrInvalidDirection
	}

	state := domain.State(strings.TrimSpace(req.State))
	if state == "" {
		state = domain.StateDraft
	}
	if !state.Valid() {
		return domain.Payment{}, domain.ErrInvalidState
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return domain.Payment{}, err
	}

	invoiceIDs, err := parseIDs(req.ReconciledInvoiceIDs)
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidInvoice
	}

	now := s.clock.Now()
	payment := domain.Payment{
		ID:                   s.genID.Generate(),
		Direction:            direction,
		State:                state,
		Amount:               amount,
		Currency:             strings.ToUpper(strings.TrimSpace(req.Currency)),
		Memo:                 normalizeOptional(req.Memo),
		PaymentReference:     normalizeOptional(req.PaymentReference),
		PaymentDate:          req.PaymentDate,
		CreatedAt:            now,
		UpdatedAt:            now,
		ReconciledInvoiceIDs: invoiceIDs,
	}
	if raw := strings.TrimSpace(req.VendorID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return domain.Payment{}, domain.ErrInvalidVendor
		}
		payment.VendorID = id
	}
	if raw := strings.TrimSpace(req.MoveID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return domain.Payment{}, domain.ErrInvalidID
		}
		payment.MoveID = &id
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if raw := strings.TrimSpace(req.PurchaseOrderID); raw != "" {
			if err := s.linkOrder(ctx, tx, &payment, raw); err != nil {
				return err
			}
		}
		if err := s.ensureVendor(ctx, tx, payment.VendorID); err != nil {
			return err
		}

		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}
		if err := s.repo.ReplaceReconciledInvoices(ctx, tx, payment.ID, invoiceIDs); err != nil {
			return err
		}
		return s.publish(ctx, tx, events.PaymentCreated, payment.ID,
			domain.OrderIDs(&payment),
			fmt.Sprintf("%s:%s", events.PaymentCreated, payment.ID),
		)
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return payment, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Payment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidID
	}
	payment, err := s.load(ctx, s.db, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	return *payment, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdatePaymentRequest) (domain.Payment, error) {
	paymentID, err := parseID(id)
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidID
	}

	var result domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.load(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		after := *before

		if req.VendorID != nil {
			vendorID, err := parseID(*req.VendorID)
			if err != nil {
				return domain.ErrInvalidVendor
			}
			after.VendorID = vendorID
		}
		if req.State != nil {
			state := domain.State(strings.TrimSpace(*req.State))
			if !state.Valid() {
				return domain.ErrInvalidState
			}
			after.State = state
		}
		if req.Amount != nil {
			amount, err := parseAmount(*req.Amount)
			if err != nil {
				return err
			}
			after.Amount = amount
		}
		if req.Memo != nil {
			after.Memo = normalizeOptional(req.Memo)
		}
		if req.PaymentReference != nil {
			after.PaymentReference = normalizeOptional(req.PaymentReference)
		}
		if req.PaymentDate != nil {
			after.PaymentDate = req.PaymentDate
		}
		if req.PurchaseOrderID != nil {
			raw := strings.TrimSpace(*req.PurchaseOrderID)
			if raw == "" {
				after.PurchaseOrderID = nil
			} else if err := s.linkOrder(ctx, tx, &after, raw); err != nil {
				return err
			}
		}
		if err := s.ensureVendor(ctx, tx, after.VendorID); err != nil {
			return err
		}

		after.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, &after); err != nil {
			return err
		}
		if req.ReconciledInvoiceIDs != nil {
			invoiceIDs, err := parseIDs(*req.ReconciledInvoiceIDs)
			if err != nil {
				return domain.ErrInvalidInvoice
			}
			if err := s.repo.ReplaceReconciledInvoices(ctx, tx, after.ID, invoiceIDs); err != nil {
				return err
			}
			after.ReconciledInvoiceIDs = invoiceIDs
		}

		if err := s.publish(ctx, tx, events.PaymentUpdated, after.ID,
			domain.OrderIDs(before, &after),
			fmt.Sprintf("%s:%s:%s", events.PaymentUpdated, after.ID, s.genID.Generate()),
		); err != nil {
			return err
		}
		result = after
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return result, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	paymentID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.load(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		affected := domain.OrderIDs(before)
		if err := s.repo.Delete(ctx, tx, paymentID); err != nil {
			return err
		}
		return s.publish(ctx, tx, events.PaymentDeleted, paymentID,
			affected,
			fmt.Sprintf("%s:%s", events.PaymentDeleted, paymentID),
		)
	})
}

// linkOrder points payment at the order and fills the vendor and memo
// from it when they are missing.
func (s *Service) linkOrder(ctx context.Context, tx *gorm.DB, payment *domain.Payment, rawOrderID string) error {
	orderID, err := parseID(rawOrderID)
	if err != nil {
		return domain.ErrInvalidOrder
	}
	order, err := s.orderRepo.FindByID(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return domain.ErrInvalidOrder
	}

	payment.PurchaseOrderID = &order.ID
	if payment.VendorID == 0 {
		payment.VendorID = order.VendorID
	}
	if payment.Memo == nil {
		memo := domain.DefaultMemo(order.Name)
		payment.Memo = &memo
	}
	return nil
}

func (s *Service) ensureVendor(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID) error {
	if vendorID == 0 {
		return domain.ErrInvalidVendor
	}
	vendor, err := s.vendorRepo.FindByID(ctx, tx, vendorID)
	if err != nil {
		return err
	}
	if vendor == nil {
		return domain.ErrInvalidVendor
	}
	return nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	invoiceIDs, err := s.repo.ListReconciledInvoices(ctx, db, id)
	if err != nil {
		return nil, err
	}
	payment.ReconciledInvoiceIDs = invoiceIDs
	return payment, nil
}

func (s *Service) publish(ctx context.Context, tx *gorm.DB, eventType string, paymentID snowflake.ID, orderIDs []snowflake.ID, dedupeKey string) error {
	ids := make([]string, 0, len(orderIDs))
	for _, id := range orderIDs {
		ids = append(ids, id.String())
	}
	if err := s.outbox.PublishTx(ctx, tx, events.Event{
		Type: eventType,
		Payload: map[string]any{
			"payment_id": paymentID.String(),
			"order_ids":  ids,
		},
		DedupeKey: dedupeKey,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	s.log.Debug("payment event recorded",
		zap.String("event_type", eventType),
		zap.String("payment_id", paymentID.String()),
		zap.Strings("order_ids", ids),
	)
	return nil
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() {
		return decimal.Decimal{}, domain.ErrInvalidAmount
	}
	return amount, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("zero id")
	}
	return id, nil
}

func parseIDs(raw []string) ([]snowflake.ID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	seen := make(map[snowflake.ID]struct{}, len(raw))
	out := make([]snowflake.ID, 0, len(raw))
	for _, r := range raw {
		id, err := parseID(r)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

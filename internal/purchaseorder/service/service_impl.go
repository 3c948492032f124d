package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/purchasing/internal/clock"
	"github.com/smallbiznis/purchasing/internal/config"
	"github.com/smallbiznis/purchasing/internal/lock"
	"github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
	vendordomain "github.com/smallbiznis/purchasing/internal/supplier/domain"
	pkgdb "github.com/smallbiznis/purchasing/pkg/db"
	"github.com/smallbiznis/purchasing/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	numberingLockKey     = "purchasing:order-number:%d"
	paymentDateLayout    = "02/01/2006"
	paymentDateSeparator = ", "
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Repo       domain.Repository
	VendorRepo vendordomain.Repository
	Locker     *lock.Locker       `optional:"true"`
	Metrics    *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	vendorRepo vendordomain.Repository
	locker     *lock.Locker
	metrics    *telemetry.Metrics

	maxAttempts int
	lockTTL     time.Duration
}

func New(p Params) domain.Service {
	maxAttempts := p.Config.NumberingMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	lockTTL := p.Config.NumberingLockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("purchaseorder.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		vendorRepo:  p.VendorRepo,
		locker:      p.Locker,
		metrics:     p.Metrics,
		maxAttempts: maxAttempts,
		lockTTL:     lockTTL,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	order, err := s.buildOrder(ctx, req)
	if err != nil {
		return domain.Order{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name != "" && name != domain.PlaceholderName {
		order.Name = name
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.insert(ctx, tx, &order)
		})
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Order{}, domain.ErrNameConflict
		}
		if err != nil {
			return domain.Order{}, err
		}
		return order, nil
	}

	if err := s.createNumbered(ctx, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// createNumbered assigns the next yearly number and inserts the order. The
// redis lock serializes writers when configured; the unique name constraint
// catches whatever the lock does not, and both outcomes are retried.
func (s *Service) createNumbered(ctx context.Context, order *domain.Order) error {
	year := s.clock.Now().Year()
	key := fmt.Sprintf(numberingLockKey, year)

	operation := func() (string, error) {
		var name string
		err := s.locker.WithLock(ctx, key, s.lockTTL, func(ctx context.Context) error {
			return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				last, err := s.repo.LastNameWithPrefix(ctx, tx, domain.NamePrefix(year))
				if err != nil {
					return err
				}
				name = domain.NextName(year, last)
				order.Name = name
				return s.insert(ctx, tx, order)
			})
		})

		switch {
		case err == nil:
			s.metrics.RecordOrderNumber("issued")
			return name, nil
		case errors.Is(err, lock.ErrNotAcquired):
			s.metrics.RecordOrderNumber("busy")
			return "", err
		case pkgdb.IsDuplicateKeyErr(err):
			s.metrics.RecordOrderNumber("conflict")
			s.log.Warn("order number taken, retrying", zap.String("name", name))
			return "", err
		default:
			return "", backoff.Permanent(err)
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxInterval = 250 * time.Millisecond

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(s.maxAttempts)),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lock.ErrNotAcquired):
		return domain.ErrNumberingBusy
	case pkgdb.IsDuplicateKeyErr(err):
		return domain.ErrNameConflict
	default:
		return err
	}
}

func (s *Service) insert(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	if err := s.repo.Insert(ctx, tx, order); err != nil {
		return err
	}
	return s.repo.InsertLines(ctx, tx, order.Lines)
}

func (s *Service) buildOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	vendorID, err := parseID(req.VendorID)
	if err != nil {
		return domain.Order{}, domain.ErrInvalidVendor
	}
	vendor, err := s.vendorRepo.FindByID(ctx, s.db, vendorID)
	if err != nil {
		return domain.Order{}, err
	}
	if vendor == nil {
		return domain.Order{}, domain.ErrInvalidVendor
	}

	state := domain.State(strings.TrimSpace(req.State))
	if state == "" {
		state = domain.StateDraft
	}
	if !state.Valid() {
		return domain.Order{}, domain.ErrInvalidState
	}

	amount := decimal.Zero
	if raw := strings.TrimSpace(req.AmountTotal); raw != "" {
		amount, err = decimal.NewFromString(raw)
		if err != nil || amount.IsNegative() {
			return domain.Order{}, domain.ErrInvalidAmount
		}
	}

	month := strings.ToLower(strings.TrimSpace(req.SupplyMonth))
	if month != "" && !domain.ValidSupplyMonth(month) {
		return domain.Order{}, domain.ErrInvalidSupplyMonth
	}

	now := s.clock.Now()
	orderedAt := now
	if req.OrderedAt != nil && !req.OrderedAt.IsZero() {
		orderedAt = req.OrderedAt.UTC()
	}

	order := domain.Order{
		ID:                   s.genID.Generate(),
		VendorID:             vendor.ID,
		State:                state,
		Currency:             strings.ToUpper(strings.TrimSpace(req.Currency)),
		AmountTotal:          amount,
		TotalPaid:            decimal.Zero,
		PaymentPercentage:    decimal.Zero,
		PaymentStatus:        domain.PaymentStatusNoPaid,
		RequestingDepartment: strings.TrimSpace(req.RequestingDepartment),
		SupplyMonth:          month,
		Observations:         req.Observations,
		ElaboratedBy:         strings.TrimSpace(req.ElaboratedBy),
		ReceivedBy:           strings.TrimSpace(req.ReceivedBy),
		OrderedAt:            orderedAt,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	for _, lr := range req.Lines {
		productType := domain.ProductType(strings.TrimSpace(lr.ProductType))
		if productType == "" {
			productType = domain.ProductTypeConsumable
		}
		if !productType.Valid() {
			return domain.Order{}, domain.ErrInvalidProductType
		}
		qty, err := decimal.NewFromString(strings.TrimSpace(lr.ProductQty))
		if err != nil || !qty.IsPositive() {
			return domain.Order{}, domain.ErrInvalidQuantity
		}
		order.Lines = append(order.Lines, domain.Line{
			ID:            s.genID.Generate(),
			OrderID:       order.ID,
			Description:   strings.TrimSpace(lr.Description),
			ProductType:   productType,
			ProductQty:    qty,
			QtyReceived:   decimal.Zero,
			ReceiptStatus: domain.ReceiptStatusNo,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	order.ReceiptStatus = domain.ComputeReceiptStatus(order.State, order.Lines)

	return order, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, domain.ErrInvalidID
	}
	return s.get(ctx, s.db, orderID)
}

func (s *Service) get(ctx context.Context, db *gorm.DB, id snowflake.ID) (domain.Order, error) {
	order, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	lines, err := s.repo.FindLines(ctx, db, id)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines
	return *order, nil
}

func (s *Service) PreviewNextName(ctx context.Context) (string, error) {
	year := s.clock.Now().Year()
	last, err := s.repo.LastNameWithPrefix(ctx, s.db, domain.NamePrefix(year))
	if err != nil {
		return "", err
	}
	return domain.NextName(year, last), nil
}

func (s *Service) Confirm(ctx context.Context, id string) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, domain.ErrInvalidID
	}

	var result domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.get(ctx, tx, orderID)
		if err != nil {
			return err
		}
		switch order.State {
		case domain.StateDraft, domain.StateSent, domain.StateToApprove:
		default:
			return domain.ErrInvalidTransition
		}

		receipt := domain.ComputeReceiptStatus(domain.StatePurchase, order.Lines)
		if err := s.repo.UpdateState(ctx, tx, orderID, domain.StatePurchase, receipt, s.clock.Now()); err != nil {
			return err
		}
		result, err = s.get(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func (s *Service) ApproveByTreasury(ctx context.Context, id, approver string) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, domain.ErrInvalidID
	}
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return domain.Order{}, domain.ErrInvalidApprover
	}

	var result domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.get(ctx, tx, orderID); err != nil {
			return err
		}
		if err := s.repo.UpdateTreasuryApproval(ctx, tx, orderID, approver, s.clock.Now()); err != nil {
			return err
		}
		result, err = s.get(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order approved by treasury",
		zap.String("order_id", orderID.String()),
		zap.String("approved_by", approver),
	)
	return result, nil
}

func (s *Service) RegisterPaymentDate(ctx context.Context, id string, date *time.Time) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, domain.ErrInvalidID
	}

	paidOn := s.clock.Now()
	if date != nil && !date.IsZero() {
		paidOn = *date
	}
	entry := paidOn.Format(paymentDateLayout)

	var result domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.get(ctx, tx, orderID)
		if err != nil {
			return err
		}
		dates := entry
		if order.CancellationDates != "" {
			dates = order.CancellationDates + paymentDateSeparator + entry
		}
		if err := s.repo.UpdateCancellationDates(ctx, tx, orderID, dates, s.clock.Now()); err != nil {
			return err
		}
		result, err = s.get(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func (s *Service) ReceiveLines(ctx context.Context, id string, reqs []domain.ReceiveLineRequest) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, domain.ErrInvalidID
	}

	var result domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.get(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.State != domain.StatePurchase && order.State != domain.StateDone {
			return domain.ErrInvalidTransition
		}

		byID := make(map[snowflake.ID]int, len(order.Lines))
		for i, line := range order.Lines {
			byID[line.ID] = i
		}

		now := s.clock.Now()
		for _, req := range reqs {
			lineID, err := parseID(req.LineID)
			if err != nil {
				return domain.ErrInvalidLine
			}
			idx, ok := byID[lineID]
			if !ok {
				return domain.ErrInvalidLine
			}
			qty, err := decimal.NewFromString(strings.TrimSpace(req.QtyReceived))
			if err != nil || qty.IsNegative() {
				return domain.ErrInvalidQuantity
			}

			line := &order.Lines[idx]
			line.QtyReceived = qty
			line.ReceiptStatus = domain.ComputeLineReceiptStatus(*line)
			if err := s.repo.UpdateLineReceipt(ctx, tx, line.ID, line.QtyReceived, line.ReceiptStatus, now); err != nil {
				return err
			}
		}

		status := domain.ComputeReceiptStatus(order.State, order.Lines)
		if err := s.repo.UpdateReceiptStatus(ctx, tx, orderID, status, now); err != nil {
			return err
		}
		result, err = s.get(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// SupplierBankInfo renders the vendor's main account for order documents.
// Missing values are left empty.
func (s *Service) SupplierBankInfo(ctx context.Context, id string) (vendordomain.BankInfo, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return vendordomain.BankInfo{}, err
	}
	accounts, err := s.vendorRepo.ListBankAccounts(ctx, s.db, order.VendorID)
	if err != nil {
		return vendordomain.BankInfo{}, err
	}
	return vendordomain.BankInfoFor(vendordomain.SelectMainAccount(accounts), ""), nil
}

func (s *Service) PurchaseContact(ctx context.Context, id string) (vendordomain.ContactInfo, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return vendordomain.ContactInfo{}, err
	}
	vendor, err := s.vendorRepo.FindByID(ctx, s.db, order.VendorID)
	if err != nil {
		return vendordomain.ContactInfo{}, err
	}
	if vendor == nil {
		return vendordomain.ContactInfo{}, nil
	}
	contacts, err := s.vendorRepo.ListContacts(ctx, s.db, vendor.ID)
	if err != nil {
		return vendordomain.ContactInfo{}, err
	}
	return vendordomain.SelectPurchaseContact(*vendor, contacts), nil
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

package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
	"gorm.io/gorm"
)

const orderColumns = `id, name, vendor_id, state, currency, amount_total, total_paid, payment_percentage,
	payment_status, receipt_status, requesting_department, supply_month, observations, elaborated_by,
	received_by, treasury_approved, treasury_approved_by, treasury_approved_at, cancellation_dates,
	ordered_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO purchase_orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.Name,
		order.VendorID,
		order.State,
		order.Currency,
		order.AmountTotal,
		order.TotalPaid,
		order.PaymentPercentage,
		order.PaymentStatus,
		order.ReceiptStatus,
		order.RequestingDepartment,
		order.SupplyMonth,
		order.Observations,
		order.ElaboratedBy,
		order.ReceivedBy,
		order.TreasuryApproved,
		order.TreasuryApprovedBy,
		order.TreasuryApprovedAt,
		order.CancellationDates,
		order.OrderedAt,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) InsertLines(ctx context.Context, db *gorm.DB, lines []domain.Line) error {
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM purchase_orders WHERE id = ?`,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) FindLines(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.Line, error) {
	var lines []domain.Line
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, description, product_type, product_qty, qty_received, receipt_status, created_at, updated_at
		 FROM purchase_order_lines WHERE order_id = ?
		 ORDER BY id ASC`,
		orderID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// LastNameWithPrefix orders by length first so 2025-10000 sorts above
// 2025-9999.
func (r *repo) LastNameWithPrefix(ctx context.Context, db *gorm.DB, prefix string) (string, error) {
	var names []string
	err := db.WithContext(ctx).Raw(
		`SELECT name FROM purchase_orders WHERE name LIKE ? ORDER BY LENGTH(name) DESC, name DESC LIMIT 1`,
		prefix+"%",
	).Scan(&names).Error
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}

func (r *repo) UpdatePaymentSummary(ctx context.Context, db *gorm.DB, id snowflake.ID, summary domain.PaymentSummary, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE purchase_orders
		 SET total_paid = ?, payment_percentage = ?, payment_status = ?, updated_at = ?
		 WHERE id = ?`,
		summary.TotalPaid,
		summary.Percentage,
		summary.Status,
		now,
		id,
	).Error
}

func (r *repo) UpdateTreasuryApproval(ctx context.Context, db *gorm.DB, id snowflake.ID, approvedBy string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE purchase_orders
		 SET treasury_approved = true, treasury_approved_by = ?, treasury_approved_at = ?, updated_at = ?
		 WHERE id = ?`,
		approvedBy,
		now,
		now,
		id,
	).Error
}

func (r *repo) UpdateCancellationDates(ctx context.Context, db *gorm.DB, id snowflake.ID, dates string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE purchase_orders SET cancellation_dates = ?, updated_at = ? WHERE id = ?`,
		dates,
		now,
		id,
	).Error
}

func (r *repo) UpdateState(ctx context.Context, db *gorm.DB, id snowflake.ID, state domain.State, receipt domain.ReceiptStatus, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE purchase_orders SET state = ?, receipt_status = ?, updated_at = ? WHERE id = ?`,
		state,
		receipt,
		now,
		id,
	).Error
}

func (r *repo) UpdateLineReceipt(ctx context.Context, db *gorm.DB, lineID snowflake.ID, received decimal.Decimal, status domain.ReceiptStatus, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE purchase_order_lines SET qty_received = ?, receipt_status = ?, updated_at = ? WHERE id = ?`,
		received,
		status,
		now,
		lineID,
	).Error
}

func (r *repo) UpdateReceiptStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.ReceiptStatus, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE purchase_orders SET receipt_status = ?, updated_at = ? WHERE id = ?`,
		status,
		now,
		id,
	).Error
}

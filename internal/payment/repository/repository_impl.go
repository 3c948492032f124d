package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/purchasing/internal/payment/domain"
	"gorm.io/gorm"
)

const paymentColumns = `id, vendor_id, purchase_order_id, move_id, direction, state, amount, currency,
	memo, payment_reference, payment_date, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.VendorID,
		payment.PurchaseOrderID,
		payment.MoveID,
		payment.Direction,
		payment.State,
		payment.Amount,
		payment.Currency,
		payment.Memo,
		payment.PaymentReference,
		payment.PaymentDate,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET vendor_id = ?, purchase_order_id = ?, state = ?, amount = ?, memo = ?,
		     payment_reference = ?, payment_date = ?, updated_at = ?
		 WHERE id = ?`,
		payment.VendorID,
		payment.PurchaseOrderID,
		payment.State,
		payment.Amount,
		payment.Memo,
		payment.PaymentReference,
		payment.PaymentDate,
		payment.UpdatedAt,
		payment.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM payment_reconciled_invoices WHERE payment_id = ?`,
		id,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM payments WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) ListReconciledInvoices(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT invoice_id FROM payment_reconciled_invoices WHERE payment_id = ? ORDER BY invoice_id ASC`,
		paymentID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) ReplaceReconciledInvoices(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, invoiceIDs []snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM payment_reconciled_invoices WHERE payment_id = ?`,
		paymentID,
	).Error; err != nil {
		return err
	}
	if len(invoiceIDs) == 0 {
		return nil
	}
	rows := make([]domain.ReconciledInvoice, 0, len(invoiceIDs))
	for _, id := range invoiceIDs {
		rows = append(rows, domain.ReconciledInvoice{PaymentID: paymentID, InvoiceID: id})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

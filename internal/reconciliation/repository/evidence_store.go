package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/purchasing/internal/reconciliation/domain"
	pkgdb "github.com/smallbiznis/purchasing/pkg/db"
	"gorm.io/gorm"
)

type evidenceStore struct {
	db *gorm.DB
}

// Provide returns the factory used to bind the store to a transaction.
func Provide() domain.StoreFactory {
	return NewEvidenceStore
}

func NewEvidenceStore(db *gorm.DB) domain.EvidenceStore {
	return &evidenceStore{db: db}
}

func (s *evidenceStore) FindInvoices(ctx context.Context, orderID snowflake.ID) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, order_id, vendor_id, move_type, state, amount_total, amount_residual
		 FROM invoices WHERE order_id = ?
		 ORDER BY id ASC`,
		orderID,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindFundingPayments walks payable items of the invoices, their partial
// reconciliations on either side, the counterpart items' moves, and finally
// the payments booked on those moves.
func (s *evidenceStore) FindFundingPayments(ctx context.Context, invoiceIDs []snowflake.ID) ([]snowflake.ID, error) {
	if len(invoiceIDs) == 0 {
		return nil, nil
	}

	var ids []snowflake.ID
	err := s.db.WithContext(ctx).Raw(
		`SELECT DISTINCT p.id
		 FROM payments p
		 WHERE p.move_id IN (
		   SELECT counterpart.move_id
		   FROM journal_items counterpart
		   WHERE counterpart.id IN (
		     SELECT pr.credit_item_id
		     FROM partial_reconciles pr
		     JOIN journal_items inv ON inv.id = pr.debit_item_id
		     WHERE inv.move_id IN ? AND inv.account_type = ?
		     UNION
		     SELECT pr.debit_item_id
		     FROM partial_reconciles pr
		     JOIN journal_items inv ON inv.id = pr.credit_item_id
		     WHERE inv.move_id IN ? AND inv.account_type = ?
		   )
		 )
		 ORDER BY p.id ASC`,
		invoiceIDs,
		domain.AccountTypePayable,
		invoiceIDs,
		domain.AccountTypePayable,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type paymentRow struct {
	ID               snowflake.ID    `gorm:"column:id"`
	VendorID         snowflake.ID    `gorm:"column:vendor_id"`
	OrderID          *snowflake.ID   `gorm:"column:purchase_order_id"`
	Direction        string          `gorm:"column:direction"`
	State            string          `gorm:"column:state"`
	Amount           decimal.Decimal `gorm:"column:amount"`
	Memo             *string         `gorm:"column:memo"`
	PaymentReference *string         `gorm:"column:payment_reference"`
}

type reconciledRow struct {
	PaymentID snowflake.ID `gorm:"column:payment_id"`
	InvoiceID snowflake.ID `gorm:"column:invoice_id"`
}

func (s *evidenceStore) FindPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	stmt := s.db.WithContext(ctx).
		Table("payments").
		Select("id, vendor_id, purchase_order_id, direction, state, amount, memo, payment_reference")
	if len(filter.ExcludeIDs) > 0 {
		stmt = stmt.Where("id NOT IN ?", filter.ExcludeIDs)
	}
	if filter.OrderID != nil {
		stmt = stmt.Where("purchase_order_id = ?", *filter.OrderID)
	}
	if filter.VendorID != nil {
		stmt = stmt.Where("vendor_id = ?", *filter.VendorID)
	}
	if len(filter.States) > 0 {
		stmt = stmt.Where("state IN ?", filter.States)
	}
	if filter.Direction != "" {
		stmt = stmt.Where("direction = ?", filter.Direction)
	}
	if filter.ReferenceContains != "" {
		pattern := pkgdb.ContainsPattern(filter.ReferenceContains)
		stmt = stmt.Where(
			"(LOWER(COALESCE(memo, '')) LIKE ? ESCAPE '"+pkgdb.LikeEscape+"' OR LOWER(COALESCE(payment_reference, '')) LIKE ? ESCAPE '"+pkgdb.LikeEscape+"')",
			pattern,
			pattern,
		)
	}

	var rows []paymentRow
	if err := stmt.Order("id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	reconciled, err := s.reconciledInvoices(ctx, ids)
	if err != nil {
		return nil, err
	}

	payments := make([]domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, domain.Payment{
			ID:                   row.ID,
			VendorID:             row.VendorID,
			OrderID:              row.OrderID,
			Direction:            row.Direction,
			State:                row.State,
			Amount:               row.Amount,
			Memo:                 row.Memo,
			PaymentReference:     row.PaymentReference,
			ReconciledInvoiceIDs: reconciled[row.ID],
		})
	}
	return payments, nil
}

func (s *evidenceStore) reconciledInvoices(ctx context.Context, paymentIDs []snowflake.ID) (map[snowflake.ID][]snowflake.ID, error) {
	var rows []reconciledRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT payment_id, invoice_id FROM payment_reconciled_invoices
		 WHERE payment_id IN ?
		 ORDER BY payment_id ASC, invoice_id ASC`,
		paymentIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[snowflake.ID][]snowflake.ID, len(rows))
	for _, row := range rows {
		out[row.PaymentID] = append(out[row.PaymentID], row.InvoiceID)
	}
	return out, nil
}

// Package reconciliationtest seeds evidence for reconciliation tests.
package reconciliationtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/purchasing/internal/migration"
	paymentdomain "github.com/smallbiznis/purchasing/internal/payment/domain"
	purchaseorderdomain "github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
	"github.com/smallbiznis/purchasing/internal/reconciliation/domain"
	vendordomain "github.com/smallbiznis/purchasing/internal/supplier/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const OrderName = "2025-0007"

// Scenario identifies the rows created by SeedThreePath.
type Scenario struct {
	VendorID snowflake.ID
	OrderID  snowflake.ID
	BillID   snowflake.ID
	// Funding settles 150 of the bill through the ledger.
	Funding snowflake.ID
	// Direct is linked to the order, 100.
	Direct snowflake.ID
	// Matched mentions the order name in its memo, 50.
	Matched snowflake.ID
	// Covered is linked to the order but reconciled with the bill.
	Covered snowflake.ID
}

// OpenDB returns an isolated in-memory database with the full schema.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

// SeedThreePath creates an order of 300 paid in full: 150 through a posted
// bill, 100 linked directly and 50 matched by memo.
func SeedThreePath(t *testing.T, db *gorm.DB, node *snowflake.Node, now time.Time) Scenario {
	t.Helper()
	s := Scenario{
		VendorID: node.Generate(),
		OrderID:  node.Generate(),
		BillID:   node.Generate(),
	}

	require.NoError(t, db.Create(&vendordomain.Vendor{
		ID:        s.VendorID,
		Name:      "Acme",
		Status:    vendordomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&purchaseorderdomain.Order{
		ID:            s.OrderID,
		Name:          OrderName,
		VendorID:      s.VendorID,
		State:         purchaseorderdomain.StatePurchase,
		AmountTotal:   decimal.NewFromInt(300),
		PaymentStatus: purchaseorderdomain.PaymentStatusNoPaid,
		ReceiptStatus: purchaseorderdomain.ReceiptStatusNo,
		OrderedAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Error)

	orderID := s.OrderID
	require.NoError(t, db.Create(&domain.Invoice{
		ID:             s.BillID,
		OrderID:        &orderID,
		VendorID:       s.VendorID,
		MoveType:       domain.InvoiceTypeVendorBill,
		State:          domain.InvoiceStatePosted,
		AmountTotal:    decimal.NewFromInt(200),
		AmountResidual: decimal.NewFromInt(50),
	}).Error)
	billItem := node.Generate()
	require.NoError(t, db.Create(&domain.JournalItem{
		ID:          billItem,
		MoveID:      s.BillID,
		AccountType: domain.AccountTypePayable,
		Credit:      decimal.NewFromInt(200),
	}).Error)

	// The funding payment is booked on its own entry move whose payable
	// line is matched against the bill.
	paymentMove := node.Generate()
	require.NoError(t, db.Create(&domain.Invoice{
		ID:       paymentMove,
		VendorID: s.VendorID,
		MoveType: domain.InvoiceTypeEntry,
		State:    domain.InvoiceStatePosted,
	}).Error)
	paymentItem := node.Generate()
	require.NoError(t, db.Create(&domain.JournalItem{
		ID:          paymentItem,
		MoveID:      paymentMove,
		AccountType: domain.AccountTypePayable,
		Debit:       decimal.NewFromInt(150),
	}).Error)
	require.NoError(t, db.Create(&domain.PartialReconcile{
		ID:           node.Generate(),
		DebitItemID:  paymentItem,
		CreditItemID: billItem,
		Amount:       decimal.NewFromInt(150),
	}).Error)

	s.Funding = CreatePayment(t, db, node, now, paymentdomain.Payment{
		VendorID: s.VendorID,
		MoveID:   &paymentMove,
		Amount:   decimal.NewFromInt(150),
	})
	s.Direct = CreatePayment(t, db, node, now, paymentdomain.Payment{
		VendorID:        s.VendorID,
		PurchaseOrderID: &orderID,
		Amount:          decimal.NewFromInt(100),
	})
	memo := "Pago " + OrderName
	s.Matched = CreatePayment(t, db, node, now, paymentdomain.Payment{
		VendorID: s.VendorID,
		Memo:     &memo,
		Amount:   decimal.NewFromInt(50),
	})
	s.Covered = CreatePayment(t, db, node, now, paymentdomain.Payment{
		VendorID:        s.VendorID,
		PurchaseOrderID: &orderID,
		Amount:          decimal.NewFromInt(999),
	})
	require.NoError(t, db.Create(&paymentdomain.ReconciledInvoice{
		PaymentID: s.Covered,
		InvoiceID: s.BillID,
	}).Error)

	return s
}

// CreatePayment inserts p as a paid outbound payment unless set otherwise.
func CreatePayment(t *testing.T, db *gorm.DB, node *snowflake.Node, now time.Time, p paymentdomain.Payment) snowflake.ID {
	t.Helper()
	if p.ID == 0 {
		p.ID = node.Generate()
	}
	if p.Direction == "" {
		p.Direction = paymentdomain.DirectionOutbound
	}
	if p.State == "" {
		p.State = paymentdomain.StatePaid
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	require.NoError(t, db.Create(&p).Error)
	return p.ID
}

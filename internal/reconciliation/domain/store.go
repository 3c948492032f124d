package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// PaymentFilter narrows FindPayments. Zero fields do not filter.
type PaymentFilter struct {
	ExcludeIDs []snowflake.ID
	OrderID    *snowflake.ID
	VendorID   *snowflake.ID
	States     []string
	Direction  string
	// ReferenceContains matches memo or payment reference, case-insensitive.
	ReferenceContains string
}

// EvidenceStore is the read side of invoices, payments and their ledger
// matching.
type EvidenceStore interface {
	FindInvoices(ctx context.Context, orderID snowflake.ID) ([]Invoice, error)
	// FindFundingPayments returns payments whose moves are reconciled with
	// the payable journal items of invoiceIDs.
	FindFundingPayments(ctx context.Context, invoiceIDs []snowflake.ID) ([]snowflake.ID, error)
	FindPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error)
}

// StoreFactory binds an EvidenceStore to a connection or transaction.
type StoreFactory func(db *gorm.DB) EvidenceStore

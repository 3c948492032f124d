package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type InvoiceType string

const (
	InvoiceTypeVendorBill   InvoiceType = "in_invoice"
	InvoiceTypeVendorRefund InvoiceType = "in_refund"
	InvoiceTypeEntry        InvoiceType = "entry"
)

type InvoiceState string

const (
	InvoiceStateDraft  InvoiceState = "draft"
	InvoiceStatePosted InvoiceState = "posted"
	InvoiceStateCancel InvoiceState = "cancel"
)

// Invoice is an accounting move linked to an order. Payments live behind
// moves of type entry.
type Invoice struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID        *snowflake.ID   `gorm:"index" json:"order_id,omitempty"`
	VendorID       snowflake.ID    `gorm:"not null" json:"vendor_id"`
	MoveType       InvoiceType     `gorm:"type:text;not null" json:"move_type"`
	State          InvoiceState    `gorm:"type:text;not null;default:'draft'" json:"state"`
	AmountTotal    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount_total"`
	AmountResidual decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount_residual"`
}

func (Invoice) TableName() string { return "invoices" }

func (i Invoice) IsPostedVendorBill() bool {
	return i.MoveType == InvoiceTypeVendorBill && i.State == InvoiceStatePosted
}

// PaidAmount is the settled part of the invoice.
func (i Invoice) PaidAmount() decimal.Decimal {
	return i.AmountTotal.Sub(i.AmountResidual)
}

const AccountTypePayable = "liability_payable"

type JournalItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	MoveID      snowflake.ID    `gorm:"not null;index" json:"move_id"`
	AccountType string          `gorm:"not null" json:"account_type"`
	Debit       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"debit"`
	Credit      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"credit"`
}

func (JournalItem) TableName() string { return "journal_items" }

// PartialReconcile matches a debit journal item against a credit one.
type PartialReconcile struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	DebitItemID  snowflake.ID    `gorm:"not null;index" json:"debit_item_id"`
	CreditItemID snowflake.ID    `gorm:"not null;index" json:"credit_item_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount"`
}

func (PartialReconcile) TableName() string { return "partial_reconciles" }

// Payment is the read view of a payment used during reconciliation.
type Payment struct {
	ID                   snowflake.ID
	VendorID             snowflake.ID
	OrderID              *snowflake.ID
	Direction            string
	State                string
	Amount               decimal.Decimal
	Memo                 *string
	PaymentReference     *string
	ReconciledInvoiceIDs []snowflake.ID
}

// ReconciledWithAny reports whether p is reconciled against any of bills.
func (p Payment) ReconciledWithAny(bills IDSet) bool {
	for _, id := range p.ReconciledInvoiceIDs {
		if bills.Has(id) {
			return true
		}
	}
	return false
}

// OrderRef is the order as seen by the engine.
type OrderRef struct {
	ID          snowflake.ID
	Name        string
	VendorID    snowflake.ID
	AmountTotal decimal.Decimal
}

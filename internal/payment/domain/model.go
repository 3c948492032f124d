package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

func (d Direction) Valid() bool {
	return d == DirectionOutbound || d == DirectionInbound
}

type State string

const (
	StateDraft     State = "draft"
	StateInProcess State = "in_process"
	StatePaid      State = "paid"
	StateCanceled  State = "canceled"
	StateRejected  State = "rejected"
)

func (s State) Valid() bool {
	switch s {
	case StateDraft, StateInProcess, StatePaid, StateCanceled, StateRejected:
		return true
	}
	return false
}

// Payment is a money movement to or from a vendor. The order link, memo and
// payment reference are optional.
type Payment struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	VendorID         snowflake.ID    `gorm:"not null;index:idx_payments_vendor_state,priority:1" json:"vendor_id"`
	PurchaseOrderID  *snowflake.ID   `gorm:"index" json:"purchase_order_id,omitempty"`
	MoveID           *snowflake.ID   `gorm:"index" json:"move_id,omitempty"`
	Direction        Direction       `gorm:"type:text;not null;index:idx_payments_vendor_state,priority:3" json:"direction"`
	State            State           `gorm:"type:text;not null;default:'draft';index:idx_payments_vendor_state,priority:2" json:"state"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount"`
	Currency         string          `gorm:"not null;default:''" json:"currency"`
	Memo             *string         `json:"memo,omitempty"`
	PaymentReference *string         `json:"payment_reference,omitempty"`
	PaymentDate      *time.Time      `json:"payment_date,omitempty"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`

	ReconciledInvoiceIDs []snowflake.ID `gorm:"-" json:"reconciled_invoice_ids,omitempty"`
}

func (Payment) TableName() string { return "payments" }

// ReconciledInvoice records that a payment settles an invoice.
type ReconciledInvoice struct {
	PaymentID snowflake.ID `gorm:"primaryKey"`
	InvoiceID snowflake.ID `gorm:"primaryKey"`
}

func (ReconciledInvoice) TableName() string { return "payment_reconciled_invoices" }

// OrderIDs returns the distinct orders referenced by payments, in order.
func OrderIDs(payments ...*Payment) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(payments))
	out := make([]snowflake.ID, 0, len(payments))
	for _, p := range payments {
		if p == nil || p.PurchaseOrderID == nil {
			continue
		}
		id := *p.PurchaseOrderID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// DefaultMemo is used when a payment is linked to an order without a memo.
func DefaultMemo(orderName string) string {
	return "PO payment " + orderName
}

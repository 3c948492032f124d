package domain

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	purchaseorderdomain "github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
)

const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

const (
	TriggerManual         = "manual"
	TriggerPaymentCreated = "payment.created"
	TriggerPaymentUpdated = "payment.updated"
	TriggerPaymentDeleted = "payment.deleted"
)

// Breakdown attributes the paid total to its evidence sources.
type Breakdown struct {
	InvoicePath    decimal.Decimal `json:"invoice_path"`
	DirectLink     decimal.Decimal `json:"direct_link"`
	ReferenceMatch decimal.Decimal `json:"reference_match"`
	// FundingPaymentIDs were attributed through invoice reconciliation.
	FundingPaymentIDs []snowflake.ID `json:"funding_payment_ids"`
	DirectPaymentIDs  []snowflake.ID `json:"direct_payment_ids"`
	MatchedPaymentIDs []snowflake.ID `json:"matched_payment_ids"`
	// SkippedPaymentIDs were found but already covered by a posted bill.
	SkippedPaymentIDs []snowflake.ID `json:"skipped_payment_ids"`
}

type Result struct {
	OrderID    snowflake.ID                      `json:"order_id"`
	TotalPaid  decimal.Decimal                   `json:"total_paid"`
	Percentage decimal.Decimal                   `json:"percentage"`
	Status     purchaseorderdomain.PaymentStatus `json:"status"`
	Breakdown  Breakdown                         `json:"breakdown"`
}

// Summary is the part of r persisted on the order.
func (r Result) Summary() purchaseorderdomain.PaymentSummary {
	return purchaseorderdomain.PaymentSummary{
		TotalPaid:  r.TotalPaid,
		Percentage: r.Percentage,
		Status:     r.Status,
	}
}

var (
	ErrInvalidOrder = errors.New("invalid_order")
	ErrNotFound     = errors.New("not_found")
)

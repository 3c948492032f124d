package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type State string

const (
	StateDraft     State = "draft"
	StateSent      State = "sent"
	StateToApprove State = "to_approve"
	StatePurchase  State = "purchase"
	StateDone      State = "done"
	StateCancel    State = "cancel"
)

func (s State) Valid() bool {
	switch s {
	case StateDraft, StateSent, StateToApprove, StatePurchase, StateDone, StateCancel:
		return true
	}
	return false
}

// PaymentStatus is derived by the reconciliation engine.
type PaymentStatus string

const (
	PaymentStatusNoPaid  PaymentStatus = "no_paid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type ReceiptStatus string

const (
	ReceiptStatusNo      ReceiptStatus = "no"
	ReceiptStatusPartial ReceiptStatus = "partial"
	ReceiptStatusFull    ReceiptStatus = "full"
)

type ProductType string

const (
	ProductTypeStorable   ProductType = "product"
	ProductTypeConsumable ProductType = "consu"
	ProductTypeService    ProductType = "service"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeStorable, ProductTypeConsumable, ProductTypeService:
		return true
	}
	return false
}

// Stockable lines take part in receipt tracking.
func (t ProductType) Stockable() bool {
	return t == ProductTypeStorable || t == ProductTypeConsumable
}

var supplyMonths = map[string]struct{}{
	"january": {}, "february": {}, "march": {}, "april": {},
	"may": {}, "june": {}, "july": {}, "august": {},
	"september": {}, "october": {}, "november": {}, "december": {},
}

// ValidSupplyMonth reports whether m is an English month name in lower case.
func ValidSupplyMonth(m string) bool {
	_, ok := supplyMonths[m]
	return ok
}

type Order struct {
	ID                   snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name                 string          `gorm:"not null;uniqueIndex:ux_purchase_orders_name" json:"name"`
	VendorID             snowflake.ID    `gorm:"not null;index" json:"vendor_id"`
	State                State           `gorm:"type:text;not null;default:'draft'" json:"state"`
	Currency             string          `gorm:"not null;default:''" json:"currency"`
	AmountTotal          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount_total"`
	TotalPaid            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_paid"`
	PaymentPercentage    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"payment_percentage"`
	PaymentStatus        PaymentStatus   `gorm:"type:text;not null;default:'no_paid'" json:"payment_status"`
	ReceiptStatus        ReceiptStatus   `gorm:"type:text;not null;default:'no'" json:"receipt_status"`
	RequestingDepartment string          `gorm:"not null;default:''" json:"requesting_department,omitempty"`
	SupplyMonth          string          `gorm:"not null;default:''" json:"supply_month,omitempty"`
	Observations         string          `gorm:"not null;default:''" json:"observations,omitempty"`
	ElaboratedBy         string          `gorm:"not null;default:''" json:"elaborated_by,omitempty"`
	ReceivedBy           string          `gorm:"not null;default:''" json:"received_by,omitempty"`
	TreasuryApproved     bool            `gorm:"not null;default:false" json:"treasury_approved"`
	TreasuryApprovedBy   string          `gorm:"not null;default:''" json:"treasury_approved_by,omitempty"`
	TreasuryApprovedAt   *time.Time      `json:"treasury_approved_at,omitempty"`
	CancellationDates    string          `gorm:"not null;default:''" json:"cancellation_dates,omitempty"`
	OrderedAt            time.Time       `gorm:"not null" json:"ordered_at"`
	CreatedAt            time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"not null" json:"updated_at"`

	Lines []Line `gorm:"-" json:"lines,omitempty"`
}

func (Order) TableName() string { return "purchase_orders" }

// FormattedDate renders OrderedAt as dd/mm/yy.
func (o Order) FormattedDate() string {
	if o.OrderedAt.IsZero() {
		return ""
	}
	return o.OrderedAt.Format("02/01/06")
}

type Line struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID       snowflake.ID    `gorm:"not null;index" json:"order_id"`
	Description   string          `gorm:"not null;default:''" json:"description"`
	ProductType   ProductType     `gorm:"type:text;not null;default:'consu'" json:"product_type"`
	ProductQty    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"product_qty"`
	QtyReceived   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"qty_received"`
	ReceiptStatus ReceiptStatus   `gorm:"type:text;not null;default:'no'" json:"receipt_status"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

func (Line) TableName() string { return "purchase_order_lines" }

// PaymentSummary is the derived payment state written back onto an order.
type PaymentSummary struct {
	TotalPaid  decimal.Decimal
	Percentage decimal.Decimal
	Status     PaymentStatus
}

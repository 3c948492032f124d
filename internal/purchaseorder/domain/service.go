package domain

import (
	"context"
	"errors"
	"time"

	vendordomain "github.com/smallbiznis/purchasing/internal/supplier/domain"
)

type CreateLineRequest struct {
	Description string
	ProductType string
	ProductQty  string
}

type CreateOrderRequest struct {
	// Name is generated when empty or PlaceholderName.
	Name                 string
	VendorID             string
	State                string
	Currency             string
	AmountTotal          string
	RequestingDepartment string
	SupplyMonth          string
	Observations         string
	ElaboratedBy         string
	ReceivedBy           string
	OrderedAt            *time.Time
	Lines                []CreateLineRequest
}

type ReceiveLineRequest struct {
	LineID      string
	QtyReceived string
}

type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	// PreviewNextName returns the name the next generated order would get.
	PreviewNextName(ctx context.Context) (string, error)
	Confirm(ctx context.Context, id string) (Order, error)
	ApproveByTreasury(ctx context.Context, id, approver string) (Order, error)
	// RegisterPaymentDate appends date (today when nil) to the order's
	// cancellation dates.
	RegisterPaymentDate(ctx context.Context, id string, date *time.Time) (Order, error)
	ReceiveLines(ctx context.Context, id string, lines []ReceiveLineRequest) (Order, error)
	SupplierBankInfo(ctx context.Context, id string) (vendordomain.BankInfo, error)
	PurchaseContact(ctx context.Context, id string) (vendordomain.ContactInfo, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidVendor      = errors.New("invalid_vendor")
	ErrInvalidState       = errors.New("invalid_state")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidSupplyMonth = errors.New("invalid_supply_month")
	ErrInvalidProductType = errors.New("invalid_product_type")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidLine        = errors.New("invalid_line")
	ErrInvalidApprover    = errors.New("invalid_approver")
	ErrInvalidTransition  = errors.New("invalid_state_transition")
	ErrNameConflict       = errors.New("order_name_conflict")
	ErrNumberingBusy      = errors.New("order_numbering_busy")
	ErrNotFound           = errors.New("not_found")
)

package domain

import (
	"context"
	"errors"
	"time"
)

type CreatePaymentRequest struct {
	VendorID             string
	PurchaseOrderID      string
	MoveID               string
	Direction            string
	State                string
	Amount               string
	Currency             string
	Memo                 *string
	PaymentReference     *string
	PaymentDate          *time.Time
	ReconciledInvoiceIDs []string
}

// UpdatePaymentRequest applies the non-nil fields. An empty
// PurchaseOrderID unlinks the payment from its order.
type UpdatePaymentRequest struct {
	VendorID             *string
	PurchaseOrderID      *string
	State                *string
	Amount               *string
	Memo                 *string
	PaymentReference     *string
	PaymentDate          *time.Time
	ReconciledInvoiceIDs *[]string
}

type Service interface {
	Create(ctx context.Context, req CreatePaymentRequest) (Payment, error)
	Get(ctx context.Context, id string) (Payment, error)
	Update(ctx context.Context, id string, req UpdatePaymentRequest) (Payment, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidVendor    = errors.New("invalid_vendor")
	ErrInvalidOrder     = errors.New("invalid_purchase_order")
	ErrInvalidDirection = errors.New("invalid_direction")
	ErrInvalidState     = errors.New("invalid_state")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidInvoice   = errors.New("invalid_invoice")
	ErrNotFound         = errors.New("not_found")
)

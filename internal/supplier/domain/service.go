package domain

import (
	"context"
	"errors"
)

type CreateVendorRequest struct {
	Name           string
	TaxID          string
	Email          string
	Phone          string
	Mobile         string
	IsMainSupplier bool
	DeliveryDays   *int
	Notes          string
	Status         string
}

type AddContactRequest struct {
	VendorID    string
	Name        string
	JobFunction string
	Email       string
	Phone       string
	Mobile      string
}

type AddBankAccountRequest struct {
	VendorID      string
	BankName      string
	AccountNumber string
	CCINumber     string
	AccountType   string
	IsMain        bool
}

type SearchRequest struct {
	Query string
	Limit int
}

type Service interface {
	Create(ctx context.Context, req CreateVendorRequest) (Vendor, error)
	Get(ctx context.Context, id string) (Vendor, error)
	AddContact(ctx context.Context, req AddContactRequest) (Contact, error)
	AddBankAccount(ctx context.Context, req AddBankAccountRequest) (BankAccount, error)
	MainBankAccount(ctx context.Context, vendorID string) (BankInfo, error)
	BankAccountDisplayNames(ctx context.Context, vendorID string) ([]string, error)
	PurchaseContact(ctx context.Context, vendorID string) (ContactInfo, error)
	Search(ctx context.Context, req SearchRequest) ([]Vendor, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidAccountType = errors.New("invalid_account_type")
	ErrInvalidDelivery    = errors.New("invalid_delivery_days")
	ErrNotFound           = errors.New("not_found")
)

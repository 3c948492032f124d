package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusBlacklist  Status = "blacklist"
	StatusEvaluation Status = "evaluation"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusBlacklist, StatusEvaluation:
		return true
	}
	return false
}

const DefaultDeliveryDays = 7

type Vendor struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Name           string       `gorm:"not null" json:"name"`
	TaxID          string       `gorm:"column:tax_id;not null;default:''" json:"tax_id,omitempty"`
	Email          string       `gorm:"not null;default:''" json:"email,omitempty"`
	Phone          string       `gorm:"not null;default:''" json:"phone,omitempty"`
	Mobile         string       `gorm:"not null;default:''" json:"mobile,omitempty"`
	IsMainSupplier bool         `gorm:"not null;default:false" json:"is_main_supplier"`
	DeliveryDays   int          `gorm:"not null;default:7" json:"delivery_days"`
	Notes          string       `gorm:"not null;default:''" json:"notes,omitempty"`
	Status         Status       `gorm:"type:text;not null;default:'active'" json:"status"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

func (Vendor) TableName() string { return "vendors" }

// Contact is a person attached to a vendor.
type Contact struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	VendorID    snowflake.ID `gorm:"not null;index" json:"vendor_id"`
	Name        string       `gorm:"not null" json:"name"`
	JobFunction string       `gorm:"column:job_function;not null;default:''" json:"job_function,omitempty"`
	Email       string       `gorm:"not null;default:''" json:"email,omitempty"`
	Phone       string       `gorm:"not null;default:''" json:"phone,omitempty"`
	Mobile      string       `gorm:"not null;default:''" json:"mobile,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (Contact) TableName() string { return "vendor_contacts" }

type AccountType string

const (
	AccountTypeSavings  AccountType = "savings"
	AccountTypeChecking AccountType = "checking"
	AccountTypeCTS      AccountType = "cts"
	AccountTypeOther    AccountType = "other"
)

var accountTypeLabels = map[AccountType]string{
	AccountTypeSavings:  "Savings",
	AccountTypeChecking: "Checking",
	AccountTypeCTS:      "CTS",
	AccountTypeOther:    "Other",
}

// Label returns the display label, or "" for unknown types.
func (t AccountType) Label() string {
	return accountTypeLabels[t]
}

func (t AccountType) Valid() bool {
	_, ok := accountTypeLabels[t]
	return ok
}

// BankAccount belongs to a vendor. AccountType is optional; accounts
// imported before the type existed carry nil.
type BankAccount struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	VendorID      snowflake.ID `gorm:"not null;index" json:"vendor_id"`
	BankName      string       `gorm:"not null;default:''" json:"bank_name,omitempty"`
	AccountNumber string       `gorm:"not null;default:''" json:"account_number,omitempty"`
	CCINumber     string       `gorm:"column:cci_number;not null;default:''" json:"cci_number,omitempty"`
	AccountType   *AccountType `gorm:"type:text" json:"account_type,omitempty"`
	IsMain        bool         `gorm:"not null;default:false" json:"is_main"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
}

func (BankAccount) TableName() string { return "vendor_bank_accounts" }

type BankInfo struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	CCINumber     string `json:"cci_number"`
	AccountType   string `json:"account_type"`
}

type ContactInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

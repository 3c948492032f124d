package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, vendor *Vendor) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Vendor, error)
	SearchByName(ctx context.Context, db *gorm.DB, query string, limit int) ([]Vendor, error)
	SearchByTaxID(ctx context.Context, db *gorm.DB, query string, limit int) ([]Vendor, error)

	InsertContact(ctx context.Context, db *gorm.DB, contact *Contact) error
	ListContacts(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]Contact, error)

	InsertBankAccount(ctx context.Context, db *gorm.DB, account *BankAccount) error
	ListBankAccounts(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]BankAccount, error)
}

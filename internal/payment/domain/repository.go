package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	ListReconciledInvoices(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]snowflake.ID, error)
	ReplaceReconciledInvoices(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, invoiceIDs []snowflake.ID) error
}

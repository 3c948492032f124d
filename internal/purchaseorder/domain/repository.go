package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertLines(ctx context.Context, db *gorm.DB, lines []Line) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindLines(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Line, error)
	// LastNameWithPrefix returns the highest order name starting with prefix,
	// or "" when none exists.
	LastNameWithPrefix(ctx context.Context, db *gorm.DB, prefix string) (string, error)

	UpdatePaymentSummary(ctx context.Context, db *gorm.DB, id snowflake.ID, summary PaymentSummary, now time.Time) error
	UpdateTreasuryApproval(ctx context.Context, db *gorm.DB, id snowflake.ID, approvedBy string, now time.Time) error
	UpdateCancellationDates(ctx context.Context, db *gorm.DB, id snowflake.ID, dates string, now time.Time) error
	UpdateState(ctx context.Context, db *gorm.DB, id snowflake.ID, state State, receipt ReceiptStatus, now time.Time) error
	UpdateLineReceipt(ctx context.Context, db *gorm.DB, lineID snowflake.ID, received decimal.Decimal, status ReceiptStatus, now time.Time) error
	UpdateReceiptStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status ReceiptStatus, now time.Time) error
}

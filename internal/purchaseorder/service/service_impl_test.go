package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/purchasing/internal/clock"
	"github.com/smallbiznis/purchasing/internal/config"
	"github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
	"github.com/smallbiznis/purchasing/internal/purchaseorder/repository"
	vendordomain "github.com/smallbiznis/purchasing/internal/supplier/domain"
	vendorrepository "github.com/smallbiznis/purchasing/internal/supplier/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	svc    domain.Service
	clock  *clock.FakeClock
	vendor vendordomain.Vendor
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&vendordomain.Vendor{},
		&vendordomain.Contact{},
		&vendordomain.BankAccount{},
		&domain.Order{},
		&domain.Line{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC))

	vendor := vendordomain.Vendor{
		ID:        node.Generate(),
		Name:      "Acme",
		Phone:     "111",
		Email:     "sales@acme.test",
		Status:    vendordomain.StatusActive,
		CreatedAt: clk.Now(),
		UpdatedAt: clk.Now(),
	}
	require.NoError(t, db.Create(&vendor).Error)

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Config:     config.Config{NumberingMaxAttempts: 3, NumberingLockTTL: time.Second},
		Repo:       repository.Provide(),
		VendorRepo: vendorrepository.Provide(),
	})
	return &testEnv{db: db, svc: svc, clock: clk, vendor: vendor}
}

func (e *testEnv) seedOrderName(t *testing.T, id int64, name string) {
	t.Helper()
	now := e.clock.Now()
	require.NoError(t, e.db.Create(&domain.Order{
		ID:            snowflake.ID(id),
		Name:          name,
		VendorID:      e.vendor.ID,
		State:         domain.StateDraft,
		PaymentStatus: domain.PaymentStatusNoPaid,
		ReceiptStatus: domain.ReceiptStatusNo,
		OrderedAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Error)
}

func TestCreateGeneratesSequentialNames(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Create(ctx, domain.CreateOrderRequest{VendorID: env.vendor.ID.String(), AmountTotal: "300"})
	require.NoError(t, err)
	assert.Equal(t, "2025-0001", first.Name)

	second, err := env.svc.Create(ctx, domain.CreateOrderRequest{Name: "New", VendorID: env.vendor.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "2025-0002", second.Name)

	preview, err := env.svc.PreviewNextName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-0003", preview)
}

func TestCreateContinuesFromHighestName(t *testing.T) {
	env := setupTestEnv(t)
	env.seedOrderName(t, 1, "2025-0042")
	env.seedOrderName(t, 2, "2024-0107")

	order, err := env.svc.Create(context.Background(), domain.CreateOrderRequest{VendorID: env.vendor.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "2025-0043", order.Name)
}

func TestCreateContinuesPastFourDigits(t *testing.T) {
	env := setupTestEnv(t)
	env.seedOrderName(t, 1, "2025-9999")
	env.seedOrderName(t, 2, "2025-10000")

	order, err := env.svc.Create(context.Background(), domain.CreateOrderRequest{VendorID: env.vendor.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "2025-10001", order.Name)

	preview, err := env.svc.PreviewNextName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-10002", preview)
}

func TestCreateRestartsOnUnparsableName(t *testing.T) {
	env := setupTestEnv(t)
	env.seedOrderName(t, 1, "2025-ABC")

	order, err := env.svc.Create(context.Background(), domain.CreateOrderRequest{VendorID: env.vendor.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "2025-0001", order.Name)
}

func TestCreateReportsConflictAfterRetries(t *testing.T) {
	env := setupTestEnv(t)
	env.seedOrderName(t, 1, "2025-ABCDE")
	env.seedOrderName(t, 2, "2025-0001")

	_, err := env.svc.Create(context.Background(), domain.CreateOrderRequest{VendorID: env.vendor.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNameConflict)

	var count int64
	require.NoError(t, env.db.Model(&domain.Order{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCreateWithExplicitName(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, domain.CreateOrderRequest{Name: "LEGACY-7", VendorID: env.vendor.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "LEGACY-7", order.Name)

	_, err = env.svc.Create(ctx, domain.CreateOrderRequest{Name: "LEGACY-7", VendorID: env.vendor.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNameConflict)
}

func TestCreateValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	vendorID := env.vendor.ID.String()

	_, err := env.svc.Create(ctx, domain.CreateOrderRequest{VendorID: "999"})
	assert.ErrorIs(t, err, domain.ErrInvalidVendor)

	_, err = env.svc.Create(ctx, domain.CreateOrderRequest{VendorID: vendorID, AmountTotal: "-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = env.svc.Create(ctx, domain.CreateOrderRequest{VendorID: vendorID, SupplyMonth: "smarch"})
	assert.ErrorIs(t, err, domain.ErrInvalidSupplyMonth)

	_, err = env.svc.Create(ctx, domain.CreateOrderRequest{VendorID: vendorID, State: "archived"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = env.svc.Create(ctx, domain.CreateOrderRequest{VendorID: vendorID, Lines: []domain.CreateLineRequest{{ProductQty: "0"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestApproveByTreasury(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, domain.CreateOrderRequest{VendorID: env.vendor.ID.String()})
	require.NoError(t, err)

	_, err = env.svc.ApproveByTreasury(ctx, order.ID.String(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidApprover)

	approved, err := env.svc.ApproveByTreasury(ctx, order.ID.String(), "Maria Treasury")
	require.NoError(t, err)
	assert.True(t, approved.TreasuryApproved)
	assert.Equal(t, "Maria Treasury", approved.TreasuryApprovedBy)
	require.NotNil(t, approved.TreasuryApprovedAt)

	_, err = env.svc.ApproveByTreasury(ctx, "4242", "Maria")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisterPaymentDateAppends(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, domain.CreateOrderRequest{VendorID: env.vendor.ID.String()})
	require.NoError(t, err)

	updated, err := env.svc.RegisterPaymentDate(ctx, order.ID.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, "20/05/2025", updated.CancellationDates)

	paidOn := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	updated, err = env.svc.RegisterPaymentDate(ctx, order.ID.String(), &paidOn)
	require.NoError(t, err)
	assert.Equal(t, "20/05/2025, 03/06/2025", updated.CancellationDates)
}

func TestConfirmAndReceiveLines(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, domain.CreateOrderRequest{
		VendorID: env.vendor.ID.String(),
		Lines: []domain.CreateLineRequest{
			{Description: "Cement", ProductType: "product", ProductQty: "10"},
			{Description: "Install", ProductType: "service", ProductQty: "1"},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, domain.ReceiptStatusNo, order.ReceiptStatus)

	_, err = env.svc.ReceiveLines(ctx, order.ID.String(), []domain.ReceiveLineRequest{{LineID: order.Lines[0].ID.String(), QtyReceived: "4"}})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	confirmed, err := env.svc.Confirm(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatePurchase, confirmed.State)

	received, err := env.svc.ReceiveLines(ctx, order.ID.String(), []domain.ReceiveLineRequest{{LineID: order.Lines[0].ID.String(), QtyReceived: "4"}})
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptStatusPartial, received.ReceiptStatus)
	assert.Equal(t, domain.ReceiptStatusPartial, received.Lines[0].ReceiptStatus)
	assert.True(t, decimal.NewFromInt(4).Equal(received.Lines[0].QtyReceived))

	received, err = env.svc.ReceiveLines(ctx, order.ID.String(), []domain.ReceiveLineRequest{{LineID: order.Lines[0].ID.String(), QtyReceived: "10"}})
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptStatusFull, received.ReceiptStatus)
	assert.Equal(t, domain.ReceiptStatusNo, received.Lines[1].ReceiptStatus)

	_, err = env.svc.ReceiveLines(ctx, order.ID.String(), []domain.ReceiveLineRequest{{LineID: "77", QtyReceived: "1"}})
	assert.ErrorIs(t, err, domain.ErrInvalidLine)

	_, err = env.svc.Confirm(ctx, order.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSupplierBankInfoUsesEmptyFallbacks(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	order, err := env.svc.Create(ctx, domain.CreateOrderRequest{VendorID: env.vendor.ID.String()})
	require.NoError(t, err)

	info, err := env.svc.SupplierBankInfo(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, vendordomain.BankInfo{}, info)

	checking := vendordomain.AccountTypeChecking
	require.NoError(t, env.db.Create(&vendordomain.BankAccount{
		ID:          snowflake.ID(9001),
		VendorID:    env.vendor.ID,
		BankName:    "BCP",
		AccountType: &checking,
		CreatedAt:   env.clock.Now(),
	}).Error)

	info, err = env.svc.SupplierBankInfo(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, vendordomain.BankInfo{BankName: "BCP", AccountType: "Checking"}, info)

	contact, err := env.svc.PurchaseContact(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, vendordomain.ContactInfo{Name: "Acme", Phone: "111", Email: "sales@acme.test"}, contact)
}

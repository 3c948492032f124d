package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/purchasing/internal/clock"
	"github.com/smallbiznis/purchasing/internal/supplier/domain"
	"github.com/smallbiznis/purchasing/internal/supplier/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestService(t *testing.T) domain.Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Vendor{}, &domain.Contact{}, &domain.BankAccount{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateVendorDefaults(t *testing.T) {
	svc := setupTestService(t)

	vendor, err := svc.Create(context.Background(), domain.CreateVendorRequest{Name: "  Acme SAC "})
	require.NoError(t, err)
	assert.Equal(t, "Acme SAC", vendor.Name)
	assert.Equal(t, domain.StatusActive, vendor.Status)
	assert.Equal(t, 7, vendor.DeliveryDays)

	_, err = svc.Create(context.Background(), domain.CreateVendorRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(context.Background(), domain.CreateVendorRequest{Name: "X", Status: "retired"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestMainBankAccount(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	vendor, err := svc.Create(ctx, domain.CreateVendorRequest{Name: "Acme"})
	require.NoError(t, err)

	info, err := svc.MainBankAccount(ctx, vendor.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "N/A", info.BankName)

	_, err = svc.AddBankAccount(ctx, domain.AddBankAccountRequest{VendorID: vendor.ID.String(), BankName: "BCP", AccountNumber: "191"})
	require.NoError(t, err)
	_, err = svc.AddBankAccount(ctx, domain.AddBankAccountRequest{VendorID: vendor.ID.String(), BankName: "BBVA", AccountNumber: "011", AccountType: "Savings", IsMain: true})
	require.NoError(t, err)

	info, err = svc.MainBankAccount(ctx, vendor.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.BankInfo{BankName: "BBVA", AccountNumber: "011", CCINumber: "N/A", AccountType: "Savings"}, info)

	names, err := svc.BankAccountDisplayNames(ctx, vendor.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"BCP - 191", "BBVA - 011"}, names)

	_, err = svc.AddBankAccount(ctx, domain.AddBankAccountRequest{VendorID: vendor.ID.String(), AccountType: "crypto"})
	assert.ErrorIs(t, err, domain.ErrInvalidAccountType)
}

func TestPurchaseContact(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	vendor, err := svc.Create(ctx, domain.CreateVendorRequest{Name: "Acme", Phone: "111", Email: "a@acme.test"})
	require.NoError(t, err)
	_, err = svc.AddContact(ctx, domain.AddContactRequest{VendorID: vendor.ID.String(), Name: "Luis", JobFunction: "Compras"})
	require.NoError(t, err)

	info, err := svc.PurchaseContact(ctx, vendor.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.ContactInfo{Name: "Luis", Phone: "111", Email: "a@acme.test"}, info)

	_, err = svc.PurchaseContact(ctx, "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.PurchaseContact(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestSearchByNameThenTaxID(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	acme, err := svc.Create(ctx, domain.CreateVendorRequest{Name: "Acme 2045", TaxID: "20451234567"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, domain.CreateVendorRequest{Name: "Globex", TaxID: "20459999999"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateVendorRequest{Name: "Initech", TaxID: "10101010101"})
	require.NoError(t, err)

	result, err := svc.Search(ctx, domain.SearchRequest{Query: "2045"})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, acme.ID, result[0].ID)
	assert.Equal(t, other.ID, result[1].ID)

	result, err = svc.Search(ctx, domain.SearchRequest{Query: "2045", Limit: 1})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, acme.ID, result[0].ID)

	result, err = svc.Search(ctx, domain.SearchRequest{Query: "GLOB"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, other.ID, result[0].ID)
}

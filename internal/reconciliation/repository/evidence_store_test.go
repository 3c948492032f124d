package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/purchasing/internal/payment/domain"
	"github.com/smallbiznis/purchasing/internal/reconciliation/domain"
	"github.com/smallbiznis/purchasing/internal/reconciliation/reconciliationtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (domain.EvidenceStore, reconciliationtest.Scenario, func(paymentdomain.Payment) snowflake.ID) {
	t.Helper()
	db := reconciliationtest.OpenDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	scenario := reconciliationtest.SeedThreePath(t, db, node, now)
	create := func(p paymentdomain.Payment) snowflake.ID {
		return reconciliationtest.CreatePayment(t, db, node, now, p)
	}
	return NewEvidenceStore(db), scenario, create
}

func TestFindInvoicesByOrder(t *testing.T) {
	store, s, _ := setup(t)

	invoices, err := store.FindInvoices(context.Background(), s.OrderID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, s.BillID, invoices[0].ID)
	assert.True(t, invoices[0].IsPostedVendorBill())
	assert.True(t, decimal.NewFromInt(150).Equal(invoices[0].PaidAmount()))
}

func TestFindFundingPaymentsFollowsLedger(t *testing.T) {
	store, s, _ := setup(t)
	ctx := context.Background()

	ids, err := store.FindFundingPayments(ctx, []snowflake.ID{s.BillID})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{s.Funding}, ids)

	ids, err = store.FindFundingPayments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFindPaymentsFilters(t *testing.T) {
	store, s, create := setup(t)
	ctx := context.Background()

	orderID := s.OrderID
	direct, err := store.FindPayments(ctx, domain.PaymentFilter{
		OrderID:    &orderID,
		ExcludeIDs: []snowflake.ID{s.Funding},
		States:     []string{"paid", "in_process"},
		Direction:  domain.DirectionOutbound,
	})
	require.NoError(t, err)
	require.Len(t, direct, 2)
	assert.Equal(t, s.Direct, direct[0].ID)
	assert.Empty(t, direct[0].ReconciledInvoiceIDs)
	assert.Equal(t, s.Covered, direct[1].ID)
	assert.Equal(t, []snowflake.ID{s.BillID}, direct[1].ReconciledInvoiceIDs)

	draft := create(paymentdomain.Payment{
		VendorID:        s.VendorID,
		PurchaseOrderID: &orderID,
		State:           paymentdomain.StateDraft,
		Amount:          decimal.NewFromInt(5),
	})
	onlyDraft, err := store.FindPayments(ctx, domain.PaymentFilter{OrderID: &orderID, States: []string{"draft"}})
	require.NoError(t, err)
	require.Len(t, onlyDraft, 1)
	assert.Equal(t, draft, onlyDraft[0].ID)
}

func TestFindPaymentsReferenceMatch(t *testing.T) {
	store, s, create := setup(t)
	ctx := context.Background()

	ref := "TRX 2025-0007 OK"
	byRef := create(paymentdomain.Payment{
		VendorID:         s.VendorID,
		PaymentReference: &ref,
		Amount:           decimal.NewFromInt(1),
	})
	wildcard := "2025_0007"
	literal := create(paymentdomain.Payment{
		VendorID: s.VendorID,
		Memo:     &wildcard,
		Amount:   decimal.NewFromInt(1),
	})

	vendorID := s.VendorID
	matches, err := store.FindPayments(ctx, domain.PaymentFilter{
		VendorID:          &vendorID,
		ReferenceContains: reconciliationtest.OrderName,
	})
	require.NoError(t, err)

	ids := make([]snowflake.ID, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []snowflake.ID{s.Matched, byRef}, ids)

	// An underscore in the needle matches only itself.
	escaped, err := store.FindPayments(ctx, domain.PaymentFilter{
		VendorID:          &vendorID,
		ReferenceContains: wildcard,
	})
	require.NoError(t, err)
	require.Len(t, escaped, 1)
	assert.Equal(t, literal, escaped[0].ID)

	upper, err := store.FindPayments(ctx, domain.PaymentFilter{
		VendorID:          &vendorID,
		ReferenceContains: "pago 2025-0007",
	})
	require.NoError(t, err)
	require.Len(t, upper, 1)
	assert.Equal(t, s.Matched, upper[0].ID)
}

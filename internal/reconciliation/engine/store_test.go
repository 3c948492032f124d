package engine

import (
	"context"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/purchasing/internal/reconciliation/domain"
)

// memoryStore applies PaymentFilter the way the gorm store does.
type memoryStore struct {
	invoices []domain.Invoice
	funding  map[snowflake.ID][]snowflake.ID
	payments []domain.Payment

	filters []domain.PaymentFilter
}

func (s *memoryStore) FindInvoices(_ context.Context, orderID snowflake.ID) ([]domain.Invoice, error) {
	var out []domain.Invoice
	for _, inv := range s.invoices {
		if inv.OrderID != nil && *inv.OrderID == orderID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *memoryStore) FindFundingPayments(_ context.Context, invoiceIDs []snowflake.ID) ([]snowflake.ID, error) {
	var out []snowflake.ID
	for _, id := range invoiceIDs {
		out = append(out, s.funding[id]...)
	}
	return out, nil
}

func (s *memoryStore) FindPayments(_ context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	s.filters = append(s.filters, f)

	var out []domain.Payment
	for _, p := range s.payments {
		if slices.Contains(f.ExcludeIDs, p.ID) {
			continue
		}
		if f.OrderID != nil && (p.OrderID == nil || *p.OrderID != *f.OrderID) {
			continue
		}
		if f.VendorID != nil && p.VendorID != *f.VendorID {
			continue
		}
		if len(f.States) > 0 && !slices.Contains(f.States, p.State) {
			continue
		}
		if f.Direction != "" && p.Direction != f.Direction {
			continue
		}
		if f.ReferenceContains != "" && !containsFold(p.Memo, f.ReferenceContains) && !containsFold(p.PaymentReference, f.ReferenceContains) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func containsFold(s *string, needle string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), strings.ToLower(needle))
}

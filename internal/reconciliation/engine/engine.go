package engine

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/purchasing/internal/config"
	purchaseorderdomain "github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
	"github.com/smallbiznis/purchasing/internal/reconciliation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const percentageScale = 4

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	Log    *zap.Logger
	Config *config.ReconciliationConfigHolder `optional:"true"`
}

// Engine computes how much of an order has been paid from three evidence
// sources, in order: posted vendor bills, payments linked to the order, and
// vendor payments whose memo or reference mentions the order name. A payment
// is counted at most once per computation.
type Engine struct {
	log *zap.Logger
	cfg *config.ReconciliationConfigHolder
}

func New(p Params) *Engine {
	return &Engine{
		log: p.Log.Named("reconciliation.engine"),
		cfg: p.Config,
	}
}

// pass holds the state of one computation.
type pass struct {
	order  domain.OrderRef
	states []string
	// counted gates the direct and reference queries.
	counted domain.IDSet
	// bills are the posted vendor bills of the order.
	bills     domain.IDSet
	total     decimal.Decimal
	breakdown domain.Breakdown
}

// Compute is a pure function of the store snapshot: repeated calls without
// intervening writes return identical results. Store errors are returned
// as is.
func (e *Engine) Compute(ctx context.Context, store domain.EvidenceStore, order domain.OrderRef) (domain.Result, error) {
	if order.ID == 0 {
		return domain.Result{}, domain.ErrInvalidOrder
	}

	result := domain.Result{
		OrderID:    order.ID,
		TotalPaid:  decimal.Zero,
		Percentage: decimal.Zero,
		Status:     purchaseorderdomain.PaymentStatusNoPaid,
		Breakdown: domain.Breakdown{
			InvoicePath:    decimal.Zero,
			DirectLink:     decimal.Zero,
			ReferenceMatch: decimal.Zero,
		},
	}
	if !order.AmountTotal.IsPositive() {
		return result, nil
	}

	cfg := e.cfg.Get()
	p := &pass{
		order:   order,
		states:  cfg.CountedStates,
		counted: domain.NewIDSet(),
		bills:   domain.NewIDSet(),
		total:   decimal.Zero,
		breakdown: domain.Breakdown{
			InvoicePath:    decimal.Zero,
			DirectLink:     decimal.Zero,
			ReferenceMatch: decimal.Zero,
		},
	}

	if err := e.collectInvoicePath(ctx, store, p); err != nil {
		return domain.Result{}, fmt.Errorf("invoice path: %w", err)
	}
	if err := e.collectDirectLinks(ctx, store, p); err != nil {
		return domain.Result{}, fmt.Errorf("direct links: %w", err)
	}
	if err := e.collectReferenceMatches(ctx, store, p); err != nil {
		return domain.Result{}, fmt.Errorf("reference matches: %w", err)
	}

	percentage := p.total.Mul(hundred).Div(order.AmountTotal)

	result.TotalPaid = p.total
	result.Percentage = percentage.Round(percentageScale)
	result.Status = Classify(percentage, cfg.PaidThreshold)
	result.Breakdown = p.breakdown

	e.log.Debug("payment status computed",
		zap.String("order_id", order.ID.String()),
		zap.String("total_paid", result.TotalPaid.String()),
		zap.String("percentage", result.Percentage.String()),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

// collectInvoicePath counts total minus residual of every posted vendor bill
// and marks the payments that funded them as counted.
func (e *Engine) collectInvoicePath(ctx context.Context, store domain.EvidenceStore, p *pass) error {
	invoices, err := store.FindInvoices(ctx, p.order.ID)
	if err != nil {
		return err
	}

	billIDs := make([]snowflake.ID, 0, len(invoices))
	for _, inv := range invoices {
		if !inv.IsPostedVendorBill() {
			continue
		}
		if !p.bills.Add(inv.ID) {
			continue
		}
		billIDs = append(billIDs, inv.ID)
		paid := inv.PaidAmount()
		p.total = p.total.Add(paid)
		p.breakdown.InvoicePath = p.breakdown.InvoicePath.Add(paid)
	}
	if len(billIDs) == 0 {
		return nil
	}

	funding, err := store.FindFundingPayments(ctx, billIDs)
	if err != nil {
		return err
	}
	for _, id := range funding {
		if p.counted.Add(id) {
			p.breakdown.FundingPaymentIDs = append(p.breakdown.FundingPaymentIDs, id)
		}
	}
	return nil
}

// collectDirectLinks counts outbound payments that reference the order and
// are not already represented by a posted bill.
func (e *Engine) collectDirectLinks(ctx context.Context, store domain.EvidenceStore, p *pass) error {
	orderID := p.order.ID
	payments, err := store.FindPayments(ctx, domain.PaymentFilter{
		ExcludeIDs: p.counted.Slice(),
		OrderID:    &orderID,
		States:     p.states,
		Direction:  domain.DirectionOutbound,
	})
	if err != nil {
		return err
	}

	for _, pay := range payments {
		if p.counted.Has(pay.ID) {
			continue
		}
		if pay.ReconciledWithAny(p.bills) {
			p.breakdown.SkippedPaymentIDs = append(p.breakdown.SkippedPaymentIDs, pay.ID)
			continue
		}
		p.counted.Add(pay.ID)
		p.total = p.total.Add(pay.Amount)
		p.breakdown.DirectLink = p.breakdown.DirectLink.Add(pay.Amount)
		p.breakdown.DirectPaymentIDs = append(p.breakdown.DirectPaymentIDs, pay.ID)
	}
	return nil
}

// collectReferenceMatches counts vendor payments mentioning the order name.
// Matches are not added to the counted set; a substring hit is the weakest
// evidence and never gates another source.
func (e *Engine) collectReferenceMatches(ctx context.Context, store domain.EvidenceStore, p *pass) error {
	if p.order.Name == "" || p.order.VendorID == 0 {
		return nil
	}

	vendorID := p.order.VendorID
	payments, err := store.FindPayments(ctx, domain.PaymentFilter{
		ExcludeIDs:        p.counted.Slice(),
		VendorID:          &vendorID,
		States:            p.states,
		Direction:         domain.DirectionOutbound,
		ReferenceContains: p.order.Name,
	})
	if err != nil {
		return err
	}

	for _, pay := range payments {
		if p.counted.Has(pay.ID) {
			continue
		}
		if pay.ReconciledWithAny(p.bills) {
			p.breakdown.SkippedPaymentIDs = append(p.breakdown.SkippedPaymentIDs, pay.ID)
			continue
		}
		p.total = p.total.Add(pay.Amount)
		p.breakdown.ReferenceMatch = p.breakdown.ReferenceMatch.Add(pay.Amount)
		p.breakdown.MatchedPaymentIDs = append(p.breakdown.MatchedPaymentIDs, pay.ID)
	}
	return nil
}

// Classify maps a payment percentage to a status. The threshold absorbs
// rounding so that e.g. 99.995 counts as paid.
func Classify(percentage, paidThreshold decimal.Decimal) purchaseorderdomain.PaymentStatus {
	switch {
	case percentage.GreaterThanOrEqual(paidThreshold):
		return purchaseorderdomain.PaymentStatusPaid
	case percentage.IsPositive():
		return purchaseorderdomain.PaymentStatusPartial
	default:
		return purchaseorderdomain.PaymentStatusNoPaid
	}
}

package procurement

import (
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var decimalOne = decimal.NewFromInt(1)

// MatchEngine performs three-way matching: each invoice is judged against
// the purchase order baseline and the aggregated receipt totals under the
// tolerance policy resolved per line. The engine is pure; it never touches
// storage and never mutates its inputs.
type MatchEngine struct {
	aggregator *Aggregator
	policies   *PolicySet
}

// NewMatchEngine creates a MatchEngine bound to a resolved policy set
func NewMatchEngine(policies *PolicySet) *MatchEngine {
	return &MatchEngine{
		aggregator: NewAggregator(),
		policies:   policies,
	}
}

// EvaluateInvoice matches one invoice against its purchase order. Receipts
// and sibling invoices are the full live set for the order; quantity totals
// are aggregated across all of them, while prices are judged per line of the
// invoice under evaluation. Only that invoice's lines produce line results.
func (e *MatchEngine) EvaluateInvoice(po *PurchaseOrder, receipts []*GoodsReceipt, orderInvoices []*VendorInvoice, invoice *VendorInvoice) (*MatchResult, error) {
	if invoice == nil {
		return nil, shared.NewDomainError("INVALID_MATCH_INPUT", "Invoice is required")
	}
	if invoice.POID == nil {
		return nil, shared.NewDomainError("INVALID_MATCH_INPUT", "Invoice is not linked to a purchase order")
	}
	if !invoice.Status.CanMatch() {
		return nil, shared.NewDomainError("INVALID_MATCH_INPUT", "Invoice status does not allow matching")
	}

	aggregates, err := e.aggregator.AggregateOrder(po, receipts, orderInvoices)
	if err != nil {
		return nil, err
	}

	lineResults := make([]LineMatchResult, 0, len(invoice.Lines))
	for i := range invoice.Lines {
		il := &invoice.Lines[i]
		agg, ok := aggregates[il.POLineID]
		if !ok {
			return nil, shared.NewDomainError("INVALID_MATCH_INPUT", "Invoice line references an unknown purchase order line")
		}
		lineResults = append(lineResults, e.evaluateLine(po.VendorID, agg, il))
	}

	return NewMatchResult(invoice.ID, po.ID, lineResults)
}

// evaluateLine judges one invoice line.
//
// Quantity rule: the variance is the invoiced total minus the received total
// across all live documents. Over-billing beyond the quantity tolerance is a
// MISMATCH. Any strict under-billing is PARTIALLY_MATCHED regardless of
// tolerance: the invoice covers less than what was received, so billing is
// incomplete and the remainder may still be invoiced later. When billing
// ahead of receipt is allowed, over-billing is forgiven as long as the
// invoiced total stays within the ordered quantity plus tolerance.
//
// Price rule: the line's own unit price must stay within the price tolerance
// of the ordered price in either direction; a breach is a MISMATCH. When
// both dimensions breach, the result is MISMATCH with both variances
// reported; causes are not ranked.
//
// Zero-guard: a zero baseline makes the variance percentage undefined. A
// zero variance against it is defined as 0%; a nonzero one is UNRESOLVED
// rather than guessed at.
func (e *MatchEngine) evaluateLine(vendorID uuid.UUID, agg *LineAggregate, il *VendorInvoiceLine) LineMatchResult {
	line := agg.POLine
	policy := e.policies.Resolve(vendorID, line.ProductID, line.CategoryID)

	qtyVariance := agg.InvoicedQty.Sub(agg.ReceivedQty)
	priceVariance := il.UnitPrice.Sub(line.UnitPrice)

	result := LineMatchResult{
		ID:                     uuid.New(),
		POLineID:               line.ID,
		OrderedQty:             line.OrderedQty,
		ReceivedQty:            agg.ReceivedQty,
		InvoicedQty:            agg.InvoicedQty,
		InvoicedQtyThisInvoice: il.InvoicedQty,
		OrderedPrice:           line.UnitPrice,
		InvoicedUnit:           il.UnitPrice,
		QtyVariance:            qtyVariance,
		PriceVariance:          priceVariance,
	}

	status := MatchStatusMatched
	note := ""

	// Quantity dimension.
	qtyPct, qtyDefined := variancePct(qtyVariance, line.OrderedQty)
	if !qtyDefined {
		status = MaxMatchStatus(status, MatchStatusUnresolved)
		note = "quantity variance against a zero ordered quantity cannot be assessed"
	} else {
		result.QtyVariancePct = &qtyPct
		if qtyVariance.IsPositive() && qtyPct.GreaterThan(policy.QtyTolerancePct) {
			if policy.AllowBillBeforeReceipt && e.withinOrderedCeiling(agg.InvoicedQty, line.OrderedQty, policy.QtyTolerancePct) {
				// Billed ahead of receipt within the ordered ceiling.
			} else {
				status = MaxMatchStatus(status, MatchStatusMismatch)
				note = "invoiced quantity exceeds received quantity beyond tolerance"
			}
		} else if qtyVariance.IsNegative() {
			status = MaxMatchStatus(status, MatchStatusPartiallyMatched)
			note = "invoiced quantity falls short of received quantity; billing is incomplete"
		}
	}

	// Price dimension.
	pricePct, priceDefined := variancePct(priceVariance, line.UnitPrice)
	if !priceDefined {
		status = MaxMatchStatus(status, MatchStatusUnresolved)
		if note == "" {
			note = "price variance against a zero ordered price cannot be assessed"
		}
	} else {
		result.PriceVariancePct = &pricePct
		if pricePct.Abs().GreaterThan(policy.PriceTolerancePct) {
			status = MaxMatchStatus(status, MatchStatusMismatch)
			if note == "" {
				note = "invoiced unit price deviates from ordered price beyond tolerance"
			}
		}
	}

	// Over-receipt flag: received quantity above the ordered ceiling. This is
	// a receiving problem, not a billing one, so it never changes the status.
	if !line.OrderedQty.IsZero() {
		ceiling := line.OrderedQty.Mul(decimalOne.Add(policy.OverReceiptTolerancePct))
		if agg.ReceivedQty.GreaterThan(ceiling) {
			result.OverReceiptFlagged = true
		}
	}

	result.Status = status
	result.Notes = note
	return result
}

// variancePct divides variance by base. A zero base with zero variance is a
// defined 0%; a zero base with a nonzero variance is undefined.
func variancePct(variance, base decimal.Decimal) (decimal.Decimal, bool) {
	if base.IsZero() {
		if variance.IsZero() {
			return decimal.Zero, true
		}
		return decimal.Zero, false
	}
	return variance.Div(base), true
}

// withinOrderedCeiling reports whether the invoiced total stays at or below
// the ordered quantity inflated by the quantity tolerance.
func (e *MatchEngine) withinOrderedCeiling(invoicedQty, orderedQty, tolerancePct decimal.Decimal) bool {
	ceiling := orderedQty.Mul(decimalOne.Add(tolerancePct))
	return invoicedQty.LessThanOrEqual(ceiling)
}

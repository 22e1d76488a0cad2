package procurement

import (
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineAggregate collects everything known about one purchase order line at
// match time: the ordered baseline plus received and invoiced totals summed
// across all live documents. Lines with no receipts or no invoice lines carry
// zero totals rather than being absent.
type LineAggregate struct {
	POLine      PurchaseOrderLine
	ReceivedQty decimal.Decimal
	InvoicedQty decimal.Decimal
}

// Aggregator builds per-line aggregates for one purchase order. Cancelled
// receipts and voided invoices contribute nothing; their history stays in
// their own aggregates but is invisible here.
type Aggregator struct{}

// NewAggregator creates an Aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// AggregateOrder folds receipts and invoices into one LineAggregate per
// purchase order line, keyed by line ID. Every PO line gets an entry even
// when nothing was received or invoiced against it. Receipt or invoice lines
// referencing a line ID outside the order are rejected.
func (g *Aggregator) AggregateOrder(po *PurchaseOrder, receipts []*GoodsReceipt, invoices []*VendorInvoice) (map[uuid.UUID]*LineAggregate, error) {
	if po == nil {
		return nil, shared.NewDomainError("INVALID_AGGREGATION", "Purchase order is required")
	}

	aggregates := make(map[uuid.UUID]*LineAggregate, len(po.Lines))
	for i := range po.Lines {
		line := po.Lines[i]
		aggregates[line.ID] = &LineAggregate{
			POLine:      line,
			ReceivedQty: decimal.Zero,
			InvoicedQty: decimal.Zero,
		}
	}

	for _, receipt := range receipts {
		if receipt.Status != GoodsReceiptStatusPosted {
			continue
		}
		if receipt.POID != po.ID {
			return nil, shared.NewDomainError("INVALID_AGGREGATION", "Receipt belongs to a different purchase order")
		}
		for i := range receipt.Lines {
			rl := &receipt.Lines[i]
			agg, ok := aggregates[rl.POLineID]
			if !ok {
				return nil, shared.NewDomainError("INVALID_AGGREGATION", "Receipt line references an unknown purchase order line")
			}
			agg.ReceivedQty = agg.ReceivedQty.Add(rl.ReceivedQty)
		}
	}

	for _, invoice := range invoices {
		if invoice.Status == InvoiceStatusVoided {
			continue
		}
		if invoice.POID == nil || *invoice.POID != po.ID {
			return nil, shared.NewDomainError("INVALID_AGGREGATION", "Invoice is not linked to this purchase order")
		}
		for i := range invoice.Lines {
			il := &invoice.Lines[i]
			agg, ok := aggregates[il.POLineID]
			if !ok {
				return nil, shared.NewDomainError("INVALID_AGGREGATION", "Invoice line references an unknown purchase order line")
			}
			agg.InvoicedQty = agg.InvoicedQty.Add(il.InvoicedQty)
		}
	}

	return aggregates, nil
}

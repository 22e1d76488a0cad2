package procurement

import (
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineMatchResult is the outcome of matching one invoice line against the
// corresponding purchase order line and its receipt aggregate. All quantity
// and amount figures are snapshots taken at computation time.
type LineMatchResult struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ResultID uuid.UUID `gorm:"type:uuid;not null;index" json:"result_id"`
	POLineID uuid.UUID `gorm:"type:uuid;not null;index" json:"po_line_id"`

	OrderedQty  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"ordered_qty"`
	ReceivedQty decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"received_qty"`
	// InvoicedQty is the running total across all live invoices of the order;
	// InvoicedQtyThisInvoice is what the invoice under evaluation bills.
	InvoicedQty            decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"invoiced_qty"`
	InvoicedQtyThisInvoice decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"invoiced_qty_this_invoice"`
	OrderedPrice           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"ordered_price"`
	InvoicedUnit           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"invoiced_unit_price"`

	// QtyVariance is invoiced minus received; positive means over-billed.
	QtyVariance decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"qty_variance"`
	// QtyVariancePct is QtyVariance over the ordered quantity. Nil when the
	// ordered quantity is zero and the percentage is undefined.
	QtyVariancePct *decimal.Decimal `gorm:"type:decimal(18,6)" json:"qty_variance_pct,omitempty"`
	// PriceVariance is the invoiced unit price minus the ordered unit price.
	PriceVariance decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price_variance"`
	// PriceVariancePct is PriceVariance over the ordered unit price. Nil when
	// the ordered price is zero.
	PriceVariancePct *decimal.Decimal `gorm:"type:decimal(18,6)" json:"price_variance_pct,omitempty"`

	// OverReceiptFlagged marks receipts exceeding the ordered quantity beyond
	// the over-receipt tolerance. Informational; it does not affect Status.
	OverReceiptFlagged bool `gorm:"not null;default:false" json:"over_receipt_flagged"`

	Status MatchStatus `gorm:"type:varchar(30);not null" json:"status"`
	// Notes explains non-obvious outcomes, e.g. why a line is UNRESOLVED.
	Notes string `gorm:"type:text" json:"notes,omitempty"`
}

// TableName returns the table name for GORM
func (LineMatchResult) TableName() string {
	return "line_match_results"
}

// MatchResult is the persisted outcome of one reconciliation pass over an
// invoice. Results are replaced atomically per invoice; Version increments
// only when the new outcome differs from the stored one, so repeated
// recomputation over unchanged inputs is a no-op.
type MatchResult struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex" json:"invoice_id"`
	POID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"po_id"`
	Status      MatchStatus       `gorm:"type:varchar(30);not null;index" json:"status"`
	Version     int64             `gorm:"not null;default:1" json:"version"`
	ComputedAt  time.Time         `gorm:"not null" json:"computed_at"`
	LineResults []LineMatchResult `gorm:"foreignKey:ResultID;constraint:OnDelete:CASCADE" json:"line_results"`
}

// TableName returns the table name for GORM
func (MatchResult) TableName() string {
	return "match_results"
}

// NewMatchResult assembles a result from per-line outcomes. The document
// status is the most severe line status; an invoice with no lines is
// UNRESOLVED since nothing could be verified.
func NewMatchResult(invoiceID, poID uuid.UUID, lines []LineMatchResult) (*MatchResult, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MATCH_RESULT", "Invoice ID is required")
	}
	if poID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MATCH_RESULT", "Purchase order ID is required")
	}

	result := &MatchResult{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		POID:        poID,
		Status:      MatchStatusUnresolved,
		Version:     1,
		ComputedAt:  time.Now(),
		LineResults: lines,
	}

	if len(lines) > 0 {
		status := MatchStatusMatched
		for i := range lines {
			lines[i].ResultID = result.ID
			if lines[i].ID == uuid.Nil {
				lines[i].ID = uuid.New()
			}
			status = MaxMatchStatus(status, lines[i].Status)
		}
		result.Status = status
	}

	return result, nil
}

// SameOutcome reports whether two results carry identical matching outcomes,
// ignoring identifiers, versions and timestamps. Line results are compared by
// purchase order line regardless of storage order.
func (r *MatchResult) SameOutcome(other *MatchResult) bool {
	if other == nil {
		return false
	}
	if r.InvoiceID != other.InvoiceID || r.POID != other.POID || r.Status != other.Status {
		return false
	}
	if len(r.LineResults) != len(other.LineResults) {
		return false
	}

	byLine := make(map[uuid.UUID]*LineMatchResult, len(other.LineResults))
	for i := range other.LineResults {
		byLine[other.LineResults[i].POLineID] = &other.LineResults[i]
	}
	for i := range r.LineResults {
		a := &r.LineResults[i]
		b, ok := byLine[a.POLineID]
		if !ok || !a.sameOutcome(b) {
			return false
		}
	}
	return true
}

func (l *LineMatchResult) sameOutcome(other *LineMatchResult) bool {
	return l.Status == other.Status &&
		l.OverReceiptFlagged == other.OverReceiptFlagged &&
		l.OrderedQty.Equal(other.OrderedQty) &&
		l.ReceivedQty.Equal(other.ReceivedQty) &&
		l.InvoicedQty.Equal(other.InvoicedQty) &&
		l.InvoicedQtyThisInvoice.Equal(other.InvoicedQtyThisInvoice) &&
		l.OrderedPrice.Equal(other.OrderedPrice) &&
		l.InvoicedUnit.Equal(other.InvoicedUnit) &&
		l.QtyVariance.Equal(other.QtyVariance) &&
		l.PriceVariance.Equal(other.PriceVariance) &&
		equalOptDecimal(l.QtyVariancePct, other.QtyVariancePct) &&
		equalOptDecimal(l.PriceVariancePct, other.PriceVariancePct) &&
		l.Notes == other.Notes
}

func equalOptDecimal(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

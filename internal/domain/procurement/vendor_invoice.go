package procurement

import (
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle status of a vendor invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusPendingReview InvoiceStatus = "PENDING_REVIEW"
	InvoiceStatusMatched       InvoiceStatus = "MATCHED"
	InvoiceStatusMismatch      InvoiceStatus = "MISMATCH"
	InvoiceStatusApproved      InvoiceStatus = "APPROVED"
	InvoiceStatusRejected      InvoiceStatus = "REJECTED"
	InvoiceStatusPosted        InvoiceStatus = "POSTED"
	InvoiceStatusVoided        InvoiceStatus = "VOIDED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPendingReview, InvoiceStatusMatched,
		InvoiceStatusMismatch, InvoiceStatusApproved, InvoiceStatusRejected,
		InvoiceStatusPosted, InvoiceStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// MATCHED and MISMATCH are match-engine-driven states: the engine may move an
// unapproved invoice between them (and back to PENDING_REVIEW hold) as new
// receipts and policies arrive. POSTED, REJECTED and VOIDED are terminal.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return target == InvoiceStatusPendingReview || target == InvoiceStatusVoided
	case InvoiceStatusPendingReview:
		return target == InvoiceStatusMatched || target == InvoiceStatusMismatch ||
			target == InvoiceStatusPendingReview || target == InvoiceStatusVoided
	case InvoiceStatusMatched:
		return target == InvoiceStatusApproved || target == InvoiceStatusRejected ||
			target == InvoiceStatusMismatch || target == InvoiceStatusPendingReview ||
			target == InvoiceStatusVoided
	case InvoiceStatusMismatch:
		return target == InvoiceStatusApproved || target == InvoiceStatusRejected ||
			target == InvoiceStatusMatched || target == InvoiceStatusPendingReview ||
			target == InvoiceStatusVoided
	case InvoiceStatusApproved:
		return target == InvoiceStatusPosted
	case InvoiceStatusRejected, InvoiceStatusPosted, InvoiceStatusVoided:
		return false // Terminal states
	}
	return false
}

// CanMatch returns true if the matching engine may drive this status
func (s InvoiceStatus) CanMatch() bool {
	return s == InvoiceStatusPendingReview || s == InvoiceStatusMatched || s == InvoiceStatusMismatch
}

// IsTerminal returns true if no further transitions are possible
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusRejected || s == InvoiceStatusPosted || s == InvoiceStatusVoided
}

// VendorInvoiceLine is a single billed line of a vendor invoice, referencing
// the purchase order line it bills against. Multiple invoices may bill the
// same order line over time (partial billing).
type VendorInvoiceLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	POLineID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoicedQty decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VendorInvoiceLine) TableName() string {
	return "vendor_invoice_lines"
}

// NewVendorInvoiceLine creates a new vendor invoice line
func NewVendorInvoiceLine(invoiceID, poLineID uuid.UUID, invoicedQty, unitPrice decimal.Decimal) (*VendorInvoiceLine, error) {
	if poLineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PO_LINE", "Purchase order line ID cannot be empty")
	}
	if invoicedQty.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Invoiced quantity cannot be negative")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	return &VendorInvoiceLine{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		POLineID:    poLineID,
		InvoicedQty: invoicedQty,
		UnitPrice:   unitPrice,
		CreatedAt:   time.Now(),
	}, nil
}

// Amount returns the billed line amount
func (l *VendorInvoiceLine) Amount() decimal.Decimal {
	return l.InvoicedQty.Mul(l.UnitPrice)
}

// InvoiceLineInput is a line supplied when creating or replacing invoice lines
type InvoiceLineInput struct {
	POLineID    uuid.UUID       `json:"po_line_id"`
	InvoicedQty decimal.Decimal `json:"invoiced_qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// VendorInvoice is the aggregate root for a vendor's bill. Its status is the
// approval state machine; MATCHED/MISMATCH are entered only via the match
// engine verdict, APPROVED/REJECTED only via human action.
type VendorInvoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	VendorID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	POID          *uuid.UUID          `gorm:"type:uuid;index"` // Optional until manually linked; unlinked invoices are never matched
	Lines         []VendorInvoiceLine `gorm:"foreignKey:InvoiceID;references:ID"`
	Status        InvoiceStatus       `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	SubmittedAt   *time.Time          `gorm:"index"`
	DecidedAt     *time.Time
	DecidedBy     string `gorm:"type:varchar(100)"`
	DecisionNote  string `gorm:"type:varchar(500)"` // Override justification or rejection reason
	PostedAt      *time.Time
	VoidedAt      *time.Time
	VoidReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (VendorInvoice) TableName() string {
	return "vendor_invoices"
}

// NewVendorInvoice creates a new vendor invoice in DRAFT status
func NewVendorInvoice(invoiceNumber string, vendorID uuid.UUID, poID *uuid.UUID) (*VendorInvoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if poID != nil && *poID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Purchase order ID cannot be empty when linked")
	}

	invoice := &VendorInvoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		VendorID:          vendorID,
		POID:              poID,
		Lines:             make([]VendorInvoiceLine, 0),
		Status:            InvoiceStatusDraft,
	}

	invoice.AddDomainEvent(NewVendorInvoiceCreatedEvent(invoice))

	return invoice, nil
}

// IsLinked returns true if the invoice references a purchase order
func (v *VendorInvoice) IsLinked() bool {
	return v.POID != nil
}

// LinkPO links the invoice to a purchase order. Allowed while the invoice has
// not reached a human decision; a linked invoice cannot be re-linked.
func (v *VendorInvoice) LinkPO(poID uuid.UUID) error {
	if poID == uuid.Nil {
		return shared.NewDomainError("INVALID_ORDER", "Purchase order ID cannot be empty")
	}
	if v.IsLinked() {
		return shared.NewDomainError("ALREADY_LINKED", "Invoice is already linked to a purchase order")
	}
	if v.Status != InvoiceStatusDraft && v.Status != InvoiceStatusPendingReview {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot link a purchase order in %s status", v.Status))
	}

	v.POID = &poID
	v.UpdatedAt = time.Now()
	v.IncrementVersion()

	v.AddDomainEvent(NewVendorInvoiceLinesChangedEvent(v))

	return nil
}

// SetLines replaces the invoice lines. Allowed while the invoice is still
// being edited or held for review; a decided invoice keeps its lines.
func (v *VendorInvoice) SetLines(inputs []InvoiceLineInput) error {
	if v.Status != InvoiceStatusDraft && !v.Status.CanMatch() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot change lines in %s status", v.Status))
	}

	lines := make([]VendorInvoiceLine, 0, len(inputs))
	seen := make(map[uuid.UUID]bool, len(inputs))
	for _, in := range inputs {
		if seen[in.POLineID] {
			return shared.NewDomainError("DUPLICATE_PO_LINE", "Invoice bills the same purchase order line twice")
		}
		seen[in.POLineID] = true

		line, err := NewVendorInvoiceLine(v.ID, in.POLineID, in.InvoicedQty, in.UnitPrice)
		if err != nil {
			return err
		}
		lines = append(lines, *line)
	}

	v.Lines = lines
	v.UpdatedAt = time.Now()
	v.IncrementVersion()

	if v.Status != InvoiceStatusDraft {
		v.AddDomainEvent(NewVendorInvoiceLinesChangedEvent(v))
	}

	return nil
}

// Submit moves the invoice from DRAFT to PENDING_REVIEW for matching.
// Requires at least one line.
func (v *VendorInvoice) Submit() error {
	if !v.Status.CanTransitionTo(InvoiceStatusPendingReview) || v.Status != InvoiceStatusDraft {
		return shared.NewDomainError("ILLEGAL_TRANSITION", fmt.Sprintf("Cannot submit invoice in %s status", v.Status))
	}
	if len(v.Lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Cannot submit an invoice without lines")
	}

	now := time.Now()
	v.Status = InvoiceStatusPendingReview
	v.SubmittedAt = &now
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVendorInvoiceSubmittedEvent(v))

	return nil
}

// ApplyMatchVerdict applies the match engine's document-level verdict.
// MATCHED routes to MATCHED; MISMATCH and UNRESOLVED route to MISMATCH
// (both require human disposition); PARTIALLY_MATCHED holds the invoice in
// PENDING_REVIEW since billing against the order is still incomplete.
func (v *VendorInvoice) ApplyMatchVerdict(verdict MatchStatus) error {
	if !v.Status.CanMatch() {
		return shared.NewDomainError("ILLEGAL_TRANSITION", fmt.Sprintf("Cannot apply match verdict in %s status", v.Status))
	}
	if !verdict.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Unknown match verdict")
	}

	var target InvoiceStatus
	switch verdict {
	case MatchStatusMatched:
		target = InvoiceStatusMatched
	case MatchStatusPartiallyMatched:
		target = InvoiceStatusPendingReview
	default: // MISMATCH, UNRESOLVED
		target = InvoiceStatusMismatch
	}

	if v.Status == target {
		return nil
	}
	if !v.Status.CanTransitionTo(target) {
		return shared.NewDomainError("ILLEGAL_TRANSITION", fmt.Sprintf("Cannot move invoice from %s to %s", v.Status, target))
	}

	v.Status = target
	v.UpdatedAt = time.Now()
	v.IncrementVersion()

	return nil
}

// Approve approves a matched invoice for payment. Only reachable from
// MATCHED; approving a mismatched invoice requires Override.
func (v *VendorInvoice) Approve(actor string) error {
	if actor == "" {
		return shared.NewDomainError("INVALID_ACTOR", "Approving actor is required")
	}
	if v.Status != InvoiceStatusMatched {
		return shared.NewDomainError("ILLEGAL_TRANSITION", fmt.Sprintf("Cannot approve invoice in %s status", v.Status))
	}

	now := time.Now()
	v.Status = InvoiceStatusApproved
	v.DecidedAt = &now
	v.DecidedBy = actor
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVendorInvoiceApprovedEvent(v, false))

	return nil
}

// Override approves a mismatched invoice despite its variances. The recorded
// justification is mandatory.
func (v *VendorInvoice) Override(actor, justification string) error {
	if actor == "" {
		return shared.NewDomainError("INVALID_ACTOR", "Approving actor is required")
	}
	if justification == "" {
		return shared.NewDomainError("INVALID_JUSTIFICATION", "Override justification is required")
	}
	if v.Status != InvoiceStatusMismatch {
		return shared.NewDomainError("ILLEGAL_TRANSITION", fmt.Sprintf("Cannot override invoice in %s status", v.Status))
	}

	now := time.Now()
	v.Status = InvoiceStatusApproved
	v.DecidedAt = &now
	v.DecidedBy = actor
	v.DecisionNote = justification
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVendorInvoiceApprovedEvent(v, true))

	return nil
}

// Reject rejects the invoice from either terminal match state
func (v *VendorInvoice) Reject(actor, reason string) error {
	if actor == "" {
		return shared.NewDomainError("INVALID_ACTOR", "Rejecting actor is required")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}
	if v.Status != InvoiceStatusMatched && v.Status != InvoiceStatusMismatch {
		return shared.NewDomainError("ILLEGAL_TRANSITION", fmt.Sprintf("Cannot reject invoice in %s status", v.Status))
	}

	now := time.Now()
	v.Status = InvoiceStatusRejected
	v.DecidedAt = &now
	v.DecidedBy = actor
	v.DecisionNote = reason
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVendorInvoiceRejectedEvent(v))

	return nil
}

// Post marks an approved invoice as posted to payment. Terminal: corrections
// after posting require a new invoice against a credit/debit note.
func (v *VendorInvoice) Post(actor string) error {
	if actor == "" {
		return shared.NewDomainError("INVALID_ACTOR", "Posting actor is required")
	}
	if !v.Status.CanTransitionTo(InvoiceStatusPosted) {
		return shared.NewDomainError("ILLEGAL_TRANSITION", fmt.Sprintf("Cannot post invoice in %s status", v.Status))
	}

	now := time.Now()
	v.Status = InvoiceStatusPosted
	v.PostedAt = &now
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVendorInvoicePostedEvent(v))

	return nil
}

// Void voids the invoice. Its quantities no longer count towards invoiced
// totals and its match result is superseded. A posted invoice cannot be
// voided.
func (v *VendorInvoice) Void(reason string) error {
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}
	if !v.Status.CanTransitionTo(InvoiceStatusVoided) {
		return shared.NewDomainError("ILLEGAL_TRANSITION", fmt.Sprintf("Cannot void invoice in %s status", v.Status))
	}

	now := time.Now()
	v.Status = InvoiceStatusVoided
	v.VoidedAt = &now
	v.VoidReason = reason
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVendorInvoiceVoidedEvent(v))

	return nil
}

// IsVoided returns true if the invoice has been voided
func (v *VendorInvoice) IsVoided() bool {
	return v.Status == InvoiceStatusVoided
}

// Line returns the line billing the given purchase order line, or nil
func (v *VendorInvoice) Line(poLineID uuid.UUID) *VendorInvoiceLine {
	for idx := range v.Lines {
		if v.Lines[idx].POLineID == poLineID {
			return &v.Lines[idx]
		}
	}
	return nil
}

// TotalAmount returns the sum of all billed line amounts
func (v *VendorInvoice) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, line := range v.Lines {
		total = total.Add(line.Amount())
	}
	return total
}

// LineCount returns the number of lines on the invoice
func (v *VendorInvoice) LineCount() int {
	return len(v.Lines)
}

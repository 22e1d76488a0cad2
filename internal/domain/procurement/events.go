package procurement

import (
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeGoodsReceipt  = "GoodsReceipt"
	AggregateTypeVendorInvoice = "VendorInvoice"
	AggregateTypePolicyRule    = "PolicyRule"
)

// Event type constants
const (
	EventTypeGoodsReceiptPosted        = "GoodsReceiptPosted"
	EventTypeGoodsReceiptCancelled     = "GoodsReceiptCancelled"
	EventTypeVendorInvoiceCreated      = "VendorInvoiceCreated"
	EventTypeVendorInvoiceSubmitted    = "VendorInvoiceSubmitted"
	EventTypeVendorInvoiceLinesChanged = "VendorInvoiceLinesChanged"
	EventTypeVendorInvoiceApproved     = "VendorInvoiceApproved"
	EventTypeVendorInvoiceRejected     = "VendorInvoiceRejected"
	EventTypeVendorInvoicePosted       = "VendorInvoicePosted"
	EventTypeVendorInvoiceVoided       = "VendorInvoiceVoided"
	EventTypeTolerancePolicyChanged    = "TolerancePolicyChanged"
)

// GoodsReceiptPostedEvent is raised when a goods receipt note is posted.
// Reconciliation handlers use it to recompute all invoices on the same order.
type GoodsReceiptPostedEvent struct {
	shared.BaseDomainEvent
	ReceiptID     uuid.UUID       `json:"receipt_id"`
	ReceiptNumber string          `json:"receipt_number"`
	POID          uuid.UUID       `json:"po_id"`
	TotalQty      decimal.Decimal `json:"total_qty"`
}

// NewGoodsReceiptPostedEvent creates a new GoodsReceiptPostedEvent
func NewGoodsReceiptPostedEvent(receipt *GoodsReceipt) *GoodsReceiptPostedEvent {
	return &GoodsReceiptPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGoodsReceiptPosted, AggregateTypeGoodsReceipt, receipt.ID),
		ReceiptID:       receipt.ID,
		ReceiptNumber:   receipt.ReceiptNumber,
		POID:            receipt.POID,
		TotalQty:        receipt.TotalReceivedQty(),
	}
}

// EventType returns the event type name
func (e *GoodsReceiptPostedEvent) EventType() string {
	return EventTypeGoodsReceiptPosted
}

// GoodsReceiptCancelledEvent is raised when a receipt is superseded
type GoodsReceiptCancelledEvent struct {
	shared.BaseDomainEvent
	ReceiptID     uuid.UUID `json:"receipt_id"`
	ReceiptNumber string    `json:"receipt_number"`
	POID          uuid.UUID `json:"po_id"`
	Reason        string    `json:"reason"`
}

// NewGoodsReceiptCancelledEvent creates a new GoodsReceiptCancelledEvent
func NewGoodsReceiptCancelledEvent(receipt *GoodsReceipt) *GoodsReceiptCancelledEvent {
	return &GoodsReceiptCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGoodsReceiptCancelled, AggregateTypeGoodsReceipt, receipt.ID),
		ReceiptID:       receipt.ID,
		ReceiptNumber:   receipt.ReceiptNumber,
		POID:            receipt.POID,
		Reason:          receipt.CancelReason,
	}
}

// EventType returns the event type name
func (e *GoodsReceiptCancelledEvent) EventType() string {
	return EventTypeGoodsReceiptCancelled
}

// VendorInvoiceCreatedEvent is raised when a new vendor invoice is created
type VendorInvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID  `json:"invoice_id"`
	InvoiceNumber string     `json:"invoice_number"`
	VendorID      uuid.UUID  `json:"vendor_id"`
	POID          *uuid.UUID `json:"po_id,omitempty"`
}

// NewVendorInvoiceCreatedEvent creates a new VendorInvoiceCreatedEvent
func NewVendorInvoiceCreatedEvent(invoice *VendorInvoice) *VendorInvoiceCreatedEvent {
	return &VendorInvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorInvoiceCreated, AggregateTypeVendorInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		VendorID:        invoice.VendorID,
		POID:            invoice.POID,
	}
}

// EventType returns the event type name
func (e *VendorInvoiceCreatedEvent) EventType() string {
	return EventTypeVendorInvoiceCreated
}

// VendorInvoiceSubmittedEvent is raised when an invoice enters review.
// It triggers the first match computation for the invoice.
type VendorInvoiceSubmittedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID  `json:"invoice_id"`
	InvoiceNumber string     `json:"invoice_number"`
	VendorID      uuid.UUID  `json:"vendor_id"`
	POID          *uuid.UUID `json:"po_id,omitempty"`
}

// NewVendorInvoiceSubmittedEvent creates a new VendorInvoiceSubmittedEvent
func NewVendorInvoiceSubmittedEvent(invoice *VendorInvoice) *VendorInvoiceSubmittedEvent {
	return &VendorInvoiceSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorInvoiceSubmitted, AggregateTypeVendorInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		VendorID:        invoice.VendorID,
		POID:            invoice.POID,
	}
}

// EventType returns the event type name
func (e *VendorInvoiceSubmittedEvent) EventType() string {
	return EventTypeVendorInvoiceSubmitted
}

// VendorInvoiceLinesChangedEvent is raised when the lines of a submitted
// invoice change (or it gains a purchase order link), requiring a recompute
type VendorInvoiceLinesChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID  `json:"invoice_id"`
	VendorID  uuid.UUID  `json:"vendor_id"`
	POID      *uuid.UUID `json:"po_id,omitempty"`
	LineCount int        `json:"line_count"`
}

// NewVendorInvoiceLinesChangedEvent creates a new VendorInvoiceLinesChangedEvent
func NewVendorInvoiceLinesChangedEvent(invoice *VendorInvoice) *VendorInvoiceLinesChangedEvent {
	return &VendorInvoiceLinesChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorInvoiceLinesChanged, AggregateTypeVendorInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		VendorID:        invoice.VendorID,
		POID:            invoice.POID,
		LineCount:       len(invoice.Lines),
	}
}

// EventType returns the event type name
func (e *VendorInvoiceLinesChangedEvent) EventType() string {
	return EventTypeVendorInvoiceLinesChanged
}

// VendorInvoiceApprovedEvent is raised when an invoice is approved for payment
type VendorInvoiceApprovedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Actor         string    `json:"actor"`
	Overridden    bool      `json:"overridden"`
	Justification string    `json:"justification,omitempty"`
}

// NewVendorInvoiceApprovedEvent creates a new VendorInvoiceApprovedEvent
func NewVendorInvoiceApprovedEvent(invoice *VendorInvoice, overridden bool) *VendorInvoiceApprovedEvent {
	e := &VendorInvoiceApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorInvoiceApproved, AggregateTypeVendorInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		Actor:           invoice.DecidedBy,
		Overridden:      overridden,
	}
	if overridden {
		e.Justification = invoice.DecisionNote
	}
	return e
}

// EventType returns the event type name
func (e *VendorInvoiceApprovedEvent) EventType() string {
	return EventTypeVendorInvoiceApproved
}

// VendorInvoiceRejectedEvent is raised when an invoice is rejected
type VendorInvoiceRejectedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Actor         string    `json:"actor"`
	Reason        string    `json:"reason"`
}

// NewVendorInvoiceRejectedEvent creates a new VendorInvoiceRejectedEvent
func NewVendorInvoiceRejectedEvent(invoice *VendorInvoice) *VendorInvoiceRejectedEvent {
	return &VendorInvoiceRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorInvoiceRejected, AggregateTypeVendorInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		Actor:           invoice.DecidedBy,
		Reason:          invoice.DecisionNote,
	}
}

// EventType returns the event type name
func (e *VendorInvoiceRejectedEvent) EventType() string {
	return EventTypeVendorInvoiceRejected
}

// VendorInvoicePostedEvent is raised when an approved invoice is posted
type VendorInvoicePostedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewVendorInvoicePostedEvent creates a new VendorInvoicePostedEvent
func NewVendorInvoicePostedEvent(invoice *VendorInvoice) *VendorInvoicePostedEvent {
	return &VendorInvoicePostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorInvoicePosted, AggregateTypeVendorInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		TotalAmount:     invoice.TotalAmount(),
	}
}

// EventType returns the event type name
func (e *VendorInvoicePostedEvent) EventType() string {
	return EventTypeVendorInvoicePosted
}

// VendorInvoiceVoidedEvent is raised when an invoice is voided
type VendorInvoiceVoidedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID  `json:"invoice_id"`
	POID      *uuid.UUID `json:"po_id,omitempty"`
	Reason    string     `json:"reason"`
}

// NewVendorInvoiceVoidedEvent creates a new VendorInvoiceVoidedEvent
func NewVendorInvoiceVoidedEvent(invoice *VendorInvoice) *VendorInvoiceVoidedEvent {
	return &VendorInvoiceVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVendorInvoiceVoided, AggregateTypeVendorInvoice, invoice.ID),
		InvoiceID:       invoice.ID,
		POID:            invoice.POID,
		Reason:          invoice.VoidReason,
	}
}

// EventType returns the event type name
func (e *VendorInvoiceVoidedEvent) EventType() string {
	return EventTypeVendorInvoiceVoided
}

// TolerancePolicyChangedEvent is raised when a tolerance policy rule is
// created, updated or deleted. Open invoices in the affected scope must be
// recomputed.
type TolerancePolicyChangedEvent struct {
	shared.BaseDomainEvent
	RuleID   uuid.UUID   `json:"rule_id"`
	Level    PolicyLevel `json:"level"`
	VendorID *uuid.UUID  `json:"vendor_id,omitempty"`
}

// NewTolerancePolicyChangedEvent creates a new TolerancePolicyChangedEvent
func NewTolerancePolicyChangedEvent(rule *PolicyRule) *TolerancePolicyChangedEvent {
	return &TolerancePolicyChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTolerancePolicyChanged, AggregateTypePolicyRule, rule.ID),
		RuleID:          rule.ID,
		Level:           rule.Level,
		VendorID:        rule.VendorID,
	}
}

// EventType returns the event type name
func (e *TolerancePolicyChangedEvent) EventType() string {
	return EventTypeTolerancePolicyChanged
}

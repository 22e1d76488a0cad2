package procurement

import (
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Purchase Order DTOs ====================

// CreatePurchaseOrderRequest represents a request to register a purchase order
type CreatePurchaseOrderRequest struct {
	OrderNumber string                         `json:"order_number" binding:"required,min=1,max=50"`
	VendorID    uuid.UUID                      `json:"vendor_id" binding:"required"`
	Lines       []CreatePurchaseOrderLineInput `json:"lines" binding:"required,min=1"`
}

// CreatePurchaseOrderLineInput represents a line in the create order request
type CreatePurchaseOrderLineInput struct {
	ProductID  uuid.UUID       `json:"product_id" binding:"required"`
	CategoryID *uuid.UUID      `json:"category_id"`
	OrderedQty decimal.Decimal `json:"ordered_qty" binding:"required"`
	UnitPrice  decimal.Decimal `json:"unit_price" binding:"required"`
}

// PurchaseOrderLineResponse represents a purchase order line in responses
type PurchaseOrderLineResponse struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	OrderedQty decimal.Decimal `json:"ordered_qty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Amount     decimal.Decimal `json:"amount"`
}

// PurchaseOrderResponse represents a purchase order in responses
type PurchaseOrderResponse struct {
	ID          uuid.UUID                   `json:"id"`
	OrderNumber string                      `json:"order_number"`
	VendorID    uuid.UUID                   `json:"vendor_id"`
	Lines       []PurchaseOrderLineResponse `json:"lines"`
	TotalAmount decimal.Decimal             `json:"total_amount"`
	IssuedAt    time.Time                   `json:"issued_at"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// ToPurchaseOrderResponse converts a domain purchase order to a response DTO
func ToPurchaseOrderResponse(po *procurement.PurchaseOrder) PurchaseOrderResponse {
	lines := make([]PurchaseOrderLineResponse, 0, len(po.Lines))
	for i := range po.Lines {
		l := &po.Lines[i]
		lines = append(lines, PurchaseOrderLineResponse{
			ID:         l.ID,
			ProductID:  l.ProductID,
			CategoryID: l.CategoryID,
			OrderedQty: l.OrderedQty,
			UnitPrice:  l.UnitPrice,
			Amount:     l.Amount(),
		})
	}
	return PurchaseOrderResponse{
		ID:          po.ID,
		OrderNumber: po.OrderNumber,
		VendorID:    po.VendorID,
		Lines:       lines,
		TotalAmount: po.TotalAmount(),
		IssuedAt:    po.IssuedAt,
		CreatedAt:   po.CreatedAt,
	}
}

// ==================== Goods Receipt DTOs ====================

// PostGoodsReceiptRequest represents a request to post a goods receipt note
type PostGoodsReceiptRequest struct {
	ReceiptNumber string                  `json:"receipt_number" binding:"required,min=1,max=50"`
	POID          uuid.UUID               `json:"po_id" binding:"required"`
	Lines         []ReceivedGoodsLineInput `json:"lines" binding:"required,min=1"`
}

// ReceivedGoodsLineInput represents one received line
type ReceivedGoodsLineInput struct {
	POLineID    uuid.UUID       `json:"po_line_id" binding:"required"`
	ReceivedQty decimal.Decimal `json:"received_qty" binding:"required"`
	ReceivedAt  *time.Time      `json:"received_at"`
}

// CancelGoodsReceiptRequest represents a request to cancel a posted receipt
type CancelGoodsReceiptRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// GoodsReceiptLineResponse represents a receipt line in responses
type GoodsReceiptLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	POLineID    uuid.UUID       `json:"po_line_id"`
	ReceivedQty decimal.Decimal `json:"received_qty"`
	ReceivedAt  time.Time       `json:"received_at"`
}

// GoodsReceiptResponse represents a goods receipt in responses
type GoodsReceiptResponse struct {
	ID            uuid.UUID                  `json:"id"`
	ReceiptNumber string                     `json:"receipt_number"`
	POID          uuid.UUID                  `json:"po_id"`
	Status        string                     `json:"status"`
	Lines         []GoodsReceiptLineResponse `json:"lines"`
	TotalQty      decimal.Decimal            `json:"total_qty"`
	PostedAt      *time.Time                 `json:"posted_at,omitempty"`
	CancelledAt   *time.Time                 `json:"cancelled_at,omitempty"`
	CancelReason  string                     `json:"cancel_reason,omitempty"`
	Version       int                        `json:"version"`
}

// ToGoodsReceiptResponse converts a domain goods receipt to a response DTO
func ToGoodsReceiptResponse(receipt *procurement.GoodsReceipt) GoodsReceiptResponse {
	lines := make([]GoodsReceiptLineResponse, 0, len(receipt.Lines))
	for i := range receipt.Lines {
		l := &receipt.Lines[i]
		lines = append(lines, GoodsReceiptLineResponse{
			ID:          l.ID,
			POLineID:    l.POLineID,
			ReceivedQty: l.ReceivedQty,
			ReceivedAt:  l.ReceivedAt,
		})
	}
	return GoodsReceiptResponse{
		ID:            receipt.ID,
		ReceiptNumber: receipt.ReceiptNumber,
		POID:          receipt.POID,
		Status:        receipt.Status.String(),
		Lines:         lines,
		TotalQty:      receipt.TotalReceivedQty(),
		PostedAt:      &receipt.PostedAt,
		CancelledAt:   receipt.CancelledAt,
		CancelReason:  receipt.CancelReason,
		Version:       receipt.Version,
	}
}

// ==================== Vendor Invoice DTOs ====================

// CreateVendorInvoiceRequest represents a request to upload a vendor invoice
type CreateVendorInvoiceRequest struct {
	InvoiceNumber string             `json:"invoice_number" binding:"required,min=1,max=50"`
	VendorID      uuid.UUID          `json:"vendor_id" binding:"required"`
	POID          *uuid.UUID         `json:"po_id"`
	Lines         []InvoiceLineInput `json:"lines"`
}

// InvoiceLineInput represents a billed line supplied by the caller
type InvoiceLineInput struct {
	POLineID    uuid.UUID       `json:"po_line_id" binding:"required"`
	InvoicedQty decimal.Decimal `json:"invoiced_qty" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// SetInvoiceLinesRequest replaces the lines of an invoice
type SetInvoiceLinesRequest struct {
	Lines []InvoiceLineInput `json:"lines" binding:"required,min=1"`
}

// LinkInvoiceRequest links an invoice to a purchase order after upload
type LinkInvoiceRequest struct {
	POID uuid.UUID `json:"po_id" binding:"required"`
}

// DecisionRequest carries a human approve/reject/post action
type DecisionRequest struct {
	Actor  string `json:"actor" binding:"required,min=1,max=100"`
	Reason string `json:"reason"`
}

// OverrideRequest carries a mismatch override with its mandatory justification
type OverrideRequest struct {
	Actor         string `json:"actor" binding:"required,min=1,max=100"`
	Justification string `json:"justification" binding:"required,min=1,max=1000"`
}

// VoidInvoiceRequest voids an invoice
type VoidInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// VendorInvoiceLineResponse represents an invoice line in responses
type VendorInvoiceLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	POLineID    uuid.UUID       `json:"po_line_id"`
	InvoicedQty decimal.Decimal `json:"invoiced_qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// VendorInvoiceResponse represents a vendor invoice in responses
type VendorInvoiceResponse struct {
	ID            uuid.UUID                   `json:"id"`
	InvoiceNumber string                      `json:"invoice_number"`
	VendorID      uuid.UUID                   `json:"vendor_id"`
	POID          *uuid.UUID                  `json:"po_id,omitempty"`
	Status        string                      `json:"status"`
	Lines         []VendorInvoiceLineResponse `json:"lines"`
	TotalAmount   decimal.Decimal             `json:"total_amount"`
	SubmittedAt   *time.Time                  `json:"submitted_at,omitempty"`
	DecidedAt     *time.Time                  `json:"decided_at,omitempty"`
	DecidedBy     string                      `json:"decided_by,omitempty"`
	DecisionNote  string                      `json:"decision_note,omitempty"`
	PostedAt      *time.Time                  `json:"posted_at,omitempty"`
	VoidedAt      *time.Time                  `json:"voided_at,omitempty"`
	VoidReason    string                      `json:"void_reason,omitempty"`
	Version       int                         `json:"version"`
	CreatedAt     time.Time                   `json:"created_at"`
}

// ToVendorInvoiceResponse converts a domain invoice to a response DTO
func ToVendorInvoiceResponse(invoice *procurement.VendorInvoice) VendorInvoiceResponse {
	lines := make([]VendorInvoiceLineResponse, 0, len(invoice.Lines))
	for i := range invoice.Lines {
		l := &invoice.Lines[i]
		lines = append(lines, VendorInvoiceLineResponse{
			ID:          l.ID,
			POLineID:    l.POLineID,
			InvoicedQty: l.InvoicedQty,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount(),
		})
	}
	return VendorInvoiceResponse{
		ID:            invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		VendorID:      invoice.VendorID,
		POID:          invoice.POID,
		Status:        invoice.Status.String(),
		Lines:         lines,
		TotalAmount:   invoice.TotalAmount(),
		SubmittedAt:   invoice.SubmittedAt,
		DecidedAt:     invoice.DecidedAt,
		DecidedBy:     invoice.DecidedBy,
		DecisionNote:  invoice.DecisionNote,
		PostedAt:      invoice.PostedAt,
		VoidedAt:      invoice.VoidedAt,
		VoidReason:    invoice.VoidReason,
		Version:       invoice.Version,
		CreatedAt:     invoice.CreatedAt,
	}
}

// ==================== Match Result DTOs ====================

// LineMatchResultResponse represents one matched line in responses
type LineMatchResultResponse struct {
	POLineID               uuid.UUID        `json:"po_line_id"`
	OrderedQty             decimal.Decimal  `json:"ordered_qty"`
	ReceivedQty            decimal.Decimal  `json:"received_qty"`
	InvoicedQty            decimal.Decimal  `json:"invoiced_qty"`
	InvoicedQtyThisInvoice decimal.Decimal  `json:"invoiced_qty_this_invoice"`
	OrderedPrice           decimal.Decimal  `json:"ordered_price"`
	InvoicedUnitPrice      decimal.Decimal  `json:"invoiced_unit_price"`
	QtyVariance            decimal.Decimal  `json:"qty_variance"`
	QtyVariancePct         *decimal.Decimal `json:"qty_variance_pct,omitempty"`
	PriceVariance          decimal.Decimal  `json:"price_variance"`
	PriceVariancePct       *decimal.Decimal `json:"price_variance_pct,omitempty"`
	OverReceiptFlagged     bool             `json:"over_receipt_flagged"`
	Status                 string           `json:"status"`
	Notes                  string           `json:"notes,omitempty"`
}

// MatchResultResponse represents a match result in responses
type MatchResultResponse struct {
	ID          uuid.UUID                 `json:"id"`
	InvoiceID   uuid.UUID                 `json:"invoice_id"`
	POID        uuid.UUID                 `json:"po_id"`
	Status      string                    `json:"status"`
	Version     int64                     `json:"version"`
	ComputedAt  time.Time                 `json:"computed_at"`
	LineResults []LineMatchResultResponse `json:"line_results"`
}

// ToMatchResultResponse converts a domain match result to a response DTO
func ToMatchResultResponse(result *procurement.MatchResult) MatchResultResponse {
	lines := make([]LineMatchResultResponse, 0, len(result.LineResults))
	for i := range result.LineResults {
		l := &result.LineResults[i]
		lines = append(lines, LineMatchResultResponse{
			POLineID:               l.POLineID,
			OrderedQty:             l.OrderedQty,
			ReceivedQty:            l.ReceivedQty,
			InvoicedQty:            l.InvoicedQty,
			InvoicedQtyThisInvoice: l.InvoicedQtyThisInvoice,
			OrderedPrice:           l.OrderedPrice,
			InvoicedUnitPrice:      l.InvoicedUnit,
			QtyVariance:            l.QtyVariance,
			QtyVariancePct:         l.QtyVariancePct,
			PriceVariance:          l.PriceVariance,
			PriceVariancePct:       l.PriceVariancePct,
			OverReceiptFlagged:     l.OverReceiptFlagged,
			Status:                 l.Status.String(),
			Notes:                  l.Notes,
		})
	}
	return MatchResultResponse{
		ID:          result.ID,
		InvoiceID:   result.InvoiceID,
		POID:        result.POID,
		Status:      result.Status.String(),
		Version:     result.Version,
		ComputedAt:  result.ComputedAt,
		LineResults: lines,
	}
}

// MatchResultPageResponse is a keyset page of match results
type MatchResultPageResponse struct {
	Items         []MatchResultResponse `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

// ==================== Tolerance Policy DTOs ====================

// CreatePolicyRuleRequest represents a request to create a tolerance rule
type CreatePolicyRuleRequest struct {
	Level                   string           `json:"level" binding:"required,oneof=PRODUCT VENDOR CATEGORY GLOBAL"`
	ScopeID                 *uuid.UUID       `json:"scope_id"`
	QtyTolerancePct         decimal.Decimal  `json:"qty_tolerance_pct"`
	PriceTolerancePct       decimal.Decimal  `json:"price_tolerance_pct"`
	OverReceiptTolerancePct decimal.Decimal  `json:"over_receipt_tolerance_pct"`
	AllowBillBeforeReceipt  bool             `json:"allow_bill_before_receipt"`
}

// UpdatePolicyRuleRequest replaces the tolerance values of a rule
type UpdatePolicyRuleRequest struct {
	QtyTolerancePct         decimal.Decimal `json:"qty_tolerance_pct"`
	PriceTolerancePct       decimal.Decimal `json:"price_tolerance_pct"`
	OverReceiptTolerancePct decimal.Decimal `json:"over_receipt_tolerance_pct"`
	AllowBillBeforeReceipt  bool            `json:"allow_bill_before_receipt"`
}

// PolicyRuleResponse represents a tolerance policy rule in responses
type PolicyRuleResponse struct {
	ID                      uuid.UUID       `json:"id"`
	Level                   string          `json:"level"`
	ProductID               *uuid.UUID      `json:"product_id,omitempty"`
	VendorID                *uuid.UUID      `json:"vendor_id,omitempty"`
	CategoryID              *uuid.UUID      `json:"category_id,omitempty"`
	QtyTolerancePct         decimal.Decimal `json:"qty_tolerance_pct"`
	PriceTolerancePct       decimal.Decimal `json:"price_tolerance_pct"`
	OverReceiptTolerancePct decimal.Decimal `json:"over_receipt_tolerance_pct"`
	AllowBillBeforeReceipt  bool            `json:"allow_bill_before_receipt"`
	Version                 int             `json:"version"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// ToPolicyRuleResponse converts a domain rule to a response DTO
func ToPolicyRuleResponse(rule *procurement.PolicyRule) PolicyRuleResponse {
	return PolicyRuleResponse{
		ID:                      rule.ID,
		Level:                   rule.Level.String(),
		ProductID:               rule.ProductID,
		VendorID:                rule.VendorID,
		CategoryID:              rule.CategoryID,
		QtyTolerancePct:         rule.Policy.QtyTolerancePct,
		PriceTolerancePct:       rule.Policy.PriceTolerancePct,
		OverReceiptTolerancePct: rule.Policy.OverReceiptTolerancePct,
		AllowBillBeforeReceipt:  rule.Policy.AllowBillBeforeReceipt,
		Version:                 rule.Version,
		CreatedAt:               rule.CreatedAt,
		UpdatedAt:               rule.UpdatedAt,
	}
}

package procurement

import (
	"context"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
)

// PurchaseOrderRepository defines the interface for purchase order persistence.
// Orders are reference data here; they are imported, never mutated.
type PurchaseOrderRepository interface {
	// FindByID finds a purchase order by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByOrderNumber finds a purchase order by order number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*PurchaseOrder, error)

	// FindAll finds purchase orders with filtering
	FindAll(ctx context.Context, filter shared.Filter) ([]PurchaseOrder, error)

	// Save creates or updates a purchase order
	Save(ctx context.Context, order *PurchaseOrder) error

	// Count counts purchase orders
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// GoodsReceiptRepository defines the interface for goods receipt persistence
type GoodsReceiptRepository interface {
	// FindByID finds a goods receipt by ID
	FindByID(ctx context.Context, id uuid.UUID) (*GoodsReceipt, error)

	// FindByReceiptNumber finds a goods receipt by receipt number
	FindByReceiptNumber(ctx context.Context, receiptNumber string) (*GoodsReceipt, error)

	// FindByPurchaseOrder finds all receipts recorded against a purchase order
	FindByPurchaseOrder(ctx context.Context, poID uuid.UUID) ([]*GoodsReceipt, error)

	// Save creates or updates a goods receipt
	Save(ctx context.Context, receipt *GoodsReceipt) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, receipt *GoodsReceipt) error

	// Count counts goods receipts
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// VendorInvoiceRepository defines the interface for vendor invoice persistence
type VendorInvoiceRepository interface {
	// FindByID finds a vendor invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*VendorInvoice, error)

	// FindByInvoiceNumber finds an invoice by vendor and invoice number
	FindByInvoiceNumber(ctx context.Context, vendorID uuid.UUID, invoiceNumber string) (*VendorInvoice, error)

	// FindByPurchaseOrder finds all invoices linked to a purchase order
	FindByPurchaseOrder(ctx context.Context, poID uuid.UUID) ([]*VendorInvoice, error)

	// FindByStatus finds invoices by status with filtering
	FindByStatus(ctx context.Context, status InvoiceStatus, filter shared.Filter) ([]VendorInvoice, error)

	// Save creates or updates a vendor invoice
	Save(ctx context.Context, invoice *VendorInvoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *VendorInvoice) error

	// CountByStatus counts invoices by status
	CountByStatus(ctx context.Context, status InvoiceStatus) (int64, error)
}

// MatchResultFilter narrows a match result listing. Zero-valued fields are
// ignored; status, vendor and computation time range combine conjunctively.
type MatchResultFilter struct {
	Status         MatchStatus
	VendorID       *uuid.UUID
	ComputedAfter  *time.Time
	ComputedBefore *time.Time
}

// MatchResultRepository defines the interface for match result persistence.
// At most one result exists per invoice; recomputation replaces it.
type MatchResultRepository interface {
	// FindByInvoice finds the current match result for an invoice
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*MatchResult, error)

	// FindByPurchaseOrder finds current match results for all invoices of an order
	FindByPurchaseOrder(ctx context.Context, poID uuid.UUID) ([]*MatchResult, error)

	// ReplaceForInvoice atomically swaps the stored result for an invoice with
	// a new one, carrying the version forward from the replaced result
	ReplaceForInvoice(ctx context.Context, result *MatchResult) error

	// List pages through results matching the filter ordered by computation
	// time then ID, resumable via the page token
	List(ctx context.Context, filter MatchResultFilter, pageToken string, limit int) (*shared.KeysetPage[MatchResult], error)
}

// PolicyRuleRepository defines the interface for tolerance policy rule persistence
type PolicyRuleRepository interface {
	// FindByID finds a policy rule by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PolicyRule, error)

	// FindAll returns every policy rule
	FindAll(ctx context.Context) ([]PolicyRule, error)

	// Save creates or updates a policy rule
	Save(ctx context.Context, rule *PolicyRule) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, rule *PolicyRule) error

	// Delete removes a policy rule
	Delete(ctx context.Context, id uuid.UUID) error
}

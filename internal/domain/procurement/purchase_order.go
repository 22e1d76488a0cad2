package procurement

import (
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderLine is a single line of a purchase order. Lines are immutable
// once the order is issued; amendments create a new order version upstream.
type PurchaseOrderLine struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null"`
	CategoryID *uuid.UUID      `gorm:"type:uuid;index"` // Product category snapshot, used for tolerance resolution
	OrderedQty decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLine) TableName() string {
	return "purchase_order_lines"
}

// NewPurchaseOrderLine creates a new purchase order line
func NewPurchaseOrderLine(orderID, productID uuid.UUID, categoryID *uuid.UUID, orderedQty, unitPrice decimal.Decimal) (*PurchaseOrderLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if orderedQty.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Ordered quantity cannot be negative")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	return &PurchaseOrderLine{
		ID:         uuid.New(),
		OrderID:    orderID,
		ProductID:  productID,
		CategoryID: categoryID,
		OrderedQty: orderedQty,
		UnitPrice:  unitPrice,
		CreatedAt:  time.Now(),
	}, nil
}

// Amount returns the line amount (ordered quantity times unit price)
func (l *PurchaseOrderLine) Amount() decimal.Decimal {
	return l.OrderedQty.Mul(l.UnitPrice)
}

// PurchaseOrder is the buyer's commitment against which receipts and invoices
// are reconciled. The reconciliation engine holds a read-only view: it never
// mutates an order, only reads its lines as the matching baseline.
type PurchaseOrder struct {
	shared.BaseEntity
	OrderNumber string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	VendorID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	Lines       []PurchaseOrderLine `gorm:"foreignKey:OrderID;references:ID"`
	IssuedAt    time.Time           `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// NewPurchaseOrder creates a new purchase order snapshot with its lines.
// An order must carry at least one line to be reconcilable.
func NewPurchaseOrder(orderNumber string, vendorID uuid.UUID) (*PurchaseOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}

	return &PurchaseOrder{
		BaseEntity:  shared.NewBaseEntity(),
		OrderNumber: orderNumber,
		VendorID:    vendorID,
		Lines:       make([]PurchaseOrderLine, 0),
		IssuedAt:    time.Now(),
	}, nil
}

// AddLine adds a line to the order. Only meaningful before the order is
// issued to the vendor; the engine itself never calls this.
func (o *PurchaseOrder) AddLine(productID uuid.UUID, categoryID *uuid.UUID, orderedQty, unitPrice decimal.Decimal) (*PurchaseOrderLine, error) {
	for _, line := range o.Lines {
		if line.ProductID == productID {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists on order")
		}
	}

	line, err := NewPurchaseOrderLine(o.ID, productID, categoryID, orderedQty, unitPrice)
	if err != nil {
		return nil, err
	}

	o.Lines = append(o.Lines, *line)
	o.UpdatedAt = time.Now()
	return line, nil
}

// Line returns the line with the given ID, or nil if absent
func (o *PurchaseOrder) Line(lineID uuid.UUID) *PurchaseOrderLine {
	for idx := range o.Lines {
		if o.Lines[idx].ID == lineID {
			return &o.Lines[idx]
		}
	}
	return nil
}

// LineIDs returns the IDs of all lines on the order
func (o *PurchaseOrder) LineIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(o.Lines))
	for i, line := range o.Lines {
		ids[i] = line.ID
	}
	return ids
}

// TotalAmount returns the sum of all line amounts
func (o *PurchaseOrder) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Amount())
	}
	return total
}

// LineCount returns the number of lines on the order
func (o *PurchaseOrder) LineCount() int {
	return len(o.Lines)
}

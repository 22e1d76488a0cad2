package procurement

import (
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoodsReceiptStatus represents the status of a goods receipt note
type GoodsReceiptStatus string

const (
	GoodsReceiptStatusPosted    GoodsReceiptStatus = "POSTED"
	GoodsReceiptStatusCancelled GoodsReceiptStatus = "CANCELLED"
)

// IsValid checks if the status is a valid GoodsReceiptStatus
func (s GoodsReceiptStatus) IsValid() bool {
	switch s {
	case GoodsReceiptStatusPosted, GoodsReceiptStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of GoodsReceiptStatus
func (s GoodsReceiptStatus) String() string {
	return string(s)
}

// GoodsReceiptLine records goods physically received against one purchase
// order line. Many receipts may reference the same order line (staggered
// deliveries). Lines are never mutated after posting; a wrong receipt is
// superseded by cancelling its note, not by editing or deleting lines.
type GoodsReceiptLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReceiptID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	POLineID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReceivedQty decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReceivedAt  time.Time       `gorm:"not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (GoodsReceiptLine) TableName() string {
	return "goods_receipt_lines"
}

// NewGoodsReceiptLine creates a new goods receipt line
func NewGoodsReceiptLine(receiptID, poLineID uuid.UUID, receivedQty decimal.Decimal, receivedAt time.Time) (*GoodsReceiptLine, error) {
	if poLineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PO_LINE", "Purchase order line ID cannot be empty")
	}
	if receivedQty.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Received quantity must be positive")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	return &GoodsReceiptLine{
		ID:          uuid.New(),
		ReceiptID:   receiptID,
		POLineID:    poLineID,
		ReceivedQty: receivedQty,
		ReceivedAt:  receivedAt,
		CreatedAt:   time.Now(),
	}, nil
}

// GoodsReceipt is a goods receipt note (GRN) posted against a purchase order.
// It is append-only: posting creates it, and the only legal mutation is
// cancellation, which keeps the record but excludes it from aggregation.
type GoodsReceipt struct {
	shared.BaseAggregateRoot
	ReceiptNumber string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	POID          uuid.UUID          `gorm:"type:uuid;not null;index"`
	Status        GoodsReceiptStatus `gorm:"type:varchar(20);not null;default:'POSTED'"`
	Lines         []GoodsReceiptLine `gorm:"foreignKey:ReceiptID;references:ID"`
	PostedAt      time.Time          `gorm:"not null;index"`
	CancelledAt   *time.Time
	CancelReason  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (GoodsReceipt) TableName() string {
	return "goods_receipts"
}

// ReceivedLineInput is a single line of a receipt being posted
type ReceivedLineInput struct {
	POLineID    uuid.UUID       `json:"po_line_id"`
	ReceivedQty decimal.Decimal `json:"received_qty"`
	ReceivedAt  time.Time       `json:"received_at"`
}

// NewGoodsReceipt posts a new goods receipt note against a purchase order.
// A receipt is born POSTED; there is no draft stage for physical receipts.
func NewGoodsReceipt(receiptNumber string, poID uuid.UUID, lines []ReceivedLineInput) (*GoodsReceipt, error) {
	if receiptNumber == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot be empty")
	}
	if poID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Purchase order ID cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("NO_LINES", "Cannot post a receipt without lines")
	}

	receipt := &GoodsReceipt{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReceiptNumber:     receiptNumber,
		POID:              poID,
		Status:            GoodsReceiptStatusPosted,
		Lines:             make([]GoodsReceiptLine, 0, len(lines)),
		PostedAt:          time.Now(),
	}

	for _, in := range lines {
		line, err := NewGoodsReceiptLine(receipt.ID, in.POLineID, in.ReceivedQty, in.ReceivedAt)
		if err != nil {
			return nil, err
		}
		receipt.Lines = append(receipt.Lines, *line)
	}

	receipt.AddDomainEvent(NewGoodsReceiptPostedEvent(receipt))

	return receipt, nil
}

// Cancel supersedes the receipt. The record is kept for audit; its quantities
// no longer count towards received totals.
func (g *GoodsReceipt) Cancel(reason string) error {
	if g.Status == GoodsReceiptStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Receipt %s is already cancelled", g.ReceiptNumber))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	g.Status = GoodsReceiptStatusCancelled
	g.CancelledAt = &now
	g.CancelReason = reason
	g.UpdatedAt = now
	g.IncrementVersion()

	g.AddDomainEvent(NewGoodsReceiptCancelledEvent(g))

	return nil
}

// IsCancelled returns true if the receipt has been superseded
func (g *GoodsReceipt) IsCancelled() bool {
	return g.Status == GoodsReceiptStatusCancelled
}

// TotalReceivedQty returns the total quantity across all lines
func (g *GoodsReceipt) TotalReceivedQty() decimal.Decimal {
	total := decimal.Zero
	for _, line := range g.Lines {
		total = total.Add(line.ReceivedQty)
	}
	return total
}

package procurement

import (
	"context"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GoodsReceiptService posts and cancels goods receipt notes
type GoodsReceiptService struct {
	receiptRepo    procurement.GoodsReceiptRepository
	poRepo         procurement.PurchaseOrderRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewGoodsReceiptService creates a new GoodsReceiptService
func NewGoodsReceiptService(
	receiptRepo procurement.GoodsReceiptRepository,
	poRepo procurement.PurchaseOrderRepository,
	logger *zap.Logger,
) *GoodsReceiptService {
	return &GoodsReceiptService{
		receiptRepo: receiptRepo,
		poRepo:      poRepo,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *GoodsReceiptService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Post records goods physically received against a purchase order. Every
// line must reference a line of that order.
func (s *GoodsReceiptService) Post(ctx context.Context, req PostGoodsReceiptRequest) (*GoodsReceiptResponse, error) {
	po, err := s.poRepo.FindByID(ctx, req.POID)
	if err != nil {
		return nil, err
	}

	existing, err := s.receiptRepo.FindByReceiptNumber(ctx, req.ReceiptNumber)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A goods receipt with this number already exists")
	}

	lines := make([]procurement.ReceivedLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		if po.Line(l.POLineID) == nil {
			return nil, shared.NewDomainError("INVALID_PO_LINE", "Receipt line does not reference a line of this purchase order")
		}
		receivedAt := time.Now()
		if l.ReceivedAt != nil {
			receivedAt = *l.ReceivedAt
		}
		lines = append(lines, procurement.ReceivedLineInput{
			POLineID:    l.POLineID,
			ReceivedQty: l.ReceivedQty,
			ReceivedAt:  receivedAt,
		})
	}

	receipt, err := procurement.NewGoodsReceipt(req.ReceiptNumber, po.ID, lines)
	if err != nil {
		return nil, err
	}

	if err := s.receiptRepo.Save(ctx, receipt); err != nil {
		return nil, err
	}

	s.logger.Info("goods receipt posted",
		zap.String("receipt_id", receipt.ID.String()),
		zap.String("receipt_number", receipt.ReceiptNumber),
		zap.String("po_id", po.ID.String()),
	)
	s.publishEvents(ctx, receipt)

	response := ToGoodsReceiptResponse(receipt)
	return &response, nil
}

// Cancel cancels a posted receipt, removing its quantities from matching
func (s *GoodsReceiptService) Cancel(ctx context.Context, receiptID uuid.UUID, req CancelGoodsReceiptRequest) (*GoodsReceiptResponse, error) {
	receipt, err := s.receiptRepo.FindByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	if err := receipt.Cancel(req.Reason); err != nil {
		return nil, err
	}
	if err := s.receiptRepo.SaveWithLock(ctx, receipt); err != nil {
		return nil, err
	}

	s.logger.Info("goods receipt cancelled",
		zap.String("receipt_id", receipt.ID.String()),
		zap.String("reason", req.Reason),
	)
	s.publishEvents(ctx, receipt)

	response := ToGoodsReceiptResponse(receipt)
	return &response, nil
}

// GetByID retrieves a goods receipt by ID
func (s *GoodsReceiptService) GetByID(ctx context.Context, receiptID uuid.UUID) (*GoodsReceiptResponse, error) {
	receipt, err := s.receiptRepo.FindByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	response := ToGoodsReceiptResponse(receipt)
	return &response, nil
}

// ListByPurchaseOrder lists all receipts for a purchase order
func (s *GoodsReceiptService) ListByPurchaseOrder(ctx context.Context, poID uuid.UUID) ([]GoodsReceiptResponse, error) {
	receipts, err := s.receiptRepo.FindByPurchaseOrder(ctx, poID)
	if err != nil {
		return nil, err
	}
	responses := make([]GoodsReceiptResponse, 0, len(receipts))
	for _, r := range receipts {
		responses = append(responses, ToGoodsReceiptResponse(r))
	}
	return responses, nil
}

func (s *GoodsReceiptService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range aggregate.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err),
			)
		}
	}
	aggregate.ClearDomainEvents()
}

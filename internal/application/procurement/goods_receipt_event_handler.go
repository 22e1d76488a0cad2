package procurement

import (
	"context"
	"fmt"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GoodsReceiptEventHandler reacts to receipt postings and cancellations by
// recomputing every open invoice on the affected purchase order
type GoodsReceiptEventHandler struct {
	reconciliation *ReconciliationService
	logger         *zap.Logger
}

// NewGoodsReceiptEventHandler creates a new handler for goods receipt events
func NewGoodsReceiptEventHandler(reconciliation *ReconciliationService, logger *zap.Logger) *GoodsReceiptEventHandler {
	return &GoodsReceiptEventHandler{
		reconciliation: reconciliation,
		logger:         logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *GoodsReceiptEventHandler) EventTypes() []string {
	return []string{
		procurement.EventTypeGoodsReceiptPosted,
		procurement.EventTypeGoodsReceiptCancelled,
	}
}

// Handle processes a goods receipt event
func (h *GoodsReceiptEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var poID uuid.UUID
	switch e := event.(type) {
	case *procurement.GoodsReceiptPostedEvent:
		poID = e.POID
	case *procurement.GoodsReceiptCancelledEvent:
		poID = e.POID
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	h.logger.Info("recomputing matches after receipt change",
		zap.String("event_type", event.EventType()),
		zap.String("po_id", poID.String()),
	)

	if err := h.reconciliation.RecomputeOrder(ctx, poID); err != nil {
		h.logger.Error("recompute after receipt change failed",
			zap.String("po_id", poID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

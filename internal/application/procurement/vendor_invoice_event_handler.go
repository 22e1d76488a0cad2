package procurement

import (
	"context"
	"fmt"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VendorInvoiceEventHandler triggers matching when an invoice is submitted,
// its lines change, or it is voided. A voided invoice's quantities drop out
// of the totals, so its siblings on the same order need re-judging too.
type VendorInvoiceEventHandler struct {
	reconciliation *ReconciliationService
	logger         *zap.Logger
}

// NewVendorInvoiceEventHandler creates a new handler for invoice document events
func NewVendorInvoiceEventHandler(reconciliation *ReconciliationService, logger *zap.Logger) *VendorInvoiceEventHandler {
	return &VendorInvoiceEventHandler{
		reconciliation: reconciliation,
		logger:         logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *VendorInvoiceEventHandler) EventTypes() []string {
	return []string{
		procurement.EventTypeVendorInvoiceSubmitted,
		procurement.EventTypeVendorInvoiceLinesChanged,
		procurement.EventTypeVendorInvoiceVoided,
	}
}

// Handle processes an invoice document event
func (h *VendorInvoiceEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var poID *uuid.UUID
	switch e := event.(type) {
	case *procurement.VendorInvoiceSubmittedEvent:
		poID = e.POID
	case *procurement.VendorInvoiceLinesChangedEvent:
		poID = e.POID
	case *procurement.VendorInvoiceVoidedEvent:
		poID = e.POID
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	// Unlinked invoices stay pending until linked; nothing to match yet.
	if poID == nil {
		h.logger.Info("invoice has no purchase order link, skipping match",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_id", event.AggregateID().String()),
		)
		return nil
	}

	if err := h.reconciliation.RecomputeOrder(ctx, *poID); err != nil {
		h.logger.Error("recompute after invoice change failed",
			zap.String("po_id", poID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

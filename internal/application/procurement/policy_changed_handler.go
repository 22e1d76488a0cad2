package procurement

import (
	"context"
	"fmt"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PolicyChangedHandler recomputes open invoices when a tolerance rule
// changes. Scope filtering happens naturally: orders whose resolved policy
// did not change produce identical outcomes and their result versions stay
// put.
type PolicyChangedHandler struct {
	reconciliation *ReconciliationService
	invoiceRepo    procurement.VendorInvoiceRepository
	logger         *zap.Logger
}

// NewPolicyChangedHandler creates a new handler for tolerance policy changes
func NewPolicyChangedHandler(
	reconciliation *ReconciliationService,
	invoiceRepo procurement.VendorInvoiceRepository,
	logger *zap.Logger,
) *PolicyChangedHandler {
	return &PolicyChangedHandler{
		reconciliation: reconciliation,
		invoiceRepo:    invoiceRepo,
		logger:         logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *PolicyChangedHandler) EventTypes() []string {
	return []string{procurement.EventTypeTolerancePolicyChanged}
}

// Handle processes a tolerance policy change
func (h *PolicyChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*procurement.TolerancePolicyChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", procurement.EventTypeTolerancePolicyChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	h.logger.Info("recomputing open invoices after policy change",
		zap.String("rule_id", changed.RuleID.String()),
		zap.String("level", changed.Level.String()),
	)

	// The next recompute must see the changed rules
	h.reconciliation.InvalidatePolicyCache()

	orders := make(map[uuid.UUID]struct{})
	for _, status := range []procurement.InvoiceStatus{
		procurement.InvoiceStatusPendingReview,
		procurement.InvoiceStatusMatched,
		procurement.InvoiceStatusMismatch,
	} {
		invoices, err := h.invoiceRepo.FindByStatus(ctx, status, shared.Filter{})
		if err != nil {
			return err
		}
		for i := range invoices {
			if invoices[i].POID != nil {
				orders[*invoices[i].POID] = struct{}{}
			}
		}
	}

	for poID := range orders {
		if err := h.reconciliation.RecomputeOrder(ctx, poID); err != nil {
			h.logger.Error("recompute after policy change failed",
				zap.String("po_id", poID.String()),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

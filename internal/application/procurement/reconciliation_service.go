package procurement

import (
	"context"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/cache"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderLocker serializes reconciliation per purchase order. Acquire blocks
// until the lock is held or the context expires; contention past the deadline
// surfaces as CONCURRENT_UPDATE_CONFLICT so callers can retry with backoff.
type OrderLocker interface {
	Acquire(ctx context.Context, poID uuid.UUID) (release func(), err error)
}

// ReconciliationService drives three-way matching: it recomputes match
// results when documents change and carries the human approval actions.
type ReconciliationService struct {
	poRepo          procurement.PurchaseOrderRepository
	receiptRepo     procurement.GoodsReceiptRepository
	invoiceRepo     procurement.VendorInvoiceRepository
	resultRepo      procurement.MatchResultRepository
	ruleRepo        procurement.PolicyRuleRepository
	locker          OrderLocker
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	policyCache     *cache.PolicySetCache
	logger          *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	poRepo procurement.PurchaseOrderRepository,
	receiptRepo procurement.GoodsReceiptRepository,
	invoiceRepo procurement.VendorInvoiceRepository,
	resultRepo procurement.MatchResultRepository,
	ruleRepo procurement.PolicyRuleRepository,
	locker OrderLocker,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		poRepo:      poRepo,
		receiptRepo: receiptRepo,
		invoiceRepo: invoiceRepo,
		resultRepo:  resultRepo,
		ruleRepo:    ruleRepo,
		locker:      locker,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReconciliationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *ReconciliationService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetPolicyCache sets the cache used to memoize the validated rule set
func (s *ReconciliationService) SetPolicyCache(c *cache.PolicySetCache) {
	s.policyCache = c
}

// InvalidatePolicyCache drops the cached rule set after a rule change
func (s *ReconciliationService) InvalidatePolicyCache() {
	if s.policyCache != nil {
		s.policyCache.Invalidate()
	}
}

// Recompute re-runs the three-way match for one invoice. The whole
// read-evaluate-write cycle runs inside the per-order critical section, so
// concurrent document changes on the same order serialize rather than
// interleave. Recomputing over unchanged documents leaves the stored result
// version untouched.
func (s *ReconciliationService) Recompute(ctx context.Context, invoiceID uuid.UUID) (*MatchResultResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.POID == nil {
		return nil, shared.NewDomainError("UNLINKED_INVOICE", "Invoice is not linked to a purchase order")
	}
	if !invoice.Status.CanMatch() {
		return nil, shared.NewDomainError("ILLEGAL_TRANSITION", "Invoice status does not allow matching")
	}

	release, err := s.locker.Acquire(ctx, *invoice.POID)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := s.recomputeLocked(ctx, invoice)
	if err != nil {
		return nil, err
	}

	response := ToMatchResultResponse(result)
	return &response, nil
}

// RecomputeOrder re-runs the match for every matchable invoice on a purchase
// order. Invoices already decided or voided are skipped, not failed.
func (s *ReconciliationService) RecomputeOrder(ctx context.Context, poID uuid.UUID) error {
	release, err := s.locker.Acquire(ctx, poID)
	if err != nil {
		return err
	}
	defer release()

	invoices, err := s.invoiceRepo.FindByPurchaseOrder(ctx, poID)
	if err != nil {
		return err
	}

	for _, invoice := range invoices {
		if !invoice.Status.CanMatch() {
			continue
		}
		if _, err := s.recomputeLocked(ctx, invoice); err != nil {
			return err
		}
	}
	return nil
}

// recomputeLocked evaluates one invoice and stores the outcome. Callers must
// hold the order lock.
func (s *ReconciliationService) recomputeLocked(ctx context.Context, invoice *procurement.VendorInvoice) (*procurement.MatchResult, error) {
	poID := *invoice.POID

	po, err := s.poRepo.FindByID(ctx, poID)
	if err != nil {
		return nil, err
	}
	receipts, err := s.receiptRepo.FindByPurchaseOrder(ctx, poID)
	if err != nil {
		return nil, err
	}
	siblings, err := s.invoiceRepo.FindByPurchaseOrder(ctx, poID)
	if err != nil {
		return nil, err
	}

	engine, err := s.buildEngine(ctx)
	if err != nil {
		return nil, err
	}

	result, err := engine.EvaluateInvoice(po, receipts, siblings, invoice)
	if err != nil {
		return nil, err
	}

	existing, err := s.resultRepo.FindByInvoice(ctx, invoice.ID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		if existing.SameOutcome(result) {
			s.logger.Debug("match outcome unchanged",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Int64("version", existing.Version),
			)
			return existing, nil
		}
		result.Version = existing.Version + 1
	}

	if err := s.resultRepo.ReplaceForInvoice(ctx, result); err != nil {
		return nil, err
	}

	previousStatus := invoice.Status
	if err := invoice.ApplyMatchVerdict(result.Status); err != nil {
		return nil, err
	}
	if invoice.Status != previousStatus {
		if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
			return nil, err
		}
		s.publishEvents(ctx, invoice)
	}

	s.logger.Info("match recomputed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("po_id", poID.String()),
		zap.String("status", result.Status.String()),
		zap.Int64("version", result.Version),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordMatchOutcome(ctx, result.Status.String())
	}

	return result, nil
}

// buildEngine loads and validates the current tolerance rules. An invalid
// rule set blocks matching entirely until configuration is fixed.
func (s *ReconciliationService) buildEngine(ctx context.Context) (*procurement.MatchEngine, error) {
	if s.policyCache != nil {
		set, err := s.policyCache.Get(ctx, s.loadPolicySet)
		if err != nil {
			return nil, err
		}
		return procurement.NewMatchEngine(set), nil
	}
	set, err := s.loadPolicySet(ctx)
	if err != nil {
		return nil, err
	}
	return procurement.NewMatchEngine(set), nil
}

func (s *ReconciliationService) loadPolicySet(ctx context.Context) (*procurement.PolicySet, error) {
	rules, err := s.ruleRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return procurement.NewPolicySet(rules)
}

// GetResult returns the current match result for an invoice
func (s *ReconciliationService) GetResult(ctx context.Context, invoiceID uuid.UUID) (*MatchResultResponse, error) {
	result, err := s.resultRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToMatchResultResponse(result)
	return &response, nil
}

// List pages through match results narrowed by status, vendor and computation
// time range. All filter fields are optional. The page token is an opaque
// cursor; an empty token starts from the beginning and the listing is
// restartable after interruption.
func (s *ReconciliationService) List(ctx context.Context, filter procurement.MatchResultFilter, pageToken string, limit int) (*MatchResultPageResponse, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown match status")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	page, err := s.resultRepo.List(ctx, filter, pageToken, limit)
	if err != nil {
		return nil, err
	}

	items := make([]MatchResultResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ToMatchResultResponse(&page.Items[i]))
	}
	return &MatchResultPageResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	}, nil
}

// ListMismatches pages through results needing human disposition. The filter's
// vendor and time range apply; its status is forced to MISMATCH.
func (s *ReconciliationService) ListMismatches(ctx context.Context, filter procurement.MatchResultFilter, pageToken string, limit int) (*MatchResultPageResponse, error) {
	filter.Status = procurement.MatchStatusMismatch
	return s.List(ctx, filter, pageToken, limit)
}

// Approve approves a matched invoice for payment
func (s *ReconciliationService) Approve(ctx context.Context, invoiceID uuid.UUID, actor string) (*VendorInvoiceResponse, error) {
	return s.decide(ctx, invoiceID, func(invoice *procurement.VendorInvoice) error {
		return invoice.Approve(actor)
	})
}

// Override approves a mismatched invoice, recording the justification
func (s *ReconciliationService) Override(ctx context.Context, invoiceID uuid.UUID, actor, justification string) (*VendorInvoiceResponse, error) {
	return s.decide(ctx, invoiceID, func(invoice *procurement.VendorInvoice) error {
		return invoice.Override(actor, justification)
	})
}

// Reject rejects an invoice from either match verdict
func (s *ReconciliationService) Reject(ctx context.Context, invoiceID uuid.UUID, actor, reason string) (*VendorInvoiceResponse, error) {
	return s.decide(ctx, invoiceID, func(invoice *procurement.VendorInvoice) error {
		return invoice.Reject(actor, reason)
	})
}

// Post posts an approved invoice to payment; the invoice becomes immutable
func (s *ReconciliationService) Post(ctx context.Context, invoiceID uuid.UUID, actor string) (*VendorInvoiceResponse, error) {
	return s.decide(ctx, invoiceID, func(invoice *procurement.VendorInvoice) error {
		return invoice.Post(actor)
	})
}

// decide loads an invoice, applies a human decision and saves under the
// order lock so a decision cannot race a recompute on the same order.
func (s *ReconciliationService) decide(ctx context.Context, invoiceID uuid.UUID, action func(*procurement.VendorInvoice) error) (*VendorInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if invoice.POID != nil {
		release, err := s.locker.Acquire(ctx, *invoice.POID)
		if err != nil {
			return nil, err
		}
		defer release()

		// Reload inside the critical section; a recompute may have moved the
		// invoice since the first read.
		invoice, err = s.invoiceRepo.FindByID(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
	}

	if err := action(invoice); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, invoice)

	response := ToVendorInvoiceResponse(invoice)
	return &response, nil
}

func (s *ReconciliationService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
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

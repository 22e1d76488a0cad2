package procurement

import (
	"context"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VendorInvoiceService handles the document lifecycle of vendor invoices:
// upload, line editing, PO linkage, submission and voiding. Match verdicts
// and approval decisions live in the ReconciliationService.
type VendorInvoiceService struct {
	invoiceRepo    procurement.VendorInvoiceRepository
	poRepo         procurement.PurchaseOrderRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewVendorInvoiceService creates a new VendorInvoiceService
func NewVendorInvoiceService(
	invoiceRepo procurement.VendorInvoiceRepository,
	poRepo procurement.PurchaseOrderRepository,
	logger *zap.Logger,
) *VendorInvoiceService {
	return &VendorInvoiceService{
		invoiceRepo: invoiceRepo,
		poRepo:      poRepo,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *VendorInvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create uploads a vendor invoice. The PO link is optional at upload time;
// an unlinked invoice stays out of matching until linked.
func (s *VendorInvoiceService) Create(ctx context.Context, req CreateVendorInvoiceRequest) (*VendorInvoiceResponse, error) {
	existing, err := s.invoiceRepo.FindByInvoiceNumber(ctx, req.VendorID, req.InvoiceNumber)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "This vendor already has an invoice with this number")
	}

	if req.POID != nil {
		if _, err := s.poRepo.FindByID(ctx, *req.POID); err != nil {
			return nil, err
		}
	}

	invoice, err := procurement.NewVendorInvoice(req.InvoiceNumber, req.VendorID, req.POID)
	if err != nil {
		return nil, err
	}
	if len(req.Lines) > 0 {
		if err := invoice.SetLines(toDomainLineInputs(req.Lines)); err != nil {
			return nil, err
		}
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("vendor invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Bool("linked", invoice.IsLinked()),
	)
	s.publishEvents(ctx, invoice)

	response := ToVendorInvoiceResponse(invoice)
	return &response, nil
}

// SetLines replaces the lines of an invoice
func (s *VendorInvoiceService) SetLines(ctx context.Context, invoiceID uuid.UUID, req SetInvoiceLinesRequest) (*VendorInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.SetLines(toDomainLineInputs(req.Lines)); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, invoice)

	response := ToVendorInvoiceResponse(invoice)
	return &response, nil
}

// Link links an uploaded invoice to a purchase order
func (s *VendorInvoiceService) Link(ctx context.Context, invoiceID uuid.UUID, req LinkInvoiceRequest) (*VendorInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.poRepo.FindByID(ctx, req.POID); err != nil {
		return nil, err
	}

	if err := invoice.LinkPO(req.POID); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, invoice)

	response := ToVendorInvoiceResponse(invoice)
	return &response, nil
}

// Submit submits a draft invoice for matching
func (s *VendorInvoiceService) Submit(ctx context.Context, invoiceID uuid.UUID) (*VendorInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.Submit(); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, invoice)

	response := ToVendorInvoiceResponse(invoice)
	return &response, nil
}

// Void voids an invoice, removing it from matching permanently
func (s *VendorInvoiceService) Void(ctx context.Context, invoiceID uuid.UUID, req VoidInvoiceRequest) (*VendorInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.Void(req.Reason); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, invoice)

	response := ToVendorInvoiceResponse(invoice)
	return &response, nil
}

// GetByID retrieves a vendor invoice by ID
func (s *VendorInvoiceService) GetByID(ctx context.Context, invoiceID uuid.UUID) (*VendorInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToVendorInvoiceResponse(invoice)
	return &response, nil
}

// ListByStatus lists invoices in a given approval state
func (s *VendorInvoiceService) ListByStatus(ctx context.Context, status procurement.InvoiceStatus, filter shared.Filter) ([]VendorInvoiceResponse, int64, error) {
	if !status.IsValid() {
		return nil, 0, shared.NewDomainError("INVALID_INPUT", "Unknown invoice status")
	}

	invoices, err := s.invoiceRepo.FindByStatus(ctx, status, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.CountByStatus(ctx, status)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]VendorInvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, ToVendorInvoiceResponse(&invoices[i]))
	}
	return responses, total, nil
}

func toDomainLineInputs(lines []InvoiceLineInput) []procurement.InvoiceLineInput {
	inputs := make([]procurement.InvoiceLineInput, 0, len(lines))
	for _, l := range lines {
		inputs = append(inputs, procurement.InvoiceLineInput{
			POLineID:    l.POLineID,
			InvoicedQty: l.InvoicedQty,
			UnitPrice:   l.UnitPrice,
		})
	}
	return inputs
}

func (s *VendorInvoiceService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
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

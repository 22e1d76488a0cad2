package handler

import (
	procapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VendorInvoiceHandler handles vendor invoice API endpoints
type VendorInvoiceHandler struct {
	BaseHandler
	invoiceService *procapp.VendorInvoiceService
}

// NewVendorInvoiceHandler creates a new VendorInvoiceHandler
func NewVendorInvoiceHandler(invoiceService *procapp.VendorInvoiceService) *VendorInvoiceHandler {
	return &VendorInvoiceHandler{invoiceService: invoiceService}
}

// listVendorInvoicesQuery carries list filters bound from the query string
type listVendorInvoicesQuery struct {
	dto.ListRequest
	Status   string `form:"status" binding:"required"`
	VendorID string `form:"vendor_id" binding:"omitempty,uuid"`
	POID     string `form:"po_id" binding:"omitempty,uuid"`
	Unlinked bool   `form:"unlinked"`
}

// Create uploads a vendor invoice in draft state. Lines and the purchase
// order link may arrive later.
func (h *VendorInvoiceHandler) Create(c *gin.Context) {
	var req procapp.CreateVendorInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// SetLines replaces the billed lines of a draft invoice.
func (h *VendorInvoiceHandler) SetLines(c *gin.Context) {
	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req procapp.SetInvoiceLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.SetLines(c.Request.Context(), invoiceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Link attaches an unlinked invoice to its purchase order.
func (h *VendorInvoiceHandler) Link(c *gin.Context) {
	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req procapp.LinkInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.Link(c.Request.Context(), invoiceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Submit moves a draft invoice into review, which triggers matching.
func (h *VendorInvoiceHandler) Submit(c *gin.Context) {
	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.Submit(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Void cancels an invoice that will never be paid.
func (h *VendorInvoiceHandler) Void(c *gin.Context) {
	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req procapp.VoidInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.Void(c.Request.Context(), invoiceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetByID retrieves a vendor invoice by its ID.
func (h *VendorInvoiceHandler) GetByID(c *gin.Context) {
	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// List retrieves invoices in a given lifecycle status.
func (h *VendorInvoiceHandler) List(c *gin.Context) {
	query := listVendorInvoicesQuery{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}

	status := procurement.InvoiceStatus(query.Status)
	if !status.IsValid() {
		h.BadRequest(c, "Unknown invoice status")
		return
	}

	filter := shared.Filter{
		Page:     query.Page,
		PageSize: query.PageSize,
		OrderBy:  query.OrderBy,
		OrderDir: query.OrderDir,
		Search:   query.Search,
		Filters:  map[string]interface{}{},
	}
	if query.VendorID != "" {
		vendorID, err := uuid.Parse(query.VendorID)
		if err != nil {
			h.BadRequest(c, "Invalid vendor ID format")
			return
		}
		filter.Filters["vendor_id"] = vendorID
	}
	if query.POID != "" {
		poID, err := uuid.Parse(query.POID)
		if err != nil {
			h.BadRequest(c, "Invalid order ID format")
			return
		}
		filter.Filters["po_id"] = poID
	}
	if query.Unlinked {
		filter.Filters["unlinked"] = true
	}

	invoices, total, err := h.invoiceService.ListByStatus(c.Request.Context(), status, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

package handler

import (
	"time"

	procapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationHandler handles three way match API endpoints
type ReconciliationHandler struct {
	BaseHandler
	reconService *procapp.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(reconService *procapp.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconService: reconService}
}

// listMatchResultsQuery carries filter and keyset paging parameters
type listMatchResultsQuery struct {
	Status         string     `form:"status"`
	VendorID       string     `form:"vendor_id" binding:"omitempty,uuid"`
	ComputedAfter  *time.Time `form:"computed_after" time_format:"2006-01-02T15:04:05Z07:00"`
	ComputedBefore *time.Time `form:"computed_before" time_format:"2006-01-02T15:04:05Z07:00"`
	PageToken      string     `form:"page_token"`
	Limit          int        `form:"limit" binding:"omitempty,min=1,max=200"`
}

// matchResultFilter translates bound query params into a domain filter.
func (q *listMatchResultsQuery) matchResultFilter() procurement.MatchResultFilter {
	filter := procurement.MatchResultFilter{
		Status:         procurement.MatchStatus(q.Status),
		ComputedAfter:  q.ComputedAfter,
		ComputedBefore: q.ComputedBefore,
	}
	if q.VendorID != "" {
		vendorID := uuid.MustParse(q.VendorID)
		filter.VendorID = &vendorID
	}
	return filter
}

// Recompute forces a fresh match run for one invoice.
func (h *ReconciliationHandler) Recompute(c *gin.Context) {
	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	result, err := h.reconService.Recompute(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// RecomputeOrder recomputes every open invoice linked to a purchase order.
func (h *ReconciliationHandler) RecomputeOrder(c *gin.Context) {
	poID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	if err := h.reconService.RecomputeOrder(c.Request.Context(), poID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// GetResult retrieves the current match result for an invoice.
func (h *ReconciliationHandler) GetResult(c *gin.Context) {
	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	result, err := h.reconService.GetResult(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// List retrieves match results using keyset paging, optionally narrowed by
// status, vendor and computation time range.
func (h *ReconciliationHandler) List(c *gin.Context) {
	var query listMatchResultsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}

	if query.Status != "" && !procurement.MatchStatus(query.Status).IsValid() {
		h.BadRequest(c, "Unknown match status")
		return
	}

	page, err := h.reconService.List(c.Request.Context(), query.matchResultFilter(), query.PageToken, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, page)
}

// ListMismatches is the review queue: match results that need a human. Vendor
// and time range filters apply; the status filter is fixed.
func (h *ReconciliationHandler) ListMismatches(c *gin.Context) {
	var query listMatchResultsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.reconService.ListMismatches(c.Request.Context(), query.matchResultFilter(), query.PageToken, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, page)
}

// Approve approves a matched invoice for payment.
func (h *ReconciliationHandler) Approve(c *gin.Context) {
	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req procapp.DecisionRequest
	_ = c.ShouldBindJSON(&req)

	actor, err := getActor(c, req.Actor)
	if err != nil {
		h.Unauthorized(c, "Approval requires an identified actor")
		return
	}

	invoice, err := h.reconService.Approve(c.Request.Context(), invoiceID, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Override approves a mismatched invoice. A written justification is
// mandatory and lands in the audit trail.
func (h *ReconciliationHandler) Override(c *gin.Context) {
	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req procapp.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	actor, err := getActor(c, req.Actor)
	if err != nil {
		h.Unauthorized(c, "Override requires an identified actor")
		return
	}

	invoice, err := h.reconService.Override(c.Request.Context(), invoiceID, actor, req.Justification)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Reject sends an invoice back to the vendor.
func (h *ReconciliationHandler) Reject(c *gin.Context) {
	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req procapp.DecisionRequest
	_ = c.ShouldBindJSON(&req)

	actor, err := getActor(c, req.Actor)
	if err != nil {
		h.Unauthorized(c, "Rejection requires an identified actor")
		return
	}

	invoice, err := h.reconService.Reject(c.Request.Context(), invoiceID, actor, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Post marks an approved invoice as handed over to accounts payable.
func (h *ReconciliationHandler) Post(c *gin.Context) {
	invoiceID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req procapp.DecisionRequest
	_ = c.ShouldBindJSON(&req)

	actor, err := getActor(c, req.Actor)
	if err != nil {
		h.Unauthorized(c, "Posting requires an identified actor")
		return
	}

	invoice, err := h.reconService.Post(c.Request.Context(), invoiceID, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

package handler

import (
	procapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/gin-gonic/gin"
)

// GoodsReceiptHandler handles goods receipt note API endpoints
type GoodsReceiptHandler struct {
	BaseHandler
	receiptService *procapp.GoodsReceiptService
}

// NewGoodsReceiptHandler creates a new GoodsReceiptHandler
func NewGoodsReceiptHandler(receiptService *procapp.GoodsReceiptService) *GoodsReceiptHandler {
	return &GoodsReceiptHandler{receiptService: receiptService}
}

// Post records a goods receipt note against a purchase order. Receipts are
// immutable once posted.
func (h *GoodsReceiptHandler) Post(c *gin.Context) {
	var req procapp.PostGoodsReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	receipt, err := h.receiptService.Post(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, receipt)
}

// Cancel reverses a posted receipt so its quantities drop out of matching.
func (h *GoodsReceiptHandler) Cancel(c *gin.Context) {
	receiptID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	var req procapp.CancelGoodsReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	receipt, err := h.receiptService.Cancel(c.Request.Context(), receiptID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, receipt)
}

// GetByID retrieves a goods receipt by its ID.
func (h *GoodsReceiptHandler) GetByID(c *gin.Context) {
	receiptID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	receipt, err := h.receiptService.GetByID(c.Request.Context(), receiptID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, receipt)
}

// ListByPurchaseOrder retrieves all receipts recorded against a purchase
// order, oldest first.
func (h *GoodsReceiptHandler) ListByPurchaseOrder(c *gin.Context) {
	poID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	receipts, err := h.receiptService.ListByPurchaseOrder(c.Request.Context(), poID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, receipts)
}

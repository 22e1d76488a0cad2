package handler

import (
	"time"

	procapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PurchaseOrderHandler handles purchase order API endpoints
type PurchaseOrderHandler struct {
	BaseHandler
	orderService *procapp.PurchaseOrderService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(orderService *procapp.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{orderService: orderService}
}

// listPurchaseOrdersQuery carries list filters bound from the query string
type listPurchaseOrdersQuery struct {
	dto.ListRequest
	VendorID     string     `form:"vendor_id" binding:"omitempty,uuid"`
	IssuedAfter  *time.Time `form:"issued_after" time_format:"2006-01-02T15:04:05Z07:00"`
	IssuedBefore *time.Time `form:"issued_before" time_format:"2006-01-02T15:04:05Z07:00"`
}

// Create registers a purchase order as reference data for matching.
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req procapp.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, order)
}

// GetByID retrieves a purchase order by its ID.
func (h *PurchaseOrderHandler) GetByID(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// List retrieves a paginated list of purchase orders.
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	query := listPurchaseOrdersQuery{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
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
	if query.IssuedAfter != nil {
		filter.Filters["issued_after"] = *query.IssuedAfter
	}
	if query.IssuedBefore != nil {
		filter.Filters["issued_before"] = *query.IssuedBefore
	}

	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

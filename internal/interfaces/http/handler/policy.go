package handler

import (
	procapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/gin-gonic/gin"
)

// PolicyHandler handles tolerance policy rule API endpoints
type PolicyHandler struct {
	BaseHandler
	policyService *procapp.PolicyService
}

// NewPolicyHandler creates a new PolicyHandler
func NewPolicyHandler(policyService *procapp.PolicyService) *PolicyHandler {
	return &PolicyHandler{policyService: policyService}
}

// CreateRule creates a tolerance rule at one of the resolution levels.
func (h *PolicyHandler) CreateRule(c *gin.Context) {
	var req procapp.CreatePolicyRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	rule, err := h.policyService.CreateRule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, rule)
}

// UpdateRule replaces the tolerance values of an existing rule. Open
// invoices are recomputed afterwards.
func (h *PolicyHandler) UpdateRule(c *gin.Context) {
	ruleID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	var req procapp.UpdatePolicyRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	rule, err := h.policyService.UpdateRule(c.Request.Context(), ruleID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rule)
}

// DeleteRule removes a tolerance rule. Resolution falls through to the next
// broader level.
func (h *PolicyHandler) DeleteRule(c *gin.Context) {
	ruleID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	if err := h.policyService.DeleteRule(c.Request.Context(), ruleID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// GetRule retrieves one tolerance rule.
func (h *PolicyHandler) GetRule(c *gin.Context) {
	ruleID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	rule, err := h.policyService.GetRule(c.Request.Context(), ruleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rule)
}

// ListRules retrieves the whole rule set ordered by resolution level.
func (h *PolicyHandler) ListRules(c *gin.Context) {
	rules, err := h.policyService.ListRules(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rules)
}

package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/murichu/rent-sub002/internal/application/billing"
	"github.com/murichu/rent-sub002/internal/interfaces/http/dto"
)

// PenaltyHandler handles late fee API endpoints
type PenaltyHandler struct {
	BaseHandler
	penalties *billingapp.PenaltyService
}

// NewPenaltyHandler creates a new PenaltyHandler
func NewPenaltyHandler(penalties *billingapp.PenaltyService) *PenaltyHandler {
	return &PenaltyHandler{penalties: penalties}
}

// WaivePenaltyRequest represents a request to waive an assessed late fee
type WaivePenaltyRequest struct {
	Note string `json:"note" binding:"required,min=1,max=500"`
}

// Waive waives an assessed penalty
func (h *PenaltyHandler) Waive(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid penalty ID")
		return
	}

	var req WaivePenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	penalty, err := h.penalties.WaivePenalty(c.Request.Context(), uuid.MustParse(uri.ID), req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, penalty)
}

// PayPenaltyRequest represents a request to settle an assessed late fee
type PayPenaltyRequest struct {
	Reference string `json:"reference" binding:"max=100"`
}

// Pay marks a penalty as settled
func (h *PenaltyHandler) Pay(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid penalty ID")
		return
	}

	var req PayPenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	penalty, err := h.penalties.MarkPenaltyPaid(c.Request.Context(), uuid.MustParse(uri.ID), req.Reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, penalty)
}

// GetByID retrieves a penalty by ID
func (h *PenaltyHandler) GetByID(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid penalty ID")
		return
	}

	penalty, err := h.penalties.GetPenalty(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, penalty)
}

// List returns the agency's penalties with pagination
func (h *PenaltyHandler) List(c *gin.Context) {
	agencyID, err := getAgencyID(c)
	if err != nil {
		h.Unauthorized(c, "Agency identification required")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	penalties, total, err := h.penalties.ListPenalties(c.Request.Context(), agencyID, toFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, penalties, total, req.Page, req.PageSize)
}

package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	eventapp "github.com/murichu/rent-sub002/internal/application/event"
	"github.com/murichu/rent-sub002/internal/interfaces/http/dto"
)

// OutboxHandler exposes outbox administration endpoints: dead letter
// inspection and retry
type OutboxHandler struct {
	BaseHandler
	outbox *eventapp.OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outbox *eventapp.OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// ListDead returns dead letter entries with pagination
func (h *OutboxHandler) ListDead(c *gin.Context) {
	var filter eventapp.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.outbox.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Entries, result.Total, result.Page, result.PageSize)
}

// GetByID returns a single outbox entry
func (h *OutboxHandler) GetByID(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.outbox.GetEntry(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// Retry resets a dead letter entry so the processor picks it up again
func (h *OutboxHandler) Retry(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.outbox.RetryDeadEntry(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// RetryAll resets every dead letter entry for retry
func (h *OutboxHandler) RetryAll(c *gin.Context) {
	count, err := h.outbox.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"retried": count})
}

// Stats returns outbox entry counts by status
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outbox.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

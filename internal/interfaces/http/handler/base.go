package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/murichu/rent-sub002/internal/domain/payments"
	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/interfaces/http/dto"
	"github.com/murichu/rent-sub002/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return ""
}

// getAgencyID extracts the agency scope set by the agency middleware
func getAgencyID(c *gin.Context) (uuid.UUID, error) {
	agencyID, err := middleware.GetAgencyUUID(c)
	if err != nil {
		return uuid.Nil, err
	}
	if agencyID == uuid.Nil {
		return uuid.Nil, errors.New("agency ID not found in context")
	}
	return agencyID, nil
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response, for charges resolving asynchronously
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	statusCode := dto.GetHTTPStatus(code)
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	requestID := getRequestID(c)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	))
}

// gatewayErrorCodes maps the gateway sentinel errors to API error codes
var gatewayErrorCodes = []struct {
	err  error
	code string
}{
	{payments.ErrTransactionNotFound, dto.ErrCodeNotFound},
	{payments.ErrGatewayNotEnabled, dto.ErrCodeGatewayNotEnabled},
	{payments.ErrGatewayNotConfigured, dto.ErrCodeGatewayNotEnabled},
	{payments.ErrGatewayUnavailable, dto.ErrCodeGatewayUnavailable},
	{payments.ErrGatewayRequestFailed, dto.ErrCodeGatewayRejected},
	{payments.ErrGatewayInvalidResponse, dto.ErrCodeGatewayRejected},
	{payments.ErrGatewayTimeout, dto.ErrCodeGatewayTimeout},
	{payments.ErrGatewayInvalidWebhook, dto.ErrCodeBadRequest},
	{payments.ErrChargeInvalidAgencyID, dto.ErrCodeInvalidInput},
	{payments.ErrChargeInvalidLeaseID, dto.ErrCodeInvalidInput},
	{payments.ErrChargeInvalidAmount, dto.ErrCodeInvalidInput},
	{payments.ErrChargeInvalidChannel, dto.ErrCodeInvalidInput},
	{payments.ErrChargeInvalidMSISDN, dto.ErrCodeInvalidInput},
	{payments.ErrChargeInvalidReference, dto.ErrCodeInvalidInput},
	{payments.ErrChargeInvalidCallback, dto.ErrCodeInvalidInput},
	{payments.ErrQueryInvalidParams, dto.ErrCodeInvalidInput},
}

// HandleDomainError converts domain errors to HTTP responses
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	h.HandleError(c, err)
}

// HandleError converts domain errors and gateway sentinel errors to HTTP
// responses, defaulting to 500 for anything it does not recognize
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	// Structured domain errors carry their own code
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		statusCode := dto.GetHTTPStatus(code)
		c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	// Gateway and charge sentinel errors
	for _, mapping := range gatewayErrorCodes {
		if errors.Is(err, mapping.err) {
			statusCode := dto.GetHTTPStatus(mapping.code)
			c.JSON(statusCode, dto.NewErrorResponseWithRequestID(mapping.code, err.Error(), requestID))
			return
		}
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}

// toFilter converts list query parameters to a repository filter
func toFilter(req dto.ListRequest) shared.Filter {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = req.OrderDir
	}
	filter.Search = req.Search
	return filter
}

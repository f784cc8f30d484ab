package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murichu/rent-sub002/internal/domain/payments"
	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// serve runs a single handler function and returns the recorded response
func serve(handlerFn gin.HandlerFunc) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/test", handlerFn)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandler_Success(t *testing.T) {
	h := &BaseHandler{}

	w := serve(func(c *gin.Context) {
		h.Success(c, gin.H{"name": "value"})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandler_SuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}

	w := serve(func(c *gin.Context) {
		h.SuccessWithMeta(c, []string{"a", "b"}, 42, 2, 20)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(42), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "not found domain error",
			err:            shared.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   dto.ErrCodeNotFound,
		},
		{
			name:           "wrapped domain error",
			err:            fmt.Errorf("loading lease: %w", shared.ErrNotFound),
			expectedStatus: http.StatusNotFound,
			expectedCode:   dto.ErrCodeNotFound,
		},
		{
			name:           "concurrency conflict",
			err:            shared.ErrConcurrencyConflict,
			expectedStatus: http.StatusConflict,
			expectedCode:   dto.ErrCodeConcurrencyConflict,
		},
		{
			name:           "invalid state",
			err:            shared.ErrInvalidState,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   dto.ErrCodeInvalidState,
		},
		{
			name:           "duplicate invoice",
			err:            shared.NewDomainError("DUPLICATE_INVOICE", "An invoice already exists for this lease period"),
			expectedStatus: http.StatusConflict,
			expectedCode:   dto.ErrCodeDuplicateInvoice,
		},
		{
			name:           "validation-flavored domain error",
			err:            shared.NewDomainError("INVALID_RENT_AMOUNT", "Rent amount must be positive"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   dto.ErrCodeValidation,
		},
		{
			name:           "gateway timeout sentinel",
			err:            payments.ErrGatewayTimeout,
			expectedStatus: http.StatusGatewayTimeout,
			expectedCode:   dto.ErrCodeGatewayTimeout,
		},
		{
			name:           "gateway unavailable sentinel",
			err:            fmt.Errorf("provider call: %w", payments.ErrGatewayUnavailable),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   dto.ErrCodeGatewayUnavailable,
		},
		{
			name:           "transaction not found sentinel",
			err:            payments.ErrTransactionNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   dto.ErrCodeNotFound,
		},
		{
			name:           "invalid MSISDN sentinel",
			err:            payments.ErrChargeInvalidMSISDN,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   dto.ErrCodeInvalidInput,
		},
		{
			name:           "unknown error defaults to internal",
			err:            errors.New("something broke"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(func(c *gin.Context) {
				h.HandleError(c, tt.err)
			})

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedCode, resp.Error.Code)
		})
	}
}

func TestBaseHandler_HandleError_Nil(t *testing.T) {
	h := &BaseHandler{}

	w := serve(func(c *gin.Context) {
		h.HandleError(c, nil)
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBaseHandler_ErrorCarriesRequestID(t *testing.T) {
	h := &BaseHandler{}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "req-abc-123")
		c.Next()
	})
	router.GET("/test", func(c *gin.Context) {
		h.NotFound(c, "Lease not found")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-abc-123", resp.Error.RequestID)
}

func TestToFilter(t *testing.T) {
	t.Run("carries explicit values", func(t *testing.T) {
		req := dto.ListRequest{Page: 3, PageSize: 50, OrderBy: "due_at", OrderDir: "asc", Search: "INV-2026"}

		filter := toFilter(req)

		assert.Equal(t, 3, filter.Page)
		assert.Equal(t, 50, filter.PageSize)
		assert.Equal(t, "due_at", filter.OrderBy)
		assert.Equal(t, "asc", filter.OrderDir)
		assert.Equal(t, "INV-2026", filter.Search)
	})

	t.Run("zero values fall back to defaults", func(t *testing.T) {
		filter := toFilter(dto.ListRequest{})

		defaults := shared.DefaultFilter()
		assert.Equal(t, defaults.Page, filter.Page)
		assert.Equal(t, defaults.PageSize, filter.PageSize)
		assert.Equal(t, defaults.OrderBy, filter.OrderBy)
	})
}

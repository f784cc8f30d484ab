package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murichu/rent-sub002/internal/infrastructure/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockAgencyValidator is a test implementation of AgencyValidator
type mockAgencyValidator struct {
	ValidAgencies map[string]bool
	ShouldFail    bool
	FailError     error
}

func (m *mockAgencyValidator) ValidateAgency(agencyID string) error {
	if m.ShouldFail {
		return m.FailError
	}
	if m.ValidAgencies[agencyID] {
		return nil
	}
	return errors.New("agency not found")
}

func TestAgencyMiddleware_HeaderExtraction(t *testing.T) {
	tests := []struct {
		name           string
		agencyID       string
		expectedStatus int
	}{
		{
			name:           "valid agency ID in header",
			agencyID:       uuid.New().String(),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing agency ID",
			agencyID:       "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid agency ID format",
			agencyID:       "invalid-uuid",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AgencyMiddleware())

			var capturedAgencyID string
			router.GET("/test", func(c *gin.Context) {
				capturedAgencyID = GetAgencyID(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.agencyID != "" {
				req.Header.Set(AgencyHeaderKey, tt.agencyID)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.agencyID, capturedAgencyID)
			}
		})
	}
}

func TestAgencyMiddleware_SkipPaths(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		skipPaths      []string
		expectedStatus int
	}{
		{
			name:           "health endpoint skipped",
			path:           "/health",
			skipPaths:      []string{"/health"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "webhook endpoint skipped",
			path:           "/webhooks/mpesa",
			skipPaths:      []string{"/webhooks"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "nested health path skipped",
			path:           "/health/ready",
			skipPaths:      []string{"/health"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "non-skipped path requires agency",
			path:           "/api/test",
			skipPaths:      []string{"/health"},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			cfg := DefaultAgencyConfig()
			cfg.SkipPaths = tt.skipPaths
			router.Use(AgencyMiddlewareWithConfig(cfg))

			router.GET(tt.path, func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestAgencyMiddleware_OptionalAgency(t *testing.T) {
	router := gin.New()
	router.Use(OptionalAgencyMiddleware())

	var capturedAgencyID string
	router.GET("/test", func(c *gin.Context) {
		capturedAgencyID = GetAgencyID(c)
		c.Status(http.StatusOK)
	})

	// Request without agency ID should succeed
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, capturedAgencyID)
}

func TestAgencyMiddleware_WithValidator(t *testing.T) {
	validAgencyID := uuid.New().String()
	invalidAgencyID := uuid.New().String()

	validator := &mockAgencyValidator{
		ValidAgencies: map[string]bool{validAgencyID: true},
	}

	tests := []struct {
		name           string
		agencyID       string
		expectedStatus int
	}{
		{
			name:           "valid agency passes validation",
			agencyID:       validAgencyID,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown agency fails validation",
			agencyID:       invalidAgencyID,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			cfg := DefaultAgencyConfig()
			cfg.Validator = validator
			router.Use(AgencyMiddlewareWithConfig(cfg))

			router.GET("/test", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(AgencyHeaderKey, tt.agencyID)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestGetAgencyUUID(t *testing.T) {
	agencyID := uuid.New().String()

	router := gin.New()
	router.Use(AgencyMiddleware())

	router.GET("/test", func(c *gin.Context) {
		gotID := GetAgencyID(c)
		assert.Equal(t, agencyID, gotID)

		gotUUID, err := GetAgencyUUID(c)
		require.NoError(t, err)
		assert.Equal(t, uuid.MustParse(agencyID), gotUUID)

		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AgencyHeaderKey, agencyID)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMustGetAgencyUUID_Panics(t *testing.T) {
	router := gin.New()
	// No agency middleware, so no agency_id in context

	router.GET("/test", func(c *gin.Context) {
		assert.Panics(t, func() {
			MustGetAgencyUUID(c)
		})
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDefaultAgencyConfig(t *testing.T) {
	cfg := DefaultAgencyConfig()

	assert.True(t, cfg.Required)
	assert.Nil(t, cfg.Validator)
	assert.Nil(t, cfg.Logger)
	assert.Contains(t, cfg.SkipPaths, "/health")
	assert.Contains(t, cfg.SkipPaths, "/webhooks")
}

func TestAgencyMiddleware_ContextPropagation(t *testing.T) {
	agencyID := uuid.New().String()

	router := gin.New()
	router.Use(AgencyMiddleware())

	router.GET("/test", func(c *gin.Context) {
		// Agency ID should also be available in the request context
		// via the logger package utility
		ctx := c.Request.Context()
		ctxAgencyID := logger.GetAgencyID(ctx)
		assert.Equal(t, agencyID, ctxAgencyID)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AgencyHeaderKey, agencyID)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAgencyMiddleware_ValidatorError(t *testing.T) {
	agencyID := uuid.New().String()

	validator := &mockAgencyValidator{
		ShouldFail: true,
		FailError:  errors.New("database connection failed"),
	}

	router := gin.New()
	cfg := DefaultAgencyConfig()
	cfg.Validator = validator
	router.Use(AgencyMiddlewareWithConfig(cfg))

	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AgencyHeaderKey, agencyID)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/murichu/rent-sub002/internal/infrastructure/logger"
)

// Keys used to store agency information in gin.Context
const (
	AgencyIDKey     = "agency_id"
	AgencyHeaderKey = "X-Agency-ID"
)

// AgencyValidator defines the interface for validating that an agency
// exists and is active
type AgencyValidator interface {
	ValidateAgency(agencyID string) error
}

// AgencyMiddlewareConfig holds configuration for agency middleware
type AgencyMiddlewareConfig struct {
	// SkipPaths are paths that don't require agency context (health checks,
	// gateway webhooks)
	SkipPaths []string
	// Required determines if agency context is mandatory
	Required bool
	// Validator is an optional validator to check if the agency exists and is active
	Validator AgencyValidator
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultAgencyConfig returns default agency middleware configuration
func DefaultAgencyConfig() AgencyMiddlewareConfig {
	return AgencyMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/webhooks"},
		Required:  true,
		Validator: nil,
		Logger:    nil,
	}
}

// AgencyMiddleware extracts the agency scope from the X-Agency-ID header
func AgencyMiddleware() gin.HandlerFunc {
	return AgencyMiddlewareWithConfig(DefaultAgencyConfig())
}

// AgencyMiddlewareWithConfig returns agency middleware with custom configuration
func AgencyMiddlewareWithConfig(cfg AgencyMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if path should be skipped
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		agencyID := c.GetHeader(AgencyHeaderKey)

		// Validate agency ID format if present
		if agencyID != "" {
			if _, err := uuid.Parse(agencyID); err != nil {
				respondUnauthorized(c, "Invalid agency ID format")
				return
			}
		}

		if agencyID == "" && cfg.Required {
			respondUnauthorized(c, "Agency identification required")
			return
		}

		// Optional: Validate agency exists and is active
		if agencyID != "" && cfg.Validator != nil {
			if err := cfg.Validator.ValidateAgency(agencyID); err != nil {
				log := cfg.Logger
				if log == nil {
					log = logger.FromContext(c.Request.Context())
				}
				log.Warn("Agency validation failed",
					zap.String("agency_id", agencyID),
					zap.Error(err),
				)
				respondUnauthorized(c, "Invalid or inactive agency")
				return
			}
		}

		// Set agency scope in gin context and the request context so the
		// service layer and the logger both see it
		if agencyID != "" {
			c.Set(AgencyIDKey, agencyID)

			ctx := c.Request.Context()
			log := logger.FromContext(ctx)
			ctx, _ = logger.WithAgencyID(ctx, log, agencyID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

// respondUnauthorized sends an unauthorized response
func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetAgencyID retrieves the agency ID from gin.Context
func GetAgencyID(c *gin.Context) string {
	if agencyID, exists := c.Get(AgencyIDKey); exists {
		if aid, ok := agencyID.(string); ok {
			return aid
		}
	}
	return ""
}

// GetAgencyUUID retrieves the agency ID as UUID from gin.Context
func GetAgencyUUID(c *gin.Context) (uuid.UUID, error) {
	agencyID := GetAgencyID(c)
	if agencyID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(agencyID)
}

// MustGetAgencyUUID retrieves the agency ID as UUID or panics if not found.
// Use this only in handlers behind the required agency middleware.
func MustGetAgencyUUID(c *gin.Context) uuid.UUID {
	agencyUUID, err := GetAgencyUUID(c)
	if err != nil || agencyUUID == uuid.Nil {
		panic("valid agency_id not found in context")
	}
	return agencyUUID
}

// OptionalAgencyMiddleware creates middleware that doesn't require an agency
func OptionalAgencyMiddleware() gin.HandlerFunc {
	cfg := DefaultAgencyConfig()
	cfg.Required = false
	return AgencyMiddlewareWithConfig(cfg)
}

package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping() error {
	return p.err
}

func TestHealthHandler_Health(t *testing.T) {
	h := NewHealthHandler(&fakePinger{}, "1.2.3")

	router := gin.New()
	router.GET("/health", h.Health)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"version":"1.2.3"`)
}

func TestHealthHandler_Ready(t *testing.T) {
	t.Run("ready when database responds", func(t *testing.T) {
		h := NewHealthHandler(&fakePinger{}, "test")

		router := gin.New()
		router.GET("/health/ready", h.Ready)

		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unavailable when database is down", func(t *testing.T) {
		h := NewHealthHandler(&fakePinger{err: errors.New("connection refused")}, "test")

		router := gin.New()
		router.GET("/health/ready", h.Ready)

		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("ready without a database", func(t *testing.T) {
		h := NewHealthHandler(nil, "test")

		router := gin.New()
		router.GET("/health/ready", h.Ready)

		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

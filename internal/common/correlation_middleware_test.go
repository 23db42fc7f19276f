package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCorrelationMiddlewareGeneratesIDWhenHeaderAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	mw := NewCorrelationMiddleware(zap.NewNop())
	router.Use(mw.Handler())

	var seen string
	router.GET("/ping", func(c *gin.Context) {
		seen = GetCorrelationID(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(CorrelationIDHeader))
}

func TestCorrelationMiddlewarePropagatesIncomingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	mw := NewCorrelationMiddleware(zap.NewNop())
	router.Use(mw.Handler())

	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(CorrelationIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(CorrelationIDHeader))
}

func TestWithCorrelationIDRoundTripsThroughContext(t *testing.T) {
	ctx := WithCorrelationID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "abc")
	assert.Equal(t, "abc", GetCorrelationIDFromContext(ctx))
}

package common

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestHealthCheckReturnsServiceInfo(t *testing.T) {
	router := newTestRouter()
	h := NewHealthHandler("tradSys", "1.0", zap.NewNop())
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "tradSys", body["service"])
}

func TestReadinessWithoutProbeIsAlwaysReady(t *testing.T) {
	router := newTestRouter()
	h := NewHealthHandler("tradSys", "1.0", zap.NewNop())
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestReadinessReportsServiceUnavailableOnFailingProbe(t *testing.T) {
	router := newTestRouter()
	h := NewHealthHandler("tradSys", "1.0", zap.NewNop())
	h.SetReadinessCheck(func(ctx context.Context) error {
		return errors.New("database unreachable")
	})
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body["status"])
}

func TestLivenessIsUnconditional(t *testing.T) {
	router := newTestRouter()
	h := NewHealthHandler("tradSys", "1.0", zap.NewNop())
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

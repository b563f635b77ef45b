package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-datatable/internal/middleware"
	"github.com/noah-isme/sma-adp-datatable/internal/service"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestReadyReflectsDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var down bool
	h := NewMetricsHandler(service.NewMetricsService(), pingerFunc(func(context.Context) error {
		if down {
			return assert.AnError
		}
		return nil
	}), nil)
	r := gin.New()
	r.GET("/ready", h.Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "disabled", body["cache"])

	down = true
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsMiddlewareSkipsProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	h := NewMetricsHandler(metrics, nil, nil)
	r := gin.New()
	r.Use(middleware.Metrics(metrics))
	r.GET("/health", h.Health)
	r.GET("/students", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health", "/students", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.EqualValues(t, 2, metrics.Snapshot().RequestsTotal)
}

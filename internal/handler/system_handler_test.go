package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/service"
	"github.com/noah-isme/classroom-api/pkg/apper"
)

func failingHandle() *apper.Handle {
	return apper.NewHandle(apper.HandleConfig{
		Factory: func(context.Context) (apper.Backend, error) {
			return nil, errors.New("connection refused")
		},
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Sleep:      func(context.Context, time.Duration) error { return nil },
	})
}

func systemRouter(store storeHandle, metrics *service.MetricsService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, "/api/v1", Handlers{System: NewSystemHandler(store, metrics)})
	return r
}

func TestSystemHandlerReadyWhenStoreConnected(t *testing.T) {
	r := systemRouter(apper.NewStaticHandle(apper.NewMemoryBackend()), service.NewMetricsService())

	w := performRequest(r, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "ready", envelope.Data["state"])
}

func TestSystemHandlerReadyReportsFailure(t *testing.T) {
	r := systemRouter(failingHandle(), service.NewMetricsService())

	w := performRequest(r, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "failed", envelope.Data["state"])
	assert.Equal(t, float64(3), envelope.Data["attempts"])
	assert.Contains(t, envelope.Data["error"], "connection refused")
}

func TestSystemHandlerResetStore(t *testing.T) {
	store := failingHandle()
	_, err := store.Get(context.Background())
	require.Error(t, err)
	r := systemRouter(store, service.NewMetricsService())

	w := performRequest(r, httptest.NewRequest(http.MethodPost, "/api/v1/admin/store/reset", nil))

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, apper.StateUninitialized, store.State())
	assert.NoError(t, store.Err())
}

func TestSystemHandlerMetricsAndHealth(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordCacheOperation(true, time.Millisecond)
	r := systemRouter(apper.NewStaticHandle(apper.NewMemoryBackend()), metrics)

	w := performRequest(r, httptest.NewRequest(http.MethodGet, "/api/v1/system/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, float64(1), envelope.Data["cache_hits"])

	w = performRequest(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cache_hits_total")

	w = performRequest(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func performRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

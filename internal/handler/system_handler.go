package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/service"
	"github.com/noah-isme/classroom-api/pkg/apper"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type storeHandle interface {
	State() apper.State
	Err() error
	Attempts() int
	Get(ctx context.Context) (apper.Backend, error)
	Reset()
}

// StoreStatus describes the record store connection.
type StoreStatus struct {
	State    string `json:"state"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// SystemHandler exposes health, readiness and observability endpoints.
type SystemHandler struct {
	store   storeHandle
	metrics *service.MetricsService
}

// NewSystemHandler constructs a system handler.
func NewSystemHandler(store storeHandle, metrics *service.MetricsService) *SystemHandler {
	return &SystemHandler{store: store, metrics: metrics}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *SystemHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary Readiness of the record store
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	if h.store.State() == apper.StateUninitialized {
		// first probe triggers the lazy connection
		_, _ = h.store.Get(c.Request.Context())
	}
	status := h.status()
	code := http.StatusOK
	if h.store.State() != apper.StateReady {
		code = http.StatusServiceUnavailable
	}
	response.JSON(c, code, status, nil)
}

// ResetStore godoc
// @Summary Discard the record store connection so the next call reconnects
// @Tags System
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /admin/store/reset [post]
func (h *SystemHandler) ResetStore(c *gin.Context) {
	h.store.Reset()
	response.JSON(c, http.StatusAccepted, h.status(), nil)
}

// Metrics godoc
// @Summary Process metrics snapshot
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /system/metrics [get]
func (h *SystemHandler) Metrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}

func (h *SystemHandler) status() StoreStatus {
	state := h.store.State()
	h.metrics.SetStoreState(state)
	status := StoreStatus{State: state.String(), Attempts: h.store.Attempts()}
	if err := h.store.Err(); err != nil {
		status.Error = err.Error()
	}
	return status
}

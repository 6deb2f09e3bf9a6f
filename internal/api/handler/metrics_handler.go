package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kiosko_estacionamiento/internal/service"
)

type MetricsHandler struct {
	metrics *service.MetricsService
}

func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// GET /api/v1/metricas
func (h *MetricsHandler) Metrics(c *gin.Context) {
	m, err := h.metrics.Calculate(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// GET /api/v1/dashboard
func (h *MetricsHandler) Dashboard(c *gin.Context) {
	d, err := h.metrics.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

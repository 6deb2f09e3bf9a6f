package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/service"
)

type ConfigHandler struct {
	config *service.ConfigService
}

func NewConfigHandler(config *service.ConfigService) *ConfigHandler {
	return &ConfigHandler{config: config}
}

// GET /api/v1/configuracion
func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, err := h.config.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tarifaHora": cfg.Tarifa(), "impresora": cfg.Impresora})
}

// PUT /api/v1/configuracion/tarifa
func (h *ConfigHandler) UpdateTarifa(c *gin.Context) {
	var dto domain.TarifaDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := h.config.UpdateTarifa(c.Request.Context(), dto.TarifaHora)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// PUT /api/v1/configuracion/impresora
func (h *ConfigHandler) UpdatePrinter(c *gin.Context) {
	var dto domain.PrinterConfig
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := h.config.UpdatePrinter(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// POST /api/v1/configuracion/impresora/prueba
func (h *ConfigHandler) TestPrinter(c *gin.Context) {
	res, err := h.config.TestPrinter(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/v1/configuracion/impresora/corte
func (h *ConfigHandler) TestCut(c *gin.Context) {
	res, err := h.config.TestCut(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

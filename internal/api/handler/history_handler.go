package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/service"
)

type HistoryHandler struct {
	history *service.HistoryService
}

func NewHistoryHandler(history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// GET /api/v1/historial?patente=&pagina=
func (h *HistoryHandler) List(c *gin.Context) {
	var q domain.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := h.history.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/historial/exportar?patente=
func (h *HistoryHandler) Export(c *gin.Context) {
	var q domain.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, h.history.ExportFilename()))
	c.Status(http.StatusOK)
	if err := h.history.ExportCSV(c.Request.Context(), q, c.Writer); err != nil {
		respondError(c, err)
	}
}

// POST /api/v1/historial/:id/reimprimir
func (h *HistoryHandler) Reprint(c *gin.Context) {
	job, err := h.history.Reprint(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

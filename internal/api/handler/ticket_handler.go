package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/service"
)

// TicketHandler sirve los trabajos de impresión pendientes y recibe su
// confirmación cuando el panel no está conectado por WebSocket.
type TicketHandler struct {
	acks *service.PrintAckBroker
}

func NewTicketHandler(acks *service.PrintAckBroker) *TicketHandler {
	return &TicketHandler{acks: acks}
}

// GET /api/v1/tickets/:id
func (h *TicketHandler) Page(c *gin.Context) {
	job, ok := h.acks.Job(c.Param("id"))
	if !ok {
		respondError(c, service.ErrPrintJobNotFound)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(job.HTML))
}

// POST /api/v1/tickets/:id/confirmacion
func (h *TicketHandler) Ack(c *gin.Context) {
	var dto domain.PrintAckDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := domain.PrintCancelled
	if dto.Tipo == domain.MensajeTicketImpreso {
		result = domain.PrintConfirmed
	}
	if !h.acks.Resolve(c.Param("id"), result) {
		respondError(c, service.ErrPrintJobNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "resultado": result.String()})
}

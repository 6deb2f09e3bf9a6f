package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/service"
)

type SpaceHandler struct {
	spaces *service.SpaceService
	lpr    *service.LPRService
}

func NewSpaceHandler(spaces *service.SpaceService, lpr *service.LPRService) *SpaceHandler {
	return &SpaceHandler{spaces: spaces, lpr: lpr}
}

// GET /api/v1/estacionamientos
func (h *SpaceHandler) List(c *gin.Context) {
	spaces, err := h.spaces.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"espacios": spaces, "resumen": domain.CountSpaces(spaces)})
}

// GET /api/v1/estacionamientos/:id
func (h *SpaceHandler) Get(c *gin.Context) {
	space, err := h.spaces.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, space)
}

// POST /api/v1/estacionamientos/:id/finalizar
func (h *SpaceHandler) Finalize(c *gin.Context) {
	space, err := h.spaces.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, space)
}

// POST /api/v1/estacionamientos/:id/imprimir
//
// Responde 202 con el trabajo; el resultado llega después por la
// confirmación del panel o vence.
func (h *SpaceHandler) Print(c *gin.Context) {
	job, err := h.spaces.StartPrint(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// POST /api/v1/estacionamientos/:id/verificar
func (h *SpaceHandler) Verify(c *gin.Context) {
	space, err := h.spaces.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, space)
}

type plateRequest struct {
	Patente     string `json:"patente" binding:"omitempty,min=4,max=10"`
	ImageBase64 string `json:"image_base64"`
}

// POST /api/v1/estacionamientos/:id/patente
//
// Acepta la patente escrita por el operador o una foto para reconocerla.
func (h *SpaceHandler) Plate(c *gin.Context) {
	var req plateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos: " + err.Error()})
		return
	}
	id := c.Param("id")

	if req.ImageBase64 == "" {
		if req.Patente == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Debe indicar la patente o una imagen"})
			return
		}
		space, err := h.spaces.UpdatePlate(c.Request.Context(), id, req.Patente)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, space)
		return
	}

	if h.lpr == nil || !h.lpr.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Reconocimiento de patentes no disponible"})
		return
	}
	img, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(img) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Imagen inválida"})
		return
	}
	res, err := h.lpr.RecognizeForSpace(c.Request.Context(), id, img)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

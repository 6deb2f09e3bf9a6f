package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"kiosko_estacionamiento/internal/repository"
	"kiosko_estacionamiento/internal/service"
)

// respondError traduce los errores de los servicios a códigos HTTP.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrPrintJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrSpaceNotOccupied), errors.Is(err, service.ErrSpaceNotPending),
		errors.Is(err, service.ErrSpaceBusy):
		status = http.StatusConflict
	case errors.Is(err, service.ErrPlateNotRecognized):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrPrinterNotConfigured):
		status = http.StatusPreconditionFailed
	}
	if status == http.StatusInternalServerError {
		log.Printf("Handler %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

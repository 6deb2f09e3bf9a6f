package service

import "errors"

var (
	ErrSpaceNotOccupied     = errors.New("el espacio no está ocupado")
	ErrSpaceNotPending      = errors.New("el espacio no tiene un ticket pendiente")
	ErrSpaceBusy            = errors.New("el espacio ya tiene una operación en curso")
	ErrPrinterNotConfigured = errors.New("no hay impresora configurada")
	ErrPrintJobNotFound     = errors.New("trabajo de impresión no encontrado o ya resuelto")
	ErrPlateNotRecognized   = errors.New("no se reconoció una patente en la imagen")
)

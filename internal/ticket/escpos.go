// Package ticket arma el ticket de estacionamiento a partir de los datos de
// la sesión y la configuración de la impresora. Hay dos salidas con la misma
// plantilla: un flujo ESC/POS para la impresora térmica y HTML para el
// diálogo de impresión del navegador.
package ticket

import (
	"strings"

	"kiosko_estacionamiento/internal/domain"
)

// Comandos ESC/POS.
const (
	Inicializar         = "\x1B\x40"
	AlineacionIzquierda = "\x1B\x61\x00"
	AlineacionCentro    = "\x1B\x61\x01"
	AlineacionDerecha   = "\x1B\x61\x02"
	FuenteNormal        = "\x1B\x21\x00"
	FuenteGrande        = "\x1B\x21\x11"
	FuentePequena       = "\x1B\x21\x01"
	NegritaOn           = "\x1B\x45\x01"
	CorteCompleto       = "\x1D\x56\x00"
	CorteParcial        = "\x1D\x56\x01"
	AvanceCompleto      = "\x1B\x4A\x18"
	NuevaLinea          = "\x0A"

	// Ajustes de calidad para las Nippon Primex.
	primexResolucion300 = "\x1D\x7C\x00"
	primexVelocidad     = "\x1B\x73\x00"
	primexDensidad      = "\x1B\x47\x00"
	primexInterlineado  = "\x1B\x33\x18"
	primexAltaCalidad   = "\x1B\x21\x08"
)

func alignCommand(a domain.Alignment) string {
	switch a {
	case domain.AlineacionIzquierda:
		return AlineacionIzquierda
	case domain.AlineacionDerecha:
		return AlineacionDerecha
	}
	return AlineacionCentro
}

func fontCommand(f domain.FontSize) string {
	switch f {
	case domain.FuenteGrande:
		return FuenteGrande
	case domain.FuentePequena:
		return FuentePequena
	}
	return FuenteNormal
}

// RenderESCPOS genera el flujo de control para la impresora térmica.
func RenderESCPOS(data domain.TicketData, cfg *domain.PrinterConfig) []byte {
	var b strings.Builder
	b.WriteString(preamble(cfg))
	for _, blk := range layout(data, cfg) {
		b.WriteString(alignCommand(blk.align))
		b.WriteString(fontCommand(blk.font))
		for _, line := range blk.lines {
			b.WriteString(line)
			b.WriteString(NuevaLinea)
		}
		if blk.separator {
			b.WriteString(separator(cfg))
			b.WriteString(NuevaLinea)
		}
	}
	b.WriteString(cutSequence(cfg.Cut()))
	return []byte(b.String())
}

// RenderCutTest devuelve sólo la orden de corte configurada, para probar la
// cuchilla sin imprimir un ticket.
func RenderCutTest(cfg *domain.PrinterConfig) []byte {
	cut := cfg.Cut()
	if !cut.CortarAutomaticamente {
		return []byte(NuevaLinea)
	}
	return []byte(cutCommand(cut.TipoCorte))
}

func preamble(cfg *domain.PrinterConfig) string {
	p := Inicializar
	if cfg != nil && strings.Contains(strings.ToLower(cfg.Modelo), "primex") {
		if cfg.Resolucion == 300 {
			p += primexResolucion300
		}
		p += primexVelocidad + primexDensidad + primexInterlineado + primexAltaCalidad
	}
	p += alignCommand(cfg.TitleAlignment())
	p += fontCommand(cfg.TicketFontSize())
	if cfg != nil && cfg.Comandos.Negrita {
		p += NegritaOn
	}
	return p
}

func cutSequence(cut domain.CutConfig) string {
	s := strings.Repeat(NuevaLinea, max(cut.MargenCorte, 0))
	if cut.CortarAutomaticamente {
		s += cutCommand(cut.TipoCorte)
	}
	return s
}

func cutCommand(t domain.CutType) string {
	switch t {
	case domain.CorteParcial:
		return CorteParcial
	case domain.CorteDesconectado:
		return AvanceCompleto
	}
	return CorteCompleto
}

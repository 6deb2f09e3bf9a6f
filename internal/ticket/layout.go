package ticket

import (
	"strings"

	"kiosko_estacionamiento/internal/billing"
	"kiosko_estacionamiento/internal/domain"
)

const (
	Titulo            = "TICKET DE ESTACIONAMIENTO"
	LineaLogo         = "🏢 LOGO EMPRESA"
	saltoConfigurado  = "&#10;"
	anchoPapelDefecto = 80
)

var piePorDefecto = []string{"¡GRACIAS POR SU VISITA!", "Conserve este ticket"}

// block es un bloque lógico del ticket con una sola alineación y fuente.
type block struct {
	align     domain.Alignment
	font      domain.FontSize
	lines     []string
	separator bool
}

func layout(data domain.TicketData, cfg *domain.PrinterConfig) []block {
	var formato domain.TicketFormat
	if cfg != nil {
		formato = cfg.FormatoTicket
	}
	sep := formato.MostrarSeparadores
	align := cfg.TitleAlignment()
	font := cfg.TicketFontSize()

	var blocks []block
	if formato.Encabezado != "" {
		blocks = append(blocks, block{align, font, splitConfigured(formato.Encabezado), sep})
	} else if formato.MostrarLogo {
		blocks = append(blocks, block{align, font, []string{LineaLogo}, sep})
	}
	blocks = append(blocks, block{align, font, []string{Titulo}, sep})
	blocks = append(blocks, block{domain.AlineacionIzquierda, font, []string{
		"Espacio: " + data.Espacio,
		"Patente: " + data.Patente,
		"",
		"Hora de Entrada: " + data.HoraEntrada,
		"Hora de Salida:  " + data.HoraSalida,
		"",
		"Tiempo Total: " + data.TiempoTotal,
		"",
		"Tarifa por Hora: $" + billing.FormatCLP(data.TarifaHora),
		"Costo Total:     $" + billing.FormatCLP(data.CostoTotal),
		"",
		"Fecha: " + data.Fecha,
	}, sep})

	pie := piePorDefecto
	if formato.PiePagina != "" {
		pie = splitConfigured(formato.PiePagina)
	}
	blocks = append(blocks, block{domain.AlineacionCentro, font, pie, sep})
	return blocks
}

// splitConfigured separa los textos configurados en el panel, que guardan los
// saltos de línea como "&#10;".
func splitConfigured(texto string) []string {
	return strings.Split(texto, saltoConfigurado)
}

func separator(cfg *domain.PrinterConfig) string {
	ancho := anchoPapelDefecto
	if cfg != nil && cfg.AnchoPapel > 0 {
		ancho = cfg.AnchoPapel
	}
	return strings.Repeat("═", ancho/8)
}

package ticket

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"kiosko_estacionamiento/internal/domain"
)

func datosTicket() domain.TicketData {
	return domain.TicketData{
		Espacio:     "A1",
		Patente:     "BBCL12",
		HoraEntrada: "10:00:00",
		HoraSalida:  "12:30:00",
		TiempoTotal: "2h 30m",
		TarifaHora:  1000,
		CostoTotal:  3000,
		Fecha:       "10-03-2026 12:30",
	}
}

func termica() *domain.PrinterConfig {
	return &domain.PrinterConfig{
		Nombre:     "Caja",
		Tipo:       "termica",
		AnchoPapel: 80,
		Puerto:     "COM3",
		Comandos:   domain.PrinterCommands{Negrita: true},
		FormatoTicket: domain.TicketFormat{
			Encabezado:         "MI EMPRESA&#10;RUT 1-9",
			MostrarSeparadores: true,
		},
	}
}

func TestRenderESCPOS(t *testing.T) {
	out := string(RenderESCPOS(datosTicket(), termica()))

	assert.True(t, strings.HasPrefix(out, Inicializar+AlineacionCentro+FuenteNormal+NegritaOn))
	assert.Contains(t, out, "MI EMPRESA"+NuevaLinea+"RUT 1-9"+NuevaLinea)
	assert.Contains(t, out, Titulo+NuevaLinea)
	assert.Contains(t, out, "Espacio: A1\n")
	assert.Contains(t, out, "Patente: BBCL12\n")
	assert.Contains(t, out, "Hora de Salida:  12:30:00\n")
	assert.Contains(t, out, "Tarifa por Hora: $1.000\n")
	assert.Contains(t, out, "Costo Total:     $3.000\n")
	assert.Contains(t, out, "¡GRACIAS POR SU VISITA!\nConserve este ticket\n")
	assert.Contains(t, out, strings.Repeat("═", 10)+NuevaLinea)
	assert.NotContains(t, out, LineaLogo)
	assert.True(t, strings.HasSuffix(out, strings.Repeat(NuevaLinea, 3)+CorteCompleto))

	// El título va después del encabezado y antes de los campos.
	assert.Less(t, strings.Index(out, "RUT 1-9"), strings.Index(out, Titulo))
	assert.Less(t, strings.Index(out, Titulo), strings.Index(out, "Espacio:"))
}

func TestRenderESCPOSSinConfiguracion(t *testing.T) {
	out := string(RenderESCPOS(datosTicket(), nil))

	assert.True(t, strings.HasPrefix(out, Inicializar+AlineacionCentro+FuenteNormal))
	assert.NotContains(t, out, NegritaOn)
	assert.NotContains(t, out, "═")
	assert.True(t, strings.HasSuffix(out, CorteCompleto))
}

func TestRenderESCPOSCorteYLogo(t *testing.T) {
	cfg := termica()
	cfg.FormatoTicket.Encabezado = ""
	cfg.FormatoTicket.MostrarLogo = true
	cfg.FormatoTicket.AlineacionTitulo = domain.AlineacionDerecha
	cfg.FormatoTicket.TamanoFuente = domain.FuenteGrande
	cfg.ConfiguracionCorte = &domain.CutConfig{TipoCorte: domain.CorteParcial, MargenCorte: 1, CortarAutomaticamente: true}

	out := string(RenderESCPOS(datosTicket(), cfg))

	assert.Contains(t, out, AlineacionDerecha+FuenteGrande+LineaLogo)
	assert.True(t, strings.HasSuffix(out, "\n"+NuevaLinea+CorteParcial))

	cfg.ConfiguracionCorte.CortarAutomaticamente = false
	out = string(RenderESCPOS(datosTicket(), cfg))
	assert.NotContains(t, out, CorteParcial)
}

func TestRenderESCPOSPrimex(t *testing.T) {
	cfg := termica()
	cfg.Modelo = "Nippon Primex NP-F3210"
	cfg.Resolucion = 300

	out := string(RenderESCPOS(datosTicket(), cfg))
	assert.True(t, strings.HasPrefix(out, Inicializar+primexResolucion300+primexVelocidad))
}

func TestRenderCutTest(t *testing.T) {
	assert.Equal(t, []byte(CorteCompleto), RenderCutTest(nil))

	cfg := &domain.PrinterConfig{ConfiguracionCorte: &domain.CutConfig{TipoCorte: domain.CorteDesconectado, CortarAutomaticamente: true}}
	assert.Equal(t, []byte(AvanceCompleto), RenderCutTest(cfg))

	cfg.ConfiguracionCorte.CortarAutomaticamente = false
	assert.Equal(t, []byte(NuevaLinea), RenderCutTest(cfg))
}

func TestRenderHTML(t *testing.T) {
	cfg := termica()
	cfg.FormatoTicket.AlineacionTitulo = domain.AlineacionIzquierda
	cfg.FormatoTicket.TamanoFuente = domain.FuentePequena
	cfg.FormatoTicket.PiePagina = "Vuelva <pronto>"

	out := RenderHTML(datosTicket(), cfg)

	assert.Contains(t, out, `<div style="text-align: left;"><span style="font-size: 10px;">MI EMPRESA`+"\n")
	assert.Contains(t, out, `<div style="text-align: center;"><span style="font-size: 10px;">Vuelva &lt;pronto&gt;`)
	assert.Contains(t, out, "Costo Total:     $3.000\n")
	assert.Equal(t, 4, strings.Count(out, "</span></div>"))
	assert.NotContains(t, out, "\x1B")
}

func TestRenderPrintPage(t *testing.T) {
	job := domain.PrintJob{ID: "trabajo-1", Espacio: "A1"}

	page, err := RenderPrintPage(job, datosTicket(), termica())
	require.NoError(t, err)

	assert.Contains(t, page, `var id = "trabajo-1";`)
	assert.Contains(t, page, "ticket_impreso")
	assert.Contains(t, page, "impresion_cancelada")
	assert.Contains(t, page, "80mm")
	assert.Contains(t, page, "corte-completo")
	assert.Contains(t, page, `<span style="font-size: 12px;">`)
}

func TestRenderHistoryReceipt(t *testing.T) {
	rec := domain.HistoryRecord{
		ID:            "h1",
		Espacio:       "B2",
		Patente:       "XYZ123",
		HoraEntrada:   "09:00:00",
		HoraSalida:    "10:30:00",
		TiempoOcupado: 5400,
		Costo:         2000,
		Timestamp:     null.IntFrom(1773136800000),
		Estado:        "COMPLETADO",
	}
	ahora := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	doc, err := RenderHistoryReceipt("reimpresion-1", rec, 1000, nil, ahora, time.UTC)
	require.NoError(t, err)

	assert.Contains(t, doc, "size: A4")
	assert.Contains(t, doc, "SISTEMA DE ESTACIONAMIENTO")
	assert.Contains(t, doc, "<td>1h 30m</td>")
	assert.Contains(t, doc, "<td>$2.000</td>")
	assert.Contains(t, doc, "Impreso el 10-03-2026 15:30")
	assert.Contains(t, doc, "Estado: Finalizado")
	assert.Contains(t, doc, `var id = "reimpresion-1";`)

	cfg := &domain.PrinterConfig{ImpresoraTradicional: &domain.TraditionalPrinter{TamanoPapel: "Letter"}}
	doc, err = RenderHistoryReceipt("reimpresion-1", rec, 1000, cfg, ahora, time.UTC)
	require.NoError(t, err)
	assert.Contains(t, doc, "size: Letter")
	assert.NotContains(t, doc, "SISTEMA DE ESTACIONAMIENTO")
	assert.NotContains(t, doc, "Impreso el")
}

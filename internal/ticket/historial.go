package ticket

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"kiosko_estacionamiento/internal/billing"
	"kiosko_estacionamiento/internal/domain"
)

var historyDoc = template.Must(template.New("historial").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Ticket {{.Espacio}} {{.Patente}}</title>
<style>
  @page { size: {{.Papel}}; margin: 20mm; }
  body { font-family: Arial, Helvetica, sans-serif; font-size: 14px; }
  .encabezado, .pie { text-align: center; }
  .encabezado h1 { margin-bottom: 4px; }
  table { border-collapse: collapse; margin: 16px auto; min-width: 60%; }
  td { padding: 6px 12px; border-bottom: 1px solid #ddd; }
  td.etiqueta { font-weight: bold; }
</style>
</head>
<body>
{{if .MostrarEncabezado}}<div class="encabezado">
  <h1>SISTEMA DE ESTACIONAMIENTO</h1>
  <h2>Ticket de Historial</h2>
</div>
{{end}}<table>
  <tr><td class="etiqueta">Espacio</td><td>{{.Espacio}}</td></tr>
  <tr><td class="etiqueta">Patente</td><td>{{.Patente}}</td></tr>
  <tr><td class="etiqueta">Hora de Entrada</td><td>{{.HoraEntrada}}</td></tr>
  <tr><td class="etiqueta">Hora de Salida</td><td>{{.HoraSalida}}</td></tr>
  <tr><td class="etiqueta">Tiempo Total</td><td>{{.TiempoTotal}}</td></tr>
  <tr><td class="etiqueta">Tarifa por Hora</td><td>${{.TarifaHora}}</td></tr>
  <tr><td class="etiqueta">Costo Total</td><td>${{.CostoTotal}}</td></tr>
</table>
{{if .MostrarPie}}<div class="pie">
  <p>Impreso el {{.Impreso}}</p>
  <p>Estado: {{.Estado}}</p>
</div>
{{end}}<script>
(function () {
  var id = {{.ID}};
  window.addEventListener('load', function () { window.print(); });
  window.addEventListener('afterprint', function () {
    if (window.opener) { window.opener.postMessage({tipo: 'ticket_impreso', id: id}, '*'); }
    window.close();
  });
})();
</script>
</body>
</html>
`))

// RenderHistoryReceipt genera el documento de reimpresión de un registro del
// historial para una impresora de oficina. Al imprimirse avisa a la ventana
// que lo abrió con el id del trabajo.
func RenderHistoryReceipt(jobID string, rec domain.HistoryRecord, tarifaHora int64, cfg *domain.PrinterConfig, now time.Time, loc *time.Location) (string, error) {
	papel := "A4"
	encabezado, pie := true, true
	if cfg != nil && cfg.ImpresoraTradicional != nil {
		if cfg.ImpresoraTradicional.TamanoPapel != "" {
			papel = cfg.ImpresoraTradicional.TamanoPapel
		}
		encabezado = cfg.ImpresoraTradicional.MostrarEncabezado
		pie = cfg.ImpresoraTradicional.MostrarPiePagina
	}
	estado := "Pendiente"
	if domain.NormalizeHistoryState(string(rec.Estado)) == domain.HistorialFinalizado {
		estado = "Finalizado"
	}

	var buf bytes.Buffer
	err := historyDoc.Execute(&buf, map[string]any{
		"ID":                jobID,
		"Papel":             papel,
		"MostrarEncabezado": encabezado,
		"MostrarPie":        pie,
		"Espacio":           rec.Espacio,
		"Patente":           rec.Patente,
		"HoraEntrada":       rec.HoraEntrada,
		"HoraSalida":        rec.HoraSalida,
		"TiempoTotal":       billing.FormatDuration(rec.TiempoOcupado),
		"TarifaHora":        billing.FormatCLP(tarifaHora),
		"CostoTotal":        billing.FormatCLP(rec.Costo),
		"Impreso":           billing.FormatDateTime(now.In(loc)),
		"Estado":            estado,
	})
	if err != nil {
		return "", fmt.Errorf("error al generar el ticket de historial: %w", err)
	}
	return buf.String(), nil
}

package ticket

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"

	"kiosko_estacionamiento/internal/domain"
)

func alignCSS(a domain.Alignment) string {
	switch a {
	case domain.AlineacionIzquierda:
		return "left"
	case domain.AlineacionDerecha:
		return "right"
	}
	return "center"
}

func fontCSS(f domain.FontSize) string {
	switch f {
	case domain.FuenteGrande:
		return "16px"
	case domain.FuentePequena:
		return "10px"
	}
	return "12px"
}

// RenderHTML arma el cuerpo del ticket para la impresión por navegador. Sigue
// la misma plantilla que RenderESCPOS, con estilos en lugar de comandos.
func RenderHTML(data domain.TicketData, cfg *domain.PrinterConfig) string {
	var b strings.Builder
	for _, blk := range layout(data, cfg) {
		fmt.Fprintf(&b, `<div style="text-align: %s;"><span style="font-size: %s;">`,
			alignCSS(blk.align), fontCSS(blk.font))
		for _, line := range blk.lines {
			b.WriteString(html.EscapeString(line))
			b.WriteString("\n")
		}
		b.WriteString("</span></div>")
		if blk.separator {
			b.WriteString(separator(cfg))
			b.WriteString("\n")
		}
	}
	return b.String()
}

var printPage = template.Must(template.New("ticket").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Ticket {{.Espacio}}</title>
<style>
  @page { size: 80mm auto; margin: 0; }
  body { font-family: 'Courier New', Courier, monospace; width: 80mm; margin: 0 auto; padding: 4mm; }
  .ticket { white-space: pre-wrap; }
  .acciones { margin-top: 8mm; text-align: center; }
  @media print { .acciones { display: none; } }
</style>
</head>
<body>
<div class="ticket {{.CorteCSS}}">{{.Cuerpo}}</div>
<div class="acciones">
  <button id="imprimir" type="button">Imprimir</button>
  <button id="cancelar" type="button">Cancelar</button>
</div>
<script>
(function () {
  var id = {{.ID}};
  var avisado = false;
  function avisar(tipo) {
    if (avisado) { return; }
    avisado = true;
    if (window.opener) { window.opener.postMessage({tipo: tipo, id: id}, '*'); }
  }
  document.getElementById('imprimir').addEventListener('click', function () { window.print(); });
  document.getElementById('cancelar').addEventListener('click', function () {
    avisar('impresion_cancelada');
    window.close();
  });
  window.addEventListener('afterprint', function () {
    avisar('ticket_impreso');
    window.close();
  });
})();
</script>
</body>
</html>
`))

// RenderPrintPage envuelve el ticket en una página imprimible de 80mm. La
// página avisa a la ventana que la abrió si el ticket se imprimió o se canceló,
// identificando el trabajo por su id.
func RenderPrintPage(job domain.PrintJob, data domain.TicketData, cfg *domain.PrinterConfig) (string, error) {
	corte := "corte-" + string(cfg.Cut().TipoCorte)
	var buf bytes.Buffer
	err := printPage.Execute(&buf, struct {
		ID       string
		Espacio  string
		CorteCSS string
		Cuerpo   template.HTML
	}{
		ID:       job.ID,
		Espacio:  data.Espacio,
		CorteCSS: corte,
		Cuerpo:   template.HTML(RenderHTML(data, cfg)),
	})
	if err != nil {
		return "", fmt.Errorf("error al generar la página del ticket: %w", err)
	}
	return buf.String(), nil
}

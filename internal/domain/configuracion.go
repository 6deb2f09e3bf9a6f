package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const TarifaHoraPorDefecto int64 = 1000

type Alignment string

const (
	AlineacionIzquierda Alignment = "izquierda"
	AlineacionCentro    Alignment = "centro"
	AlineacionDerecha   Alignment = "derecha"
)

type FontSize string

const (
	FuentePequena FontSize = "pequena"
	FuenteNormal  FontSize = "normal"
	FuenteGrande  FontSize = "grande"
)

type CutType string

const (
	CorteCompleto     CutType = "completo"
	CorteParcial      CutType = "parcial"
	CorteDesconectado CutType = "desconectado"
)

type ConnectionState string

const (
	ConexionConectada    ConnectionState = "conectada"
	ConexionError        ConnectionState = "error"
	ConexionDesconectada ConnectionState = "desconectada"
	ConexionVerificando  ConnectionState = "verificando"
)

// Configuracion es el registro global (configuracion). La impresora se guarda
// siempre bajo "impresora"; DecodeConfiguracion absorbe el alias "impresoras".
type Configuracion struct {
	TarifaHora int64          `json:"tarifaHora"`
	Impresora  *PrinterConfig `json:"impresora,omitempty"`
}

// Tarifa devuelve la tarifa por hora vigente, 1000 si no está configurada.
func (c *Configuracion) Tarifa() int64 {
	if c == nil || c.TarifaHora <= 0 {
		return TarifaHoraPorDefecto
	}
	return c.TarifaHora
}

type PrinterConfig struct {
	Nombre               string              `json:"nombre"`
	Tipo                 string              `json:"tipo"`
	AnchoPapel           int                 `json:"anchoPapel"`
	Puerto               string              `json:"puerto,omitempty"`
	Resolucion           int                 `json:"resolucion,omitempty"`
	Modelo               string              `json:"modelo,omitempty"`
	Comandos             PrinterCommands     `json:"comandos"`
	FormatoTicket        TicketFormat        `json:"formatoTicket"`
	ConfiguracionCorte   *CutConfig          `json:"configuracionCorte,omitempty"`
	ImpresoraTradicional *TraditionalPrinter `json:"impresoraTradicional,omitempty"`
	Conexion             *PrinterConnection  `json:"conexion,omitempty"`
}

type PrinterCommands struct {
	Inicializacion string    `json:"inicializacion,omitempty"`
	Alineacion     Alignment `json:"alineacion,omitempty"`
	Fuente         FontSize  `json:"fuente,omitempty"`
	Negrita        bool      `json:"negrita"`
}

type TicketFormat struct {
	Encabezado         string    `json:"encabezado,omitempty"`
	PiePagina          string    `json:"piePagina,omitempty"`
	AlineacionTitulo   Alignment `json:"alineacionTitulo,omitempty"`
	TamanoFuente       FontSize  `json:"tamañoFuente,omitempty"`
	MostrarSeparadores bool      `json:"mostrarSeparadores"`
	MostrarLogo        bool      `json:"mostrarLogo"`
}

type CutConfig struct {
	TipoCorte             CutType `json:"tipoCorte"`
	MargenCorte           int     `json:"margenCorte"`
	CortarAutomaticamente bool    `json:"cortarAutomaticamente"`
}

type TraditionalPrinter struct {
	TamanoPapel       string `json:"tamañoPapel,omitempty"`
	MostrarEncabezado bool   `json:"mostrarEncabezado"`
	MostrarPiePagina  bool   `json:"mostrarPiePagina"`
}

type PrinterConnection struct {
	Estado             ConnectionState `json:"estado"`
	UltimaVerificacion string          `json:"ultimaVerificacion,omitempty"`
	MensajeError       string          `json:"mensajeError,omitempty"`
}

// DefaultCut es la configuración de corte cuando la impresora no define una.
func DefaultCut() CutConfig {
	return CutConfig{TipoCorte: CorteCompleto, MargenCorte: 3, CortarAutomaticamente: true}
}

// Cut devuelve la configuración de corte efectiva.
func (p *PrinterConfig) Cut() CutConfig {
	if p == nil || p.ConfiguracionCorte == nil {
		return DefaultCut()
	}
	return *p.ConfiguracionCorte
}

// Direct indica si la impresora recibe comandos ESC/POS por un canal propio.
func (p *PrinterConfig) Direct() bool {
	return p != nil && p.Tipo == "termica" && p.Puerto != ""
}

func (p *PrinterConfig) TitleAlignment() Alignment {
	if p == nil || p.FormatoTicket.AlineacionTitulo == "" {
		return AlineacionCentro
	}
	return p.FormatoTicket.AlineacionTitulo
}

func (p *PrinterConfig) TicketFontSize() FontSize {
	if p == nil || p.FormatoTicket.TamanoFuente == "" {
		return FuenteNormal
	}
	return p.FormatoTicket.TamanoFuente
}

// storedConfiguracion es la forma en que el registro puede venir del almacén.
type storedConfiguracion struct {
	TarifaHora int64          `json:"tarifaHora"`
	Impresora  *PrinterConfig `json:"impresora"`
	Impresoras *PrinterConfig `json:"impresoras"`
}

// DecodeConfiguracion lee el registro de configuración y lo deja en la forma
// canónica. Es el único lugar que conoce el alias "impresoras".
func DecodeConfiguracion(raw []byte) (*Configuracion, error) {
	cfg := &Configuracion{}
	if len(raw) == 0 {
		return cfg, nil
	}
	var stored storedConfiguracion
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("configuración inválida: %w", err)
	}
	cfg.TarifaHora = stored.TarifaHora
	cfg.Impresora = stored.Impresora
	if cfg.Impresora == nil {
		cfg.Impresora = stored.Impresoras
	}
	return cfg, nil
}

// ConnectionUpdate es el cambio de impresora/conexion/* tras una verificación.
func ConnectionUpdate(estado ConnectionState, mensaje string, now time.Time) PrinterConnection {
	return PrinterConnection{
		Estado:             estado,
		UltimaVerificacion: now.UTC().Format(time.RFC3339Nano),
		MensajeError:       mensaje,
	}
}

type TarifaDTO struct {
	TarifaHora int64 `json:"tarifaHora" binding:"required,min=1"`
}

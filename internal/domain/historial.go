package domain

import (
	"strconv"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

type HistoryState string

const (
	HistorialPendiente  HistoryState = "PENDIENTE"
	HistorialFinalizado HistoryState = "FINALIZADO"
	// Valor heredado de registros antiguos, equivalente a FINALIZADO.
	historialCompletado HistoryState = "COMPLETADO"
)

// HistoryRecord es una sesión cerrada en historial/{id}. Sólo el estado
// cambia después de insertado (PENDIENTE -> FINALIZADO).
type HistoryRecord struct {
	ID              string       `json:"id"`
	Espacio         string       `json:"espacio"`
	Patente         string       `json:"patente"`
	HoraEntrada     string       `json:"horaEntrada"`
	HoraSalida      string       `json:"horaSalida"`
	TiempoOcupado   int64        `json:"tiempoOcupado"`
	Costo           int64        `json:"costo"`
	Fecha           string       `json:"fecha"`
	Timestamp       null.Int     `json:"timestamp"`
	TimestampSalida null.String  `json:"timestampSalida,omitempty"`
	Estado          HistoryState `json:"estado"`
}

// NormalizeHistoryState aplica la normalización de estados al leer el historial.
func NormalizeHistoryState(raw string) HistoryState {
	estado := HistoryState(strings.ToUpper(strings.TrimSpace(raw)))
	switch estado {
	case "":
		return HistorialPendiente
	case historialCompletado:
		return HistorialFinalizado
	}
	return estado
}

// SortKey devuelve los milisegundos usados para ordenar el historial:
// timestamp, luego fecha, luego timestampSalida, luego un id numérico; si no
// hay nada válido, 0 (queda al final).
func (r HistoryRecord) SortKey() int64 {
	if r.Timestamp.Valid && r.Timestamp.Int64 > 0 {
		return r.Timestamp.Int64
	}
	if t, ok := ParseTimestamp(r.Fecha); ok {
		return t.UnixMilli()
	}
	if r.TimestampSalida.Valid {
		if t, ok := ParseTimestamp(r.TimestampSalida.String); ok {
			return t.UnixMilli()
		}
	}
	if len(r.ID) > 10 {
		if n, err := strconv.ParseInt(r.ID, 10, 64); err == nil && n > 1000000000000 {
			return n
		}
	}
	return 0
}

// Moment es la fecha de la sesión usada para mostrar y exportar.
func (r HistoryRecord) Moment() (time.Time, bool) {
	if t, ok := ParseTimestamp(r.Fecha); ok {
		return t, true
	}
	if r.TimestampSalida.Valid {
		if t, ok := ParseTimestamp(r.TimestampSalida.String); ok {
			return t, true
		}
	}
	if r.Timestamp.Valid && r.Timestamp.Int64 > 0 {
		return time.UnixMilli(r.Timestamp.Int64), true
	}
	return time.Time{}, false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp acepta fechas ISO y milisegundos epoch. Las fechas sin zona
// se interpretan en UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	return ParseTimestampIn(raw, time.UTC)
}

// ParseTimestampIn es ParseTimestamp con las fechas sin zona interpretadas en loc.
func ParseTimestampIn(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(n), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type HistoryQuery struct {
	Patente string `form:"patente"`
	Pagina  int    `form:"pagina"`
}

type HistoryPage struct {
	Registros    []HistoryRecord `json:"registros"`
	Pagina       int             `json:"pagina"`
	TotalPaginas int             `json:"totalPaginas"`
	Total        int             `json:"total"`
}

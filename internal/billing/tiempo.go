// Package billing contiene la aritmética del kiosko: tiempo ocupado, costo,
// formatos es-CL y métricas del historial. Todo recibe la hora actual como
// parámetro; no hay estado ni E/S.
package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"kiosko_estacionamiento/internal/domain"
)

// TiempoMinimo es el cobro mínimo y el valor usado cuando la hora de entrada no se entiende.
const TiempoMinimo int64 = 3600

// ParseEntry interpreta la hora de entrada de un espacio. Una hora sola
// (contiene ':' y no '-') se toma como de hoy en loc.
func ParseEntry(horaEntrada string, now time.Time, loc *time.Location) (time.Time, bool) {
	raw := strings.TrimSpace(horaEntrada)
	if raw == "" {
		return time.Time{}, false
	}
	if strings.Contains(raw, ":") && !strings.Contains(raw, "-") {
		return parseClock(raw, now.In(loc))
	}
	return domain.ParseTimestampIn(raw, loc)
}

func parseClock(raw string, today time.Time) (time.Time, bool) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, false
	}
	var hms [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return time.Time{}, false
		}
		hms[i] = n
	}
	if hms[0] > 23 || hms[1] > 59 || hms[2] > 59 {
		return time.Time{}, false
	}
	y, m, d := today.Date()
	return time.Date(y, m, d, hms[0], hms[1], hms[2], 0, today.Location()), true
}

// OccupiedSeconds calcula el tiempo facturable: al menos una hora, y
// exactamente una hora si la entrada no se puede interpretar.
func OccupiedSeconds(horaEntrada string, now time.Time, loc *time.Location) int64 {
	entry, ok := ParseEntry(horaEntrada, now, loc)
	if !ok {
		return TiempoMinimo
	}
	secs := int64(now.Sub(entry) / time.Second)
	if secs < TiempoMinimo {
		return TiempoMinimo
	}
	return secs
}

// FormatDuration muestra segundos como "1h 1m 1s", omitiendo las unidades en cero.
func FormatDuration(segundos int64) string {
	if segundos <= 0 {
		return "0s"
	}
	h := segundos / 3600
	m := (segundos % 3600) / 60
	s := segundos % 60
	var partes []string
	if h > 0 {
		partes = append(partes, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		partes = append(partes, fmt.Sprintf("%dm", m))
	}
	if s > 0 {
		partes = append(partes, fmt.Sprintf("%ds", s))
	}
	return strings.Join(partes, " ")
}

// FormatClock es la hora es-CL HH:MM:SS.
func FormatClock(t time.Time) string {
	return t.Format("15:04:05")
}

// FormatDate es la fecha es-CL dd-mm-aaaa.
func FormatDate(t time.Time) string {
	return t.Format("02-01-2006")
}

// FormatDateTime es dd-mm-aaaa HH:MM.
func FormatDateTime(t time.Time) string {
	return t.Format("02-01-2006 15:04")
}

package billing

import (
	"sort"
	"strconv"
	"time"

	"kiosko_estacionamiento/internal/domain"
)

const (
	diaMs           = int64(24 * time.Hour / time.Millisecond)
	ventanaIngresos = 7
	ventanaDiaria   = 30
	maxPatentes     = 5
)

// CalculateMetrics resume el historial. Con historial vacío todo queda en cero
// y las listas vacías (nunca nil).
func CalculateMetrics(historial []domain.HistoryRecord, now time.Time, loc *time.Location) domain.Metrics {
	m := domain.Metrics{
		PatentesMasFrecuentes: []domain.PlateCount{},
		IngresosPorDia:        []domain.DailyIncome{},
		OcupacionPorHora:      []domain.HourlyOccupancy{},
		UsoPorEspacio:         []domain.SpaceUsage{},
	}
	if len(historial) == 0 {
		return m
	}

	var tiempoTotal int64
	for _, r := range historial {
		m.IngresosTotales += r.Costo
		tiempoTotal += r.TiempoOcupado
	}
	m.TotalOcupaciones = len(historial)
	m.TiempoPromedio = float64(tiempoTotal) / float64(m.TotalOcupaciones)
	m.IngresosPromedio = float64(m.IngresosTotales) / float64(m.TotalOcupaciones)

	m.UsoPorEspacio = usoPorEspacio(historial)
	maximo := 0
	for _, u := range m.UsoPorEspacio {
		// el primero visto gana los empates
		if u.Cantidad > maximo {
			maximo = u.Cantidad
			m.EspacioMasUtilizado = u.Espacio
		}
	}

	m.PatentesMasFrecuentes = patentesMasFrecuentes(historial)

	nowMs := now.UnixMilli()
	var recientes int
	for _, r := range historial {
		if r.Timestamp.Valid && r.Timestamp.Int64 > 0 && r.Timestamp.Int64 >= nowMs-ventanaDiaria*diaMs {
			recientes++
		}
	}
	m.OcupacionesPorDia = float64(recientes) / ventanaDiaria

	m.IngresosPorDia = ingresosPorDia(historial, nowMs, loc)
	m.OcupacionPorHora = ocupacionPorHora(historial, now, loc)
	return m
}

// usoPorEspacio cuenta registros por espacio en orden de primera aparición.
func usoPorEspacio(historial []domain.HistoryRecord) []domain.SpaceUsage {
	idx := map[string]int{}
	uso := []domain.SpaceUsage{}
	for _, r := range historial {
		if r.Espacio == "" {
			continue
		}
		i, ok := idx[r.Espacio]
		if !ok {
			i = len(uso)
			idx[r.Espacio] = i
			uso = append(uso, domain.SpaceUsage{Espacio: r.Espacio})
		}
		uso[i].Cantidad++
	}
	return uso
}

func patentesMasFrecuentes(historial []domain.HistoryRecord) []domain.PlateCount {
	idx := map[string]int{}
	conteo := []domain.PlateCount{}
	for _, r := range historial {
		if r.Patente == "" {
			continue
		}
		i, ok := idx[r.Patente]
		if !ok {
			i = len(conteo)
			idx[r.Patente] = i
			conteo = append(conteo, domain.PlateCount{Patente: r.Patente})
		}
		conteo[i].Cantidad++
	}
	sort.SliceStable(conteo, func(a, b int) bool { return conteo[a].Cantidad > conteo[b].Cantidad })
	if len(conteo) > maxPatentes {
		conteo = conteo[:maxPatentes]
	}
	return conteo
}

func ingresosPorDia(historial []domain.HistoryRecord, nowMs int64, loc *time.Location) []domain.DailyIncome {
	desde := nowMs - ventanaIngresos*diaMs
	idx := map[string]int{}
	dias := []domain.DailyIncome{}
	for _, r := range historial {
		if !r.Timestamp.Valid || r.Timestamp.Int64 <= 0 || r.Timestamp.Int64 < desde {
			continue
		}
		fecha := FormatDate(time.UnixMilli(r.Timestamp.Int64).In(loc))
		i, ok := idx[fecha]
		if !ok {
			i = len(dias)
			idx[fecha] = i
			dias = append(dias, domain.DailyIncome{Fecha: fecha})
		}
		dias[i].Ingreso += r.Costo
	}
	return dias
}

// ocupacionPorHora agrupa por la hora de entrada, ordenado de 0 a 23. Las
// horas que no se pueden interpretar no se cuentan.
func ocupacionPorHora(historial []domain.HistoryRecord, now time.Time, loc *time.Location) []domain.HourlyOccupancy {
	var porHora [24]int
	for _, r := range historial {
		entrada, ok := ParseEntry(r.HoraEntrada, now, loc)
		if !ok {
			continue
		}
		porHora[entrada.In(loc).Hour()]++
	}
	horas := []domain.HourlyOccupancy{}
	for h, n := range porHora {
		if n > 0 {
			horas = append(horas, domain.HourlyOccupancy{Hora: strconv.Itoa(h), Cantidad: n})
		}
	}
	return horas
}

package billing

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// CostPolicy decide cómo se redondea el tiempo al cobrar.
type CostPolicy string

const (
	// PolicyHour cobra horas completas, redondeando hacia arriba.
	PolicyHour CostPolicy = "hora"
	// PolicyMinute cobra minutos completos a tarifaHora/60, con mínimo de un minuto.
	PolicyMinute CostPolicy = "minuto"
)

func ParseCostPolicy(raw string) (CostPolicy, error) {
	switch CostPolicy(raw) {
	case "", PolicyHour:
		return PolicyHour, nil
	case PolicyMinute:
		return PolicyMinute, nil
	}
	return "", fmt.Errorf("política de cobro desconocida: %q", raw)
}

// Cost calcula el costo de una sesión de segundos a la tarifa por hora dada.
func Cost(segundos, tarifaHora int64, policy CostPolicy) int64 {
	if segundos < 0 {
		segundos = 0
	}
	if policy == PolicyMinute {
		tarifaMinuto := float64(tarifaHora) / 60
		costo := math.Ceil(float64(segundos)/60) * tarifaMinuto
		return int64(math.Round(math.Max(tarifaMinuto, costo)))
	}
	horas := (segundos + 3599) / 3600
	return horas * tarifaHora
}

// FormatCLP agrupa miles con punto, como toLocaleString('es-CL'): 12345 -> "12.345".
func FormatCLP(n int64) string {
	return humanize.FormatInteger("#.###,", int(n))
}

package domain

type PlateCount struct {
	Patente  string `json:"patente"`
	Cantidad int    `json:"cantidad"`
}

type DailyIncome struct {
	Fecha   string `json:"fecha"`
	Ingreso int64  `json:"ingreso"`
}

type HourlyOccupancy struct {
	Hora     string `json:"hora"`
	Cantidad int    `json:"cantidad"`
}

type SpaceUsage struct {
	Espacio  string `json:"espacio"`
	Cantidad int    `json:"cantidad"`
}

// Metrics es el resumen calculado sobre todo el historial.
type Metrics struct {
	IngresosTotales       int64             `json:"ingresosTotales"`
	TotalOcupaciones      int               `json:"totalOcupaciones"`
	TiempoPromedio        float64           `json:"tiempoPromedio"`
	IngresosPromedio      float64           `json:"ingresosPromedio"`
	OcupacionesPorDia     float64           `json:"ocupacionesPorDia"`
	EspacioMasUtilizado   string            `json:"espacioMasUtilizado"`
	PatentesMasFrecuentes []PlateCount      `json:"patentesMasFrecuentes"`
	IngresosPorDia        []DailyIncome     `json:"ingresosPorDia"`
	OcupacionPorHora      []HourlyOccupancy `json:"ocupacionPorHora"`
	UsoPorEspacio         []SpaceUsage      `json:"usoPorEspacio"`
}

type DashboardSummary struct {
	Metricas   Metrics     `json:"metricas"`
	Espacios   SpaceCounts `json:"espacios"`
	TarifaHora int64       `json:"tarifaHora"`
}

package domain

// TicketData son los datos de sesión que se imprimen en el ticket.
type TicketData struct {
	Espacio     string `json:"espacio"`
	Patente     string `json:"patente"`
	HoraEntrada string `json:"horaEntrada"`
	HoraSalida  string `json:"horaSalida"`
	TiempoTotal string `json:"tiempoTotal"`
	TarifaHora  int64  `json:"tarifaHora"`
	CostoTotal  int64  `json:"costoTotal"`
	Fecha       string `json:"fecha"`
}

// PrintResult es el resultado de esperar la confirmación de impresión.
type PrintResult int

const (
	PrintTimedOut PrintResult = iota
	PrintConfirmed
	PrintCancelled
)

func (r PrintResult) String() string {
	switch r {
	case PrintConfirmed:
		return "confirmado"
	case PrintCancelled:
		return "cancelado"
	}
	return "tiempo_agotado"
}

// PrintJob es un ticket enviado al panel a la espera de confirmación.
type PrintJob struct {
	ID      string `json:"id"`
	Espacio string `json:"espacio"`
	HTML    string `json:"html"`
	Costo   int64  `json:"costo"`
}

type PrintAckDTO struct {
	Tipo string `json:"tipo" binding:"required,oneof=ticket_impreso impresion_cancelada"`
}

package domain

type Severity string

const (
	NotificacionInfo  Severity = "info"
	NotificacionExito Severity = "success"
	NotificacionAviso Severity = "warning"
	NotificacionError Severity = "error"
)

// Notification es un aviso visible para el operador (toast).
type Notification struct {
	Tipo    Severity `json:"tipo"`
	Mensaje string   `json:"mensaje"`
}

// Key identifica avisos duplicados.
func (n Notification) Key() string {
	return string(n.Tipo) + "-" + n.Mensaje
}

// Mensajes que viajan por el WebSocket del panel.
const (
	MensajeEstacionamientos = "estacionamientos"
	MensajeNotificacion     = "notificacion"
	MensajeImprimirTicket   = "imprimir_ticket"
	MensajeTicketImpreso    = "ticket_impreso"
	MensajeImpresionCancel  = "impresion_cancelada"
)

// DashboardMessage es el sobre de todo mensaje enviado al panel.
type DashboardMessage struct {
	Tipo  string      `json:"tipo"`
	Datos interface{} `json:"datos"`
}

// DashboardInbound es un mensaje recibido del panel (confirmación de impresión).
type DashboardInbound struct {
	Tipo string `json:"tipo"`
	ID   string `json:"id"`
}

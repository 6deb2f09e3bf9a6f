package domain

import (
	"encoding/json"
	"time"
)

// Tipos de mensaje que publican los sensores de los espacios.
const (
	SensorSlotStatus = "slot_status"
	SensorHeartbeat  = "heartbeat"
	SensorOffline    = "offline"
)

// GenericIoTEvent se usa para leer primero el message_type y los campos comunes.
type GenericIoTEvent struct {
	DeviceID          string          `json:"device_id"`
	MessageType       string          `json:"message_type"`
	Timestamp         string          `json:"timestamp"`
	ReceivedMqttTopic string          `json:"received_mqtt_topic,omitempty"`
	RawPayload        json.RawMessage `json:"-"`
}

// SlotStatusEvent llega cuando el sensor de un espacio detecta un cambio.
type SlotStatusEvent struct {
	GenericIoTEvent
	Espacio     string `json:"espacio"`
	Ocupado     bool   `json:"ocupado"`
	Patente     string `json:"patente,omitempty"`
	HoraEntrada string `json:"hora_entrada,omitempty"` // HH:MM:SS o ISO; vacío = ahora
}

// HeartbeatEvent confirma que los sensores de los espacios siguen vivos.
type HeartbeatEvent struct {
	GenericIoTEvent
	Espacios []string `json:"espacios"`
}

// OfflineEvent avisa que el controlador perdió contacto con sus sensores.
type OfflineEvent struct {
	GenericIoTEvent
	Espacios []string `json:"espacios"`
	Motivo   string   `json:"motivo,omitempty"`
}

// DeviceEventLog guarda cada mensaje recibido de los sensores.
type DeviceEventLog struct {
	ID              int64           `json:"id"`
	ReceivedAt      time.Time       `json:"received_at"`
	DeviceID        string          `json:"device_id"`
	MqttTopic       string          `json:"mqtt_topic"`
	MessageType     string          `json:"message_type"`
	Payload         json.RawMessage `json:"payload"`
	ProcessedStatus string          `json:"processed_status"` // "pending", "processed", "error"
	ProcessingNotes string          `json:"processing_notes,omitempty"`
}

// PrinterCommandPayload viaja al canal de la impresora térmica.
type PrinterCommandPayload struct {
	TicketID string `json:"ticket_id"`
	Puerto   string `json:"puerto"`
	Formato  string `json:"formato"` // "escpos"
	Datos    []byte `json:"datos"`   // base64 en JSON
}

// SpaceStatusPayload se publica hacia los letreros/controladores del estacionamiento.
type SpaceStatusPayload struct {
	Espacio string     `json:"espacio"`
	Estado  SpaceState `json:"estado"`
	Momento string     `json:"momento"`
}

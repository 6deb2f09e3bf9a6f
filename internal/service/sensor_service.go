package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

// SensorService traduce los mensajes de los sensores de los espacios a
// operaciones de SpaceService. Cada mensaje queda en device_events_log.
type SensorService struct {
	spaces       *SpaceService
	eventLogRepo repository.DeviceEventsLogRepository
	clock        clock.Clock
}

func NewSensorService(spaces *SpaceService, eventLogRepo repository.DeviceEventsLogRepository, clk clock.Clock) *SensorService {
	return &SensorService{spaces: spaces, eventLogRepo: eventLogRepo, clock: clk}
}

func (s *SensorService) logEvent(ctx context.Context, entry *domain.DeviceEventLog) {
	if s.eventLogRepo == nil {
		return
	}
	entry.ReceivedAt = s.clock.Now().UTC()
	if err := s.eventLogRepo.Create(ctx, entry); err != nil {
		log.Printf("SensorService: error al registrar el evento (%s): %v", entry.ProcessedStatus, err)
	}
}

// HandleDeviceEvent procesa un mensaje recibido por SQS o MQTT. Los tipos
// desconocidos se registran y se ignoran.
func (s *SensorService) HandleDeviceEvent(ctx context.Context, body string) error {
	log.Printf("SensorService: evento recibido: %s", body)

	var generic domain.GenericIoTEvent
	if err := json.Unmarshal([]byte(body), &generic); err != nil {
		raw := json.RawMessage(body)
		if !json.Valid(raw) {
			raw, _ = json.Marshal(body)
		}
		s.logEvent(ctx, &domain.DeviceEventLog{
			Payload:         raw,
			ProcessedStatus: "error",
			ProcessingNotes: fmt.Sprintf("mensaje inválido: %v", err),
		})
		return fmt.Errorf("mensaje de sensor inválido: %w", err)
	}
	generic.RawPayload = json.RawMessage(body)

	var err error
	switch generic.MessageType {
	case domain.SensorSlotStatus:
		var event domain.SlotStatusEvent
		if err = json.Unmarshal(generic.RawPayload, &event); err != nil {
			err = fmt.Errorf("slot_status inválido: %w", err)
			break
		}
		err = s.handleSlotStatus(ctx, event)

	case domain.SensorHeartbeat:
		var event domain.HeartbeatEvent
		if err = json.Unmarshal(generic.RawPayload, &event); err != nil {
			err = fmt.Errorf("heartbeat inválido: %w", err)
			break
		}
		err = s.spaces.Heartbeat(ctx, event.Espacios)

	case domain.SensorOffline:
		var event domain.OfflineEvent
		if err = json.Unmarshal(generic.RawPayload, &event); err != nil {
			err = fmt.Errorf("offline inválido: %w", err)
			break
		}
		var errs []error
		for _, id := range event.Espacios {
			if e := s.spaces.MarkDisconnected(ctx, id, event.Motivo); e != nil {
				errs = append(errs, fmt.Errorf("espacio %s: %w", id, e))
			}
		}
		err = errors.Join(errs...)

	default:
		log.Printf("SensorService: tipo de mensaje no manejado: '%s'", generic.MessageType)
	}

	entry := &domain.DeviceEventLog{
		DeviceID:        generic.DeviceID,
		MqttTopic:       generic.ReceivedMqttTopic,
		MessageType:     generic.MessageType,
		Payload:         generic.RawPayload,
		ProcessedStatus: "processed",
	}
	if err != nil {
		entry.ProcessedStatus = "error"
		entry.ProcessingNotes = err.Error()
		log.Printf("SensorService: error al procesar '%s' (dispositivo %s, tópico %s): %v",
			generic.MessageType, generic.DeviceID, generic.ReceivedMqttTopic, err)
	}
	s.logEvent(ctx, entry)
	return err
}

func (s *SensorService) handleSlotStatus(ctx context.Context, event domain.SlotStatusEvent) error {
	if event.Espacio == "" {
		return errors.New("slot_status sin espacio")
	}
	if event.Ocupado {
		return s.spaces.Occupy(ctx, event.Espacio, event.Patente, event.HoraEntrada)
	}
	return s.spaces.Release(ctx, event.Espacio)
}

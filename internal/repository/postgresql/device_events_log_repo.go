package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

type pgDeviceEventsLogRepository struct {
	db *sql.DB
}

func NewPgDeviceEventsLogRepository(db *sql.DB) repository.DeviceEventsLogRepository {
	return &pgDeviceEventsLogRepository{db: db}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *pgDeviceEventsLogRepository) Create(ctx context.Context, event *domain.DeviceEventLog) error {
	query := `INSERT INTO device_events_log
                (received_at, device_id, mqtt_topic, message_type, payload, processed_status, processing_notes)
               VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	// payload es JSONB; un mensaje vacío queda NULL
	var payload any
	if len(event.Payload) > 0 {
		payload = string(event.Payload)
	}

	err := r.db.QueryRowContext(ctx, query,
		event.ReceivedAt,
		nullable(event.DeviceID),
		nullable(event.MqttTopic),
		nullable(event.MessageType),
		payload,
		nullable(event.ProcessedStatus),
		nullable(event.ProcessingNotes),
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("DeviceEventsLogRepository.Create: %w", err)
	}
	return nil
}

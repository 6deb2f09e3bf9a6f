package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository/memory"
)

func TestHandleDeviceEvent(t *testing.T) {
	h := newHarness(t, "", libre("A1"), ocupado("A2", "ABCD12", "12:00:00"), libre("A3"))
	events := memory.NewDeviceEventsLogRepository()
	svc := NewSensorService(h.svc, events, h.clk)
	ctx := context.Background()

	require.NoError(t, svc.HandleDeviceEvent(ctx, `{"device_id":"ctrl-1","message_type":"slot_status","espacio":"A1","ocupado":true,"patente":"bcdf34","hora_entrada":"15:10:00"}`))
	a1 := h.space(t, "A1")
	assert.Equal(t, domain.EstadoOcupado, a1.Estado)
	assert.Equal(t, "BCDF34", a1.Patente.String)
	assert.Equal(t, "15:10:00", a1.HoraEntrada.String)

	require.NoError(t, svc.HandleDeviceEvent(ctx, `{"device_id":"ctrl-1","message_type":"offline","espacios":["A2","A3"],"motivo":"sin respuesta"}`))
	assert.Equal(t, domain.EstadoSinConexion, h.space(t, "A2").Estado)
	assert.Equal(t, domain.EstadoSinConexion, h.space(t, "A3").Estado)

	require.NoError(t, svc.HandleDeviceEvent(ctx, `{"device_id":"ctrl-1","message_type":"slot_status","espacio":"A3","ocupado":false}`))
	assert.Equal(t, domain.EstadoLibre, h.space(t, "A3").Estado)

	require.NoError(t, svc.HandleDeviceEvent(ctx, `{"device_id":"ctrl-1","message_type":"firmware"}`))

	assert.Error(t, svc.HandleDeviceEvent(ctx, `{"device_id":"ctrl-1","message_type":"slot_status","espacio":"Z9","ocupado":true}`))
	assert.Error(t, svc.HandleDeviceEvent(ctx, `no es json`))

	logs := events.Events()
	require.Len(t, logs, 6)
	assert.Equal(t, "processed", logs[0].ProcessedStatus)
	assert.Equal(t, "ctrl-1", logs[0].DeviceID)
	assert.Equal(t, domain.SensorSlotStatus, logs[0].MessageType)
	assert.Equal(t, "processed", logs[3].ProcessedStatus)
	assert.Equal(t, "error", logs[4].ProcessedStatus)
	assert.Equal(t, "error", logs[5].ProcessedStatus)
	assert.NotEmpty(t, logs[5].ProcessingNotes)
}

package repository

import (
	"context"
	"errors"

	"kiosko_estacionamiento/internal/domain"
)

var ErrNotFound = errors.New("registro no encontrado")
var ErrDuplicateEntry = errors.New("el registro ya existe")

// SpaceRepository guarda los espacios (estacionamientos/{id}). Save reemplaza
// el registro completo; si dos operadores escriben a la vez gana el último.
type SpaceRepository interface {
	FindAll(ctx context.Context) ([]domain.Space, error)
	FindByID(ctx context.Context, id string) (*domain.Space, error)
	Save(ctx context.Context, space *domain.Space) error
	// EnsureSeeded crea como LIBRE los espacios que todavía no existen.
	EnsureSeeded(ctx context.Context, ids []string) error
}

// HistoryRepository es el registro de sesiones cerradas. Sólo el estado de un
// registro puede cambiar después de insertado.
type HistoryRepository interface {
	Append(ctx context.Context, rec *domain.HistoryRecord) error
	FindAll(ctx context.Context) ([]domain.HistoryRecord, error)
	FindByID(ctx context.Context, id string) (*domain.HistoryRecord, error)
	UpdateEstado(ctx context.Context, id string, estado domain.HistoryState) error
}

type ConfigurationRepository interface {
	Get(ctx context.Context) (*domain.Configuracion, error)
	Save(ctx context.Context, cfg *domain.Configuracion) error
	UpdateConnection(ctx context.Context, conn domain.PrinterConnection) error
}

type OperatorRepository interface {
	Create(ctx context.Context, op *domain.Operator) (*domain.Operator, error)
	FindByEmail(ctx context.Context, email string) (*domain.Operator, error)
	FindByID(ctx context.Context, id int) (*domain.Operator, error)
}

type DeviceEventsLogRepository interface {
	Create(ctx context.Context, event *domain.DeviceEventLog) error
}

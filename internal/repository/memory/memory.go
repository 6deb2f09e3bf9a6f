// Package memory implementa los repositorios en memoria. Se usa con
// STORE=memory y en las pruebas de los servicios.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

type spaceRepository struct {
	mu     sync.RWMutex
	spaces map[string]domain.Space
}

func NewSpaceRepository(seed ...domain.Space) repository.SpaceRepository {
	r := &spaceRepository{spaces: make(map[string]domain.Space)}
	for _, s := range seed {
		r.spaces[s.ID] = s
	}
	return r
}

func (r *spaceRepository) FindAll(ctx context.Context) ([]domain.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Space, 0, len(r.spaces))
	for _, s := range r.spaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *spaceRepository) FindByID(ctx context.Context, id string) (*domain.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.spaces[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *spaceRepository) Save(ctx context.Context, space *domain.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spaces[space.ID]; !ok {
		return fmt.Errorf("SpaceRepository.Save %s: %w", space.ID, repository.ErrNotFound)
	}
	r.spaces[space.ID] = *space
	return nil
}

func (r *spaceRepository) EnsureSeeded(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := r.spaces[id]; ok {
			continue
		}
		s := domain.Space{ID: id}
		s.Reset()
		r.spaces[id] = s
	}
	return nil
}

type historyRepository struct {
	mu       sync.RWMutex
	registro []domain.HistoryRecord
}

func NewHistoryRepository(seed ...domain.HistoryRecord) repository.HistoryRepository {
	return &historyRepository{registro: append([]domain.HistoryRecord(nil), seed...)}
}

func (r *historyRepository) Append(ctx context.Context, rec *domain.HistoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	for _, existing := range r.registro {
		if existing.ID == rec.ID {
			return fmt.Errorf("HistoryRepository.Append %s: %w", rec.ID, repository.ErrDuplicateEntry)
		}
	}
	r.registro = append(r.registro, *rec)
	return nil
}

// FindAll devuelve los registros en orden de inserción.
func (r *historyRepository) FindAll(ctx context.Context) ([]domain.HistoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.HistoryRecord{}, r.registro...), nil
}

func (r *historyRepository) FindByID(ctx context.Context, id string) (*domain.HistoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.registro {
		if rec.ID == id {
			out := rec
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *historyRepository) UpdateEstado(ctx context.Context, id string, estado domain.HistoryState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.registro {
		if r.registro[i].ID == id {
			r.registro[i].Estado = estado
			return nil
		}
	}
	return repository.ErrNotFound
}

// configurationRepository guarda el registro como JSON, igual que la tabla
// configuracion, para que toda lectura pase por DecodeConfiguracion.
type configurationRepository struct {
	mu  sync.RWMutex
	raw []byte
}

// NewConfigurationRepository recibe el registro inicial en JSON; nil deja la
// configuración vacía.
func NewConfigurationRepository(raw []byte) repository.ConfigurationRepository {
	return &configurationRepository{raw: raw}
}

func (r *configurationRepository) Get(ctx context.Context) (*domain.Configuracion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, err := domain.DecodeConfiguracion(r.raw)
	if err != nil {
		return nil, fmt.Errorf("ConfigurationRepository.Get: %w", err)
	}
	return cfg, nil
}

func (r *configurationRepository) Save(ctx context.Context, cfg *domain.Configuracion) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("ConfigurationRepository.Save: %w", err)
	}
	r.mu.Lock()
	r.raw = raw
	r.mu.Unlock()
	return nil
}

func (r *configurationRepository) UpdateConnection(ctx context.Context, conn domain.PrinterConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := domain.DecodeConfiguracion(r.raw)
	if err != nil {
		return fmt.Errorf("ConfigurationRepository.UpdateConnection: %w", err)
	}
	if cfg.Impresora == nil {
		cfg.Impresora = &domain.PrinterConfig{}
	}
	cfg.Impresora.Conexion = &conn
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("ConfigurationRepository.UpdateConnection: %w", err)
	}
	r.raw = raw
	return nil
}

type operatorRepository struct {
	mu      sync.RWMutex
	nextID  int
	byEmail map[string]domain.Operator
}

func NewOperatorRepository() repository.OperatorRepository {
	return &operatorRepository{nextID: 1, byEmail: make(map[string]domain.Operator)}
}

func (r *operatorRepository) Create(ctx context.Context, op *domain.Operator) (*domain.Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(op.Email)
	if _, ok := r.byEmail[email]; ok {
		return nil, fmt.Errorf("%w: el correo '%s' ya está registrado", repository.ErrDuplicateEntry, op.Email)
	}
	now := time.Now().UTC()
	op.ID = r.nextID
	op.CreatedAt, op.UpdatedAt = now, now
	r.nextID++
	r.byEmail[email] = *op
	return op, nil
}

func (r *operatorRepository) FindByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &op, nil
}

func (r *operatorRepository) FindByID(ctx context.Context, id int) (*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, op := range r.byEmail {
		if op.ID == id {
			out := op
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// DeviceEventsLog conserva los eventos recibidos; Events sirve a las pruebas.
type DeviceEventsLog struct {
	mu     sync.Mutex
	events []domain.DeviceEventLog
}

func NewDeviceEventsLogRepository() *DeviceEventsLog {
	return &DeviceEventsLog{}
}

func (r *DeviceEventsLog) Create(ctx context.Context, event *domain.DeviceEventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = int64(len(r.events) + 1)
	r.events = append(r.events, *event)
	return nil
}

func (r *DeviceEventsLog) Events() []domain.DeviceEventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.DeviceEventLog(nil), r.events...)
}

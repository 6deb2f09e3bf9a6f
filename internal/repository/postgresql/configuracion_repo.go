package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

// pgConfigurationRepository guarda el registro global como JSONB en la única
// fila de configuracion.
type pgConfigurationRepository struct {
	db *sql.DB
}

func NewPgConfigurationRepository(db *sql.DB) repository.ConfigurationRepository {
	return &pgConfigurationRepository{db: db}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func readConfiguracion(ctx context.Context, q querier, forUpdate bool) (*domain.Configuracion, error) {
	query := `SELECT datos FROM configuracion WHERE id = 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var raw []byte
	err := q.QueryRowContext(ctx, query).Scan(&raw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return domain.DecodeConfiguracion(raw)
}

func writeConfiguracion(ctx context.Context, q querier, cfg *domain.Configuracion) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO configuracion (id, datos) VALUES (1, $1::jsonb)
	                             ON CONFLICT (id) DO UPDATE SET datos = EXCLUDED.datos`, string(raw))
	return err
}

func (r *pgConfigurationRepository) Get(ctx context.Context) (*domain.Configuracion, error) {
	cfg, err := readConfiguracion(ctx, r.db, false)
	if err != nil {
		return nil, fmt.Errorf("ConfigurationRepository.Get: %w", err)
	}
	return cfg, nil
}

func (r *pgConfigurationRepository) Save(ctx context.Context, cfg *domain.Configuracion) error {
	if err := writeConfiguracion(ctx, r.db, cfg); err != nil {
		return fmt.Errorf("ConfigurationRepository.Save: %w", err)
	}
	return nil
}

// UpdateConnection reescribe sólo impresora/conexion dentro de una
// transacción, dejando el registro en su forma canónica.
func (r *pgConfigurationRepository) UpdateConnection(ctx context.Context, conn domain.PrinterConnection) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ConfigurationRepository.UpdateConnection begin: %w", err)
	}
	defer tx.Rollback()

	cfg, err := readConfiguracion(ctx, tx, true)
	if err != nil {
		return fmt.Errorf("ConfigurationRepository.UpdateConnection read: %w", err)
	}
	if cfg.Impresora == nil {
		cfg.Impresora = &domain.PrinterConfig{}
	}
	cfg.Impresora.Conexion = &conn
	if err := writeConfiguracion(ctx, tx, cfg); err != nil {
		return fmt.Errorf("ConfigurationRepository.UpdateConnection write: %w", err)
	}
	return tx.Commit()
}

package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

type pgHistoryRepository struct {
	db *sql.DB
}

func NewPgHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &pgHistoryRepository{db: db}
}

const historyColumns = `id, espacio, patente, hora_entrada, hora_salida, tiempo_ocupado, costo, fecha, marca_tiempo, timestamp_salida, estado`

func scanHistory(row rowScanner) (*domain.HistoryRecord, error) {
	rec := &domain.HistoryRecord{}
	var estado string
	err := row.Scan(&rec.ID, &rec.Espacio, &rec.Patente, &rec.HoraEntrada, &rec.HoraSalida,
		&rec.TiempoOcupado, &rec.Costo, &rec.Fecha, &rec.Timestamp, &rec.TimestampSalida, &estado)
	if err != nil {
		return nil, err
	}
	rec.Estado = domain.HistoryState(estado)
	return rec, nil
}

func (r *pgHistoryRepository) Append(ctx context.Context, rec *domain.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	query := `INSERT INTO historial (` + historyColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, rec.ID, rec.Espacio, rec.Patente, rec.HoraEntrada, rec.HoraSalida,
		rec.TiempoOcupado, rec.Costo, rec.Fecha, rec.Timestamp, rec.TimestampSalida, string(rec.Estado))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: historial '%s'", repository.ErrDuplicateEntry, rec.ID)
		}
		return fmt.Errorf("HistoryRepository.Append: %w", err)
	}
	return nil
}

func (r *pgHistoryRepository) FindAll(ctx context.Context) ([]domain.HistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+historyColumns+` FROM historial ORDER BY creado_en`)
	if err != nil {
		return nil, fmt.Errorf("HistoryRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryRecord
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("HistoryRepository.FindAll scan: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("HistoryRepository.FindAll rows: %w", err)
	}
	return out, nil
}

func (r *pgHistoryRepository) FindByID(ctx context.Context, id string) (*domain.HistoryRecord, error) {
	rec, err := scanHistory(r.db.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM historial WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("HistoryRepository.FindByID: %w", err)
	}
	return rec, nil
}

func (r *pgHistoryRepository) UpdateEstado(ctx context.Context, id string, estado domain.HistoryState) error {
	res, err := r.db.ExecContext(ctx, `UPDATE historial SET estado = $2 WHERE id = $1`, id, string(estado))
	if err != nil {
		return fmt.Errorf("HistoryRepository.UpdateEstado: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

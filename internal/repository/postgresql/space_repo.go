package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

type pgSpaceRepository struct {
	db *sql.DB
}

func NewPgSpaceRepository(db *sql.DB) repository.SpaceRepository {
	return &pgSpaceRepository{db: db}
}

const spaceColumns = `id, estado, patente, hora_entrada, hora_salida, tiempo_ocupado, costo, ultima_actualizacion, pendiente_ticket`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpace(row rowScanner) (*domain.Space, error) {
	s := &domain.Space{}
	err := row.Scan(&s.ID, &s.Estado, &s.Patente, &s.HoraEntrada, &s.HoraSalida,
		&s.TiempoOcupado, &s.Costo, &s.UltimaActualizacion, &s.PendienteTicket)
	if err != nil {
		return nil, err
	}
	if s.UltimaActualizacion.Valid {
		s.UltimaActualizacion.Time = s.UltimaActualizacion.Time.UTC()
	}
	return s, nil
}

func (r *pgSpaceRepository) FindAll(ctx context.Context) ([]domain.Space, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+spaceColumns+` FROM estacionamientos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("SpaceRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var spaces []domain.Space
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("SpaceRepository.FindAll scan: %w", err)
		}
		spaces = append(spaces, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SpaceRepository.FindAll rows: %w", err)
	}
	return spaces, nil
}

func (r *pgSpaceRepository) FindByID(ctx context.Context, id string) (*domain.Space, error) {
	s, err := scanSpace(r.db.QueryRowContext(ctx, `SELECT `+spaceColumns+` FROM estacionamientos WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SpaceRepository.FindByID: %w", err)
	}
	return s, nil
}

func (r *pgSpaceRepository) Save(ctx context.Context, s *domain.Space) error {
	query := `UPDATE estacionamientos
	          SET estado = $2, patente = $3, hora_entrada = $4, hora_salida = $5, tiempo_ocupado = $6,
	              costo = $7, ultima_actualizacion = $8, pendiente_ticket = $9
	          WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, s.ID, s.Estado, s.Patente, s.HoraEntrada, s.HoraSalida,
		s.TiempoOcupado, s.Costo, s.UltimaActualizacion, s.PendienteTicket)
	if err != nil {
		return fmt.Errorf("SpaceRepository.Save: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SpaceRepository.Save rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("SpaceRepository.Save %s: %w", s.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *pgSpaceRepository) EnsureSeeded(ctx context.Context, ids []string) error {
	for _, id := range ids {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO estacionamientos (id, estado) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			id, domain.EstadoLibre)
		if err != nil {
			return fmt.Errorf("SpaceRepository.EnsureSeeded %s: %w", id, err)
		}
	}
	return nil
}

package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

type pgOperatorRepository struct {
	db *sql.DB
}

func NewPgOperatorRepository(db *sql.DB) repository.OperatorRepository {
	return &pgOperatorRepository{db: db}
}

func (r *pgOperatorRepository) Create(ctx context.Context, op *domain.Operator) (*domain.Operator, error) {
	query := `INSERT INTO operadores (email, nombre, foto_url, password_hash, role, created_at, updated_at)
	           VALUES (lower($1), $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	// op.Password ya viene como hash
	err := r.db.QueryRowContext(ctx, query, op.Email, op.Nombre,
		sql.NullString{String: op.FotoURL, Valid: op.FotoURL != ""}, op.Password, op.Role,
	).Scan(&op.ID, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: el correo '%s' ya está registrado", repository.ErrDuplicateEntry, op.Email)
		}
		return nil, fmt.Errorf("OperatorRepository.Create: %w", err)
	}
	op.CreatedAt = op.CreatedAt.In(time.UTC)
	op.UpdatedAt = op.UpdatedAt.In(time.UTC)
	return op, nil
}

func (r *pgOperatorRepository) findOne(ctx context.Context, where string, arg any) (*domain.Operator, error) {
	op := &domain.Operator{}
	var foto sql.NullString
	query := `SELECT id, email, nombre, foto_url, password_hash, role, created_at, updated_at FROM operadores WHERE ` + where
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&op.ID, &op.Email, &op.Nombre, &foto, &op.Password,
		&op.Role, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		return nil, err
	}
	op.FotoURL = foto.String
	op.CreatedAt = op.CreatedAt.In(time.UTC)
	op.UpdatedAt = op.UpdatedAt.In(time.UTC)
	return op, nil
}

func (r *pgOperatorRepository) FindByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	op, err := r.findOne(ctx, `email = lower($1)`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("OperatorRepository.FindByEmail: %w", err)
	}
	return op, nil
}

func (r *pgOperatorRepository) FindByID(ctx context.Context, id int) (*domain.Operator, error) {
	op, err := r.findOne(ctx, `id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("OperatorRepository.FindByID: %w", err)
	}
	return op, nil
}

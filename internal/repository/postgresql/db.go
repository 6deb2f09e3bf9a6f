package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"kiosko_estacionamiento/internal/config"
)

// NewDB abre la base con el driver elegido en DB_DRIVER: "pgx" (pgx/stdlib)
// o "postgres" (lib/pq).
func NewDB(cfg *config.Config) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)

	driver := cfg.DBDriver
	if driver != "postgres" {
		driver = "pgx"
	}
	db, err := sql.Open(driver, psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("error al abrir la conexión a la base de datos: %w", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error al hacer ping a la base de datos: %w", err)
	}
	log.Printf("Base de datos conectada (driver %s)", driver)
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS estacionamientos (
	id                   TEXT PRIMARY KEY,
	estado               TEXT NOT NULL DEFAULT 'LIBRE',
	patente              TEXT,
	hora_entrada         TEXT,
	hora_salida          TEXT,
	tiempo_ocupado       BIGINT,
	costo                BIGINT,
	ultima_actualizacion TIMESTAMPTZ,
	pendiente_ticket     BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS historial (
	id               TEXT PRIMARY KEY,
	espacio          TEXT NOT NULL,
	patente          TEXT NOT NULL DEFAULT '',
	hora_entrada     TEXT NOT NULL DEFAULT '',
	hora_salida      TEXT NOT NULL DEFAULT '',
	tiempo_ocupado   BIGINT NOT NULL DEFAULT 0,
	costo            BIGINT NOT NULL DEFAULT 0,
	fecha            TEXT NOT NULL DEFAULT '',
	marca_tiempo     BIGINT,
	timestamp_salida TEXT,
	estado           TEXT NOT NULL DEFAULT 'PENDIENTE',
	creado_en        TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS configuracion (
	id    INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	datos JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE TABLE IF NOT EXISTS operadores (
	id            SERIAL PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	nombre        TEXT NOT NULL,
	foto_url      TEXT,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'operador',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS device_events_log (
	id               BIGSERIAL PRIMARY KEY,
	received_at      TIMESTAMPTZ NOT NULL,
	device_id        TEXT,
	mqtt_topic       TEXT,
	message_type     TEXT,
	payload          JSONB,
	processed_status TEXT,
	processing_notes TEXT
);
`

// Migrate crea las tablas que falten.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error al crear el esquema: %w", err)
	}
	return nil
}

// isUniqueViolation reconoce la violación de unicidad con cualquiera de los
// dos drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	return false
}

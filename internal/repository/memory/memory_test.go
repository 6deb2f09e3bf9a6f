package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

func TestSpaceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSpaceRepository()

	require.NoError(t, repo.EnsureSeeded(ctx, []string{"a2", "a1", " ", "a1"}))
	spaces, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, spaces, 2)
	assert.Equal(t, "a1", spaces[0].ID)
	assert.Equal(t, domain.EstadoLibre, spaces[1].Estado)

	s, err := repo.FindByID(ctx, "a1")
	require.NoError(t, err)
	s.Estado = domain.EstadoOcupado
	s.Patente = null.StringFrom("BBCL12")

	// La copia devuelta no debe alterar lo guardado hasta Save.
	stored, _ := repo.FindByID(ctx, "a1")
	assert.Equal(t, domain.EstadoLibre, stored.Estado)

	require.NoError(t, repo.Save(ctx, s))
	stored, _ = repo.FindByID(ctx, "a1")
	assert.Equal(t, "BBCL12", stored.Patente.String)

	// EnsureSeeded no pisa espacios existentes.
	require.NoError(t, repo.EnsureSeeded(ctx, []string{"a1"}))
	stored, _ = repo.FindByID(ctx, "a1")
	assert.Equal(t, domain.EstadoOcupado, stored.Estado)

	_, err = repo.FindByID(ctx, "zz")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.Save(ctx, &domain.Space{ID: "zz"}), repository.ErrNotFound)
}

func TestHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository()

	rec := &domain.HistoryRecord{Espacio: "a1", Patente: "BBCL12", Estado: domain.HistorialPendiente}
	require.NoError(t, repo.Append(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.ErrorIs(t, repo.Append(ctx, rec), repository.ErrDuplicateEntry)

	require.NoError(t, repo.UpdateEstado(ctx, rec.ID, domain.HistorialFinalizado))
	got, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HistorialFinalizado, got.Estado)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, repo.UpdateEstado(ctx, "nada", domain.HistorialFinalizado), repository.ErrNotFound)
}

func TestConfigurationRepositoryNormalizesAlias(t *testing.T) {
	ctx := context.Background()
	repo := NewConfigurationRepository([]byte(`{"tarifaHora":1500,"impresoras":{"nombre":"Caja","tipo":"termica"}}`))

	cfg, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), cfg.Tarifa())
	require.NotNil(t, cfg.Impresora)
	assert.Equal(t, "Caja", cfg.Impresora.Nombre)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateConnection(ctx, domain.ConnectionUpdate(domain.ConexionError, "sin papel", now)))

	cfg, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg.Impresora.Conexion)
	assert.Equal(t, domain.ConexionError, cfg.Impresora.Conexion.Estado)
	assert.Equal(t, "sin papel", cfg.Impresora.Conexion.MensajeError)
	assert.Equal(t, "Caja", cfg.Impresora.Nombre)
}

func TestConfigurationRepositoryEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewConfigurationRepository(nil)

	cfg, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.TarifaHoraPorDefecto, cfg.Tarifa())
	assert.Nil(t, cfg.Impresora)

	require.NoError(t, repo.Save(ctx, &domain.Configuracion{TarifaHora: 800}))
	cfg, _ = repo.Get(ctx)
	assert.Equal(t, int64(800), cfg.TarifaHora)
}

func TestOperatorRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOperatorRepository()

	op, err := repo.Create(ctx, &domain.Operator{Email: "Caja@Kiosko.cl", Nombre: "Caja", Role: "operador"})
	require.NoError(t, err)
	assert.Equal(t, 1, op.ID)

	_, err = repo.Create(ctx, &domain.Operator{Email: "caja@kiosko.cl"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	found, err := repo.FindByEmail(ctx, "caja@kiosko.cl")
	require.NoError(t, err)
	assert.Equal(t, "Caja", found.Nombre)

	found, err = repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Caja@Kiosko.cl", found.Email)

	_, err = repo.FindByID(ctx, 9)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

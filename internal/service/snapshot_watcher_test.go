package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository/memory"
)

func TestSnapshotWatcherBroadcastsChangesAndAnnouncesTransitions(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(ahora)
	out := &recorder{}
	n := NewNotifier(clk, out, 2*time.Second, 3*time.Second)
	repo := memory.NewSpaceRepository(libre("A1"), ocupado("A2", "ABCD12", "15:00:00"))
	w := NewSnapshotWatcher(repo, n, out, clk, 5*time.Second)

	require.NoError(t, w.Refresh(ctx))
	clk.Advance(2 * time.Second)
	assert.Len(t, out.of(domain.MensajeEstacionamientos), 1)
	assert.Empty(t, out.notes(), "la primera lectura no anuncia nada")
	assert.Len(t, w.Current(), 2)

	require.NoError(t, w.Refresh(ctx))
	assert.Len(t, out.of(domain.MensajeEstacionamientos), 1, "sin cambios no se publica")

	a1, _ := repo.FindByID(ctx, "A1")
	a1.Estado = domain.EstadoOcupado
	require.NoError(t, repo.Save(ctx, a1))
	a2, _ := repo.FindByID(ctx, "A2")
	a2.Estado = domain.EstadoVerificar
	require.NoError(t, repo.Save(ctx, a2))

	require.NoError(t, w.Refresh(ctx))
	assert.Len(t, out.of(domain.MensajeEstacionamientos), 2)
	assert.Empty(t, out.notes())
	clk.Advance(2 * time.Second)
	assert.ElementsMatch(t, []string{"🚗 Espacio A1 ocupado", "⚠️ Espacio A2 requiere verificación"}, out.notes())

	datos := out.of(domain.MensajeEstacionamientos)[1].Datos.([]domain.Space)
	assert.Equal(t, domain.EstadoOcupado, datos[0].Estado)
}

func TestSnapshotWatcherSkipsAnnouncementsWhileSuppressed(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(ahora)
	out := &recorder{}
	n := NewNotifier(clk, out, 2*time.Second, 3*time.Second)
	repo := memory.NewSpaceRepository(ocupado("A1", "ABCD12", "15:00:00"))
	w := NewSnapshotWatcher(repo, n, out, clk, 5*time.Second)
	require.NoError(t, w.Refresh(ctx))

	n.SuppressAutomatic(time.Second)
	a1, _ := repo.FindByID(ctx, "A1")
	a1.Estado = domain.EstadoPendiente
	require.NoError(t, repo.Save(ctx, a1))
	require.NoError(t, w.Refresh(ctx))
	clk.Advance(5 * time.Second)

	assert.Empty(t, out.notes())
	assert.Len(t, out.of(domain.MensajeEstacionamientos), 2, "la foto se publica igual")
}

func TestSnapshotWatcherTriggerRefreshes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk := clock.NewFake(ahora)
	out := &recorder{}
	repo := memory.NewSpaceRepository(libre("A1"))
	w := NewSnapshotWatcher(repo, NewNotifier(clk, out, 2*time.Second, 3*time.Second), out, clk, time.Hour)

	go w.Run(ctx)
	require.Eventually(t, func() bool { return len(out.of(domain.MensajeEstacionamientos)) == 1 }, time.Second, 5*time.Millisecond)

	a1, _ := repo.FindByID(context.Background(), "A1")
	a1.Estado = domain.EstadoOcupado
	require.NoError(t, repo.Save(context.Background(), a1))
	w.Trigger()

	require.Eventually(t, func() bool { return len(out.of(domain.MensajeEstacionamientos)) == 2 }, time.Second, 5*time.Millisecond)
}

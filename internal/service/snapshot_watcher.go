package service

import (
	"context"
	"log"
	"sync"
	"time"

	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

// SnapshotWatcher lee los espacios periódicamente y después de cada comando,
// publica la foto completa a los paneles cuando algo cambió y genera los
// avisos automáticos de las transiciones.
type SnapshotWatcher struct {
	spaceRepo repository.SpaceRepository
	notifier  *Notifier
	out       Broadcaster
	clock     clock.Clock
	interval  time.Duration
	trigger   chan struct{}

	mu      sync.Mutex
	current []domain.Space
	loaded  bool
}

func NewSnapshotWatcher(spaceRepo repository.SpaceRepository, notifier *Notifier, out Broadcaster, clk clock.Clock, interval time.Duration) *SnapshotWatcher {
	return &SnapshotWatcher{
		spaceRepo: spaceRepo,
		notifier:  notifier,
		out:       out,
		clock:     clk,
		interval:  interval,
		trigger:   make(chan struct{}, 1),
	}
}

// Trigger pide una lectura inmediata sin bloquear.
func (w *SnapshotWatcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *SnapshotWatcher) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	if err := w.Refresh(ctx); err != nil {
		log.Printf("SnapshotWatcher: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			log.Println("SnapshotWatcher: detenido.")
			return
		case <-ticker.C:
		case <-w.trigger:
		}
		if err := w.Refresh(ctx); err != nil {
			log.Printf("SnapshotWatcher: %v", err)
		}
	}
}

// Current devuelve la última foto leída.
func (w *SnapshotWatcher) Current() []domain.Space {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.Space(nil), w.current...)
}

// Refresh lee los espacios y compara con la foto anterior. La primera lectura
// no genera avisos.
func (w *SnapshotWatcher) Refresh(ctx context.Context) error {
	spaces, err := w.spaceRepo.FindAll(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	prev := make(map[string]domain.Space, len(w.current))
	for _, s := range w.current {
		prev[s.ID] = s
	}
	first := !w.loaded
	changed := first || len(spaces) != len(w.current)
	var avisos []domain.Notification
	for _, s := range spaces {
		old, ok := prev[s.ID]
		if !ok {
			changed = true
			continue
		}
		if !sameSpace(old, s) {
			changed = true
		}
		if note, ok := TransitionNotification(s.ID, old.Estado, s.Estado); ok && !first {
			avisos = append(avisos, note)
		}
	}
	w.current = spaces
	w.loaded = true
	w.mu.Unlock()

	if !w.notifier.Suppressed() {
		for _, note := range avisos {
			w.notifier.NotifyAuto(note)
		}
	}
	if changed && w.out != nil {
		w.out.Broadcast(domain.DashboardMessage{Tipo: domain.MensajeEstacionamientos, Datos: spaces})
	}
	return nil
}

func sameSpace(a, b domain.Space) bool {
	return a.Estado == b.Estado &&
		a.Patente == b.Patente &&
		a.HoraEntrada == b.HoraEntrada &&
		a.HoraSalida == b.HoraSalida &&
		a.TiempoOcupado == b.TiempoOcupado &&
		a.Costo == b.Costo &&
		a.PendienteTicket == b.PendienteTicket &&
		a.UltimaActualizacion.Valid == b.UltimaActualizacion.Valid &&
		a.UltimaActualizacion.Time.Equal(b.UltimaActualizacion.Time)
}

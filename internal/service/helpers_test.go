package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"kiosko_estacionamiento/internal/billing"
	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
	"kiosko_estacionamiento/internal/repository/memory"
)

var ahora = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

type recorder struct {
	mu   sync.Mutex
	msgs []domain.DashboardMessage
}

func (r *recorder) Broadcast(msg domain.DashboardMessage) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recorder) of(tipo string) []domain.DashboardMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DashboardMessage
	for _, m := range r.msgs {
		if m.Tipo == tipo {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) notes() []string {
	var out []string
	for _, m := range r.of(domain.MensajeNotificacion) {
		out = append(out, m.Datos.(domain.Notification).Mensaje)
	}
	return out
}

type sentTicket struct {
	id, puerto string
	datos      []byte
}

type fakePrinter struct {
	mu      sync.Mutex
	tickets []sentTicket
	status  []domain.Space
	err     error
}

func (p *fakePrinter) Enabled() bool { return true }

func (p *fakePrinter) SendTicket(ctx context.Context, ticketID, puerto string, datos []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tickets = append(p.tickets, sentTicket{id: ticketID, puerto: puerto, datos: datos})
	return nil
}

func (p *fakePrinter) PublishSpaceStatus(ctx context.Context, space domain.Space) error {
	p.mu.Lock()
	p.status = append(p.status, space)
	p.mu.Unlock()
	return nil
}

func (p *fakePrinter) sent() []sentTicket {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentTicket(nil), p.tickets...)
}

const impresoraTermica = `{"tarifaHora":1000,"impresora":{"nombre":"Térmica","tipo":"termica","anchoPapel":80,"puerto":"USB001","comandos":{"negrita":false},"formatoTicket":{"mostrarSeparadores":false,"mostrarLogo":false}}}`

type harness struct {
	clk      *clock.Fake
	spaces   repository.SpaceRepository
	history  repository.HistoryRepository
	config   repository.ConfigurationRepository
	out      *recorder
	notifier *Notifier
	acks     *PrintAckBroker
	printer  *fakePrinter
	svc      *SpaceService
}

func newHarness(t *testing.T, config string, spaces ...domain.Space) *harness {
	t.Helper()
	h := &harness{
		clk:     clock.NewFake(ahora),
		spaces:  memory.NewSpaceRepository(spaces...),
		history: memory.NewHistoryRepository(),
		out:     &recorder{},
		printer: &fakePrinter{},
	}
	var raw []byte
	if config != "" {
		raw = []byte(config)
	}
	h.config = memory.NewConfigurationRepository(raw)
	h.notifier = NewNotifier(h.clk, h.out, 2*time.Second, 3*time.Second)
	h.acks = NewPrintAckBroker(h.clk)
	h.svc = NewSpaceService(h.spaces, h.history, h.config, h.notifier, h.acks, h.out, h.printer, h.clk, SpaceOptions{
		Location:   time.UTC,
		Policy:     billing.PolicyHour,
		AckTimeout: 30 * time.Second,
		Cooldown:   100 * time.Millisecond,
	})
	return h
}

func (h *harness) space(t *testing.T, id string) domain.Space {
	t.Helper()
	s, err := h.spaces.FindByID(context.Background(), id)
	require.NoError(t, err)
	return *s
}

func (h *harness) waitIdle(t *testing.T, id string) {
	t.Helper()
	require.Eventually(t, func() bool { return !h.svc.Busy(id) }, time.Second, 5*time.Millisecond)
}

func libre(id string) domain.Space {
	s := domain.Space{ID: id}
	s.Reset()
	s.Touch(ahora)
	return s
}

func ocupado(id, patente, entrada string) domain.Space {
	s := libre(id)
	s.Estado = domain.EstadoOcupado
	s.Patente = null.StringFrom(patente)
	s.HoraEntrada = null.StringFrom(entrada)
	return s
}

func pendiente(id, patente, entrada, salida string, segundos, costo int64) domain.Space {
	s := ocupado(id, patente, entrada)
	s.Estado = domain.EstadoPendiente
	s.HoraSalida = null.StringFrom(salida)
	s.TiempoOcupado = null.IntFrom(segundos)
	s.Costo = null.IntFrom(costo)
	s.PendienteTicket = true
	return s
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"

	"kiosko_estacionamiento/internal/billing"
	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
	"kiosko_estacionamiento/internal/ticket"
)

// SpaceOptions son los parámetros de operación de SpaceService.
type SpaceOptions struct {
	Location   *time.Location
	Policy     billing.CostPolicy
	AckTimeout time.Duration
	Cooldown   time.Duration
}

// SpaceService es la máquina de estados de los espacios. Los comandos del
// operador (finalizar, imprimir, verificar) se excluyen por espacio mientras
// están en curso; los eventos de los sensores escriben directamente y, si
// coinciden con un comando, gana la última escritura.
type SpaceService struct {
	spaceRepo   repository.SpaceRepository
	historyRepo repository.HistoryRepository
	configRepo  repository.ConfigurationRepository
	notifier    *Notifier
	acks        *PrintAckBroker
	out         Broadcaster
	printer     PrinterDevice
	clock       clock.Clock
	opts        SpaceOptions

	mu         sync.Mutex
	processing map[string]struct{}
	onChange   func()
}

func NewSpaceService(
	spaceRepo repository.SpaceRepository,
	historyRepo repository.HistoryRepository,
	configRepo repository.ConfigurationRepository,
	notifier *Notifier,
	acks *PrintAckBroker,
	out Broadcaster,
	printer PrinterDevice,
	clk clock.Clock,
	opts SpaceOptions,
) *SpaceService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Policy == "" {
		opts.Policy = billing.PolicyHour
	}
	return &SpaceService{
		spaceRepo:   spaceRepo,
		historyRepo: historyRepo,
		configRepo:  configRepo,
		notifier:    notifier,
		acks:        acks,
		out:         out,
		printer:     printer,
		clock:       clk,
		opts:        opts,
		processing:  make(map[string]struct{}),
	}
}

// OnChange registra la función llamada después de cada escritura, usada para
// refrescar la vista de los paneles.
func (s *SpaceService) OnChange(f func()) {
	s.mu.Lock()
	s.onChange = f
	s.mu.Unlock()
}

func (s *SpaceService) changed() {
	s.mu.Lock()
	f := s.onChange
	s.mu.Unlock()
	if f != nil {
		f()
	}
}

func (s *SpaceService) acquire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.processing[id]; busy {
		return ErrSpaceBusy
	}
	s.processing[id] = struct{}{}
	s.notifier.SuppressAutomatic(s.opts.Cooldown)
	return nil
}

// release libera el espacio y mantiene los avisos automáticos suprimidos un
// tiempo más, hasta que el eco de la escritura pase por el watcher.
func (s *SpaceService) release(id string) {
	s.mu.Lock()
	delete(s.processing, id)
	s.mu.Unlock()
	s.notifier.SuppressAutomatic(s.opts.Cooldown)
	s.changed()
}

// Busy informa si hay un comando en curso sobre el espacio.
func (s *SpaceService) Busy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.processing[id]
	return busy
}

func (s *SpaceService) Snapshot(ctx context.Context) ([]domain.Space, error) {
	return s.spaceRepo.FindAll(ctx)
}

func (s *SpaceService) Get(ctx context.Context, id string) (*domain.Space, error) {
	return s.spaceRepo.FindByID(ctx, id)
}

func (s *SpaceService) save(ctx context.Context, space *domain.Space) error {
	if err := s.spaceRepo.Save(ctx, space); err != nil {
		return err
	}
	if s.printer != nil && s.printer.Enabled() {
		if err := s.printer.PublishSpaceStatus(ctx, *space); err != nil {
			log.Printf("SpaceService: %v", err)
		}
	}
	return nil
}

func (s *SpaceService) tarifa(ctx context.Context) (int64, *domain.PrinterConfig) {
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		log.Printf("SpaceService: no se pudo leer la configuración, se usa la tarifa por defecto: %v", err)
		return domain.TarifaHoraPorDefecto, nil
	}
	return cfg.Tarifa(), cfg.Impresora
}

func (s *SpaceService) fail(mensaje string) {
	s.notifier.Notify(domain.Notification{Tipo: domain.NotificacionError, Mensaje: mensaje})
}

// Finalize cierra la ocupación: calcula tiempo y costo y deja el espacio
// PENDIENTE a la espera del ticket.
func (s *SpaceService) Finalize(ctx context.Context, id string) (*domain.Space, error) {
	if err := s.acquire(id); err != nil {
		return nil, err
	}
	defer s.release(id)

	space, err := s.spaceRepo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.fail("Error al finalizar el espacio. Intente nuevamente.")
		return nil, fmt.Errorf("error al leer el espacio %s: %w", id, err)
	}
	if space == nil || space.Estado != domain.EstadoOcupado {
		s.fail("El espacio no está ocupado")
		return nil, ErrSpaceNotOccupied
	}

	tarifa, _ := s.tarifa(ctx)
	now := s.clock.Now()
	segundos := billing.OccupiedSeconds(space.HoraEntrada.String, now, s.opts.Location)
	costo := billing.Cost(segundos, tarifa, s.opts.Policy)

	space.Estado = domain.EstadoPendiente
	space.HoraSalida = null.StringFrom(billing.FormatClock(now.In(s.opts.Location)))
	space.TiempoOcupado = null.IntFrom(segundos)
	space.Costo = null.IntFrom(costo)
	space.PendienteTicket = true

	if err := s.save(ctx, space); err != nil {
		s.fail("Error al finalizar el espacio. Intente nuevamente.")
		return nil, fmt.Errorf("error al guardar el espacio %s: %w", id, err)
	}
	log.Printf("SpaceService: espacio %s finalizado (%ds, $%s)", id, segundos, billing.FormatCLP(costo))
	s.notifier.Notify(domain.Notification{
		Tipo:    domain.NotificacionExito,
		Mensaje: fmt.Sprintf("⏳ Espacio %s pendiente - $%s", strings.ToUpper(id), billing.FormatCLP(costo)),
	})
	return space, nil
}

// StartPrint envía el ticket de un espacio PENDIENTE y vuelve de inmediato.
// La confirmación se espera en segundo plano; el espacio queda ocupado por la
// operación hasta que llega o vence.
func (s *SpaceService) StartPrint(ctx context.Context, id string) (*domain.PrintJob, error) {
	job, _, err := s.startPrint(ctx, id, context.Background())
	return job, err
}

// Print es StartPrint esperando el resultado. Cancelada o vencida, el espacio
// sigue PENDIENTE y no se escribe historial.
func (s *SpaceService) Print(ctx context.Context, id string) (domain.PrintResult, error) {
	_, done, err := s.startPrint(ctx, id, ctx)
	if err != nil {
		return domain.PrintTimedOut, err
	}
	out := <-done
	return out.result, out.err
}

type printOutcome struct {
	result domain.PrintResult
	err    error
}

func (s *SpaceService) startPrint(ctx context.Context, id string, waitCtx context.Context) (*domain.PrintJob, <-chan printOutcome, error) {
	if err := s.acquire(id); err != nil {
		return nil, nil, err
	}

	space, err := s.spaceRepo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.release(id)
		s.fail("Error al imprimir el ticket o guardar en el historial.")
		return nil, nil, fmt.Errorf("error al leer el espacio %s: %w", id, err)
	}
	if space == nil || space.Estado != domain.EstadoPendiente {
		s.release(id)
		s.fail("El espacio no está pendiente de ticket")
		return nil, nil, ErrSpaceNotPending
	}

	tarifa, impresora := s.tarifa(ctx)
	now := s.clock.Now()
	data := s.ticketData(*space, tarifa, now)
	job := domain.PrintJob{ID: uuid.NewString(), Espacio: id, Costo: space.Costo.Int64}
	page, err := ticket.RenderPrintPage(job, data, impresora)
	if err != nil {
		s.release(id)
		s.fail("Error al imprimir el ticket o guardar en el historial.")
		return nil, nil, err
	}
	job.HTML = page

	// El plazo corre desde ahora, no desde que arranca la goroutine.
	results := s.acks.Register(job)
	deadline := s.clock.After(s.opts.AckTimeout)

	if s.out != nil {
		s.out.Broadcast(domain.DashboardMessage{Tipo: domain.MensajeImprimirTicket, Datos: job})
	}
	if impresora.Direct() && s.printer != nil && s.printer.Enabled() {
		if err := s.printer.SendTicket(ctx, job.ID, impresora.Puerto, ticket.RenderESCPOS(data, impresora)); err != nil {
			log.Printf("SpaceService: %v", err)
		}
	}
	log.Printf("SpaceService: ticket %s enviado para el espacio %s", job.ID, id)

	done := make(chan printOutcome, 1)
	session := *space
	go func() {
		defer s.release(id)
		result := s.acks.Wait(waitCtx, job.ID, results, deadline)
		err := s.completePrint(context.Background(), session, result)
		done <- printOutcome{result: result, err: err}
	}()
	return &job, done, nil
}

func (s *SpaceService) ticketData(space domain.Space, tarifa int64, now time.Time) domain.TicketData {
	patente := space.Patente.String
	if patente == "" {
		patente = "N/A"
	}
	return domain.TicketData{
		Espacio:     strings.ToUpper(space.ID),
		Patente:     patente,
		HoraEntrada: space.HoraEntrada.String,
		HoraSalida:  space.HoraSalida.String,
		TiempoTotal: billing.FormatDuration(space.TiempoOcupado.Int64),
		TarifaHora:  tarifa,
		CostoTotal:  space.Costo.Int64,
		Fecha:       billing.FormatDateTime(now.In(s.opts.Location)),
	}
}

// completePrint aplica el resultado de la impresión. Sólo una confirmación
// escribe: primero el historial y después el espacio vuelve a LIBRE.
func (s *SpaceService) completePrint(ctx context.Context, session domain.Space, result domain.PrintResult) error {
	switch result {
	case domain.PrintCancelled:
		s.notifier.Notify(domain.Notification{Tipo: domain.NotificacionAviso, Mensaje: "Impresión cancelada. El espacio sigue pendiente de ticket."})
		return nil
	case domain.PrintTimedOut:
		s.notifier.Notify(domain.Notification{Tipo: domain.NotificacionError, Mensaje: "No se recibió confirmación de impresión. El espacio sigue pendiente de ticket."})
		return nil
	}

	now := s.clock.Now()
	rec := &domain.HistoryRecord{
		ID:            uuid.NewString(),
		Espacio:       strings.ToUpper(session.ID),
		Patente:       session.Patente.String,
		HoraEntrada:   session.HoraEntrada.String,
		HoraSalida:    session.HoraSalida.String,
		TiempoOcupado: session.TiempoOcupado.Int64,
		Costo:         session.Costo.Int64,
		Fecha:         now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Timestamp:     null.IntFrom(now.UnixMilli()),
		Estado:        domain.HistorialFinalizado,
	}
	if err := s.historyRepo.Append(ctx, rec); err != nil {
		s.fail("Error al imprimir el ticket o guardar en el historial.")
		return fmt.Errorf("error al guardar el historial del espacio %s: %w", session.ID, err)
	}

	space, err := s.spaceRepo.FindByID(ctx, session.ID)
	if err != nil {
		s.fail("Error al imprimir el ticket o guardar en el historial.")
		return fmt.Errorf("error al leer el espacio %s: %w", session.ID, err)
	}
	space.Reset()
	space.Touch(now)
	if err := s.save(ctx, space); err != nil {
		s.fail("Error al imprimir el ticket o guardar en el historial.")
		return fmt.Errorf("error al liberar el espacio %s: %w", session.ID, err)
	}
	log.Printf("SpaceService: ticket del espacio %s confirmado, historial %s", session.ID, rec.ID)
	s.notifier.Notify(domain.Notification{
		Tipo:    domain.NotificacionExito,
		Mensaje: fmt.Sprintf("✅ Ticket impreso - $%s - Disponible en Historial", billing.FormatCLP(rec.Costo)),
	})
	return nil
}

// Verify libera el espacio sin condiciones.
func (s *SpaceService) Verify(ctx context.Context, id string) (*domain.Space, error) {
	if err := s.acquire(id); err != nil {
		return nil, err
	}
	defer s.release(id)

	space, err := s.spaceRepo.FindByID(ctx, id)
	if err != nil {
		s.fail("Error al verificar el espacio.")
		return nil, err
	}
	space.Reset()
	space.Touch(s.clock.Now())
	if err := s.save(ctx, space); err != nil {
		s.fail("Error al verificar el espacio.")
		return nil, fmt.Errorf("error al guardar el espacio %s: %w", id, err)
	}
	log.Printf("SpaceService: espacio %s verificado y liberado", id)
	s.notifier.Notify(domain.Notification{
		Tipo:    domain.NotificacionExito,
		Mensaje: fmt.Sprintf("✅ Espacio %s liberado", strings.ToUpper(id)),
	})
	return space, nil
}

// UpdatePlate corrige la patente de una sesión abierta.
func (s *SpaceService) UpdatePlate(ctx context.Context, id, patente string) (*domain.Space, error) {
	space, err := s.spaceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if space.Estado != domain.EstadoOcupado && space.Estado != domain.EstadoPendiente {
		return nil, ErrSpaceNotOccupied
	}
	space.Patente = null.StringFrom(strings.ToUpper(patente))
	if err := s.save(ctx, space); err != nil {
		return nil, fmt.Errorf("error al guardar la patente del espacio %s: %w", id, err)
	}
	s.changed()
	return space, nil
}

// Occupy registra la llegada de un vehículo informada por el sensor. Sólo
// aplica a espacios LIBRE o SIN_CONEXION; en otro estado cuenta como latido.
func (s *SpaceService) Occupy(ctx context.Context, id, patente, horaEntrada string) error {
	space, err := s.spaceRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if space.Estado != domain.EstadoLibre && space.Estado != domain.EstadoSinConexion {
		log.Printf("SpaceService: sensor informa ocupado en %s, que está %s; se registra como latido", id, space.Estado)
		space.Touch(now)
		return s.saveAndNotify(ctx, space)
	}
	if horaEntrada == "" {
		horaEntrada = billing.FormatClock(now.In(s.opts.Location))
	}
	space.Reset()
	space.Estado = domain.EstadoOcupado
	space.HoraEntrada = null.StringFrom(horaEntrada)
	if patente != "" {
		space.Patente = null.StringFrom(strings.ToUpper(patente))
	}
	space.Touch(now)
	return s.saveAndNotify(ctx, space)
}

// Release procesa un "libre" del sensor. Un espacio SIN_CONEXION vuelve a
// LIBRE; si hay una sesión abierta la cierra el operador, así que el aviso
// sólo cuenta como latido.
func (s *SpaceService) Release(ctx context.Context, id string) error {
	space, err := s.spaceRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	switch space.Estado {
	case domain.EstadoSinConexion:
		space.Reset()
	case domain.EstadoOcupado, domain.EstadoPendiente, domain.EstadoVerificar:
		log.Printf("SpaceService: sensor informa libre en %s, que está %s; se espera al operador", id, space.Estado)
	}
	space.Touch(s.clock.Now())
	return s.saveAndNotify(ctx, space)
}

// MarkDisconnected deja SIN_CONEXION los espacios cuyo sensor dejó de
// responder. Los que esperan ticket no se tocan.
func (s *SpaceService) MarkDisconnected(ctx context.Context, id, motivo string) error {
	space, err := s.spaceRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if space.Estado != domain.EstadoLibre && space.Estado != domain.EstadoOcupado {
		return nil
	}
	log.Printf("SpaceService: espacio %s sin conexión (%s)", id, motivo)
	space.Estado = domain.EstadoSinConexion
	return s.saveAndNotify(ctx, space)
}

// Heartbeat renueva la última actualización de los espacios informados.
func (s *SpaceService) Heartbeat(ctx context.Context, ids []string) error {
	now := s.clock.Now()
	var errs []error
	for _, id := range ids {
		space, err := s.spaceRepo.FindByID(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("latido de %s: %w", id, err))
			continue
		}
		space.Touch(now)
		if err := s.spaceRepo.Save(ctx, space); err != nil {
			errs = append(errs, fmt.Errorf("latido de %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *SpaceService) saveAndNotify(ctx context.Context, space *domain.Space) error {
	if err := s.save(ctx, space); err != nil {
		return fmt.Errorf("error al guardar el espacio %s: %w", space.ID, err)
	}
	s.changed()
	return nil
}

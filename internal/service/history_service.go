package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"kiosko_estacionamiento/internal/billing"
	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
	"kiosko_estacionamiento/internal/ticket"
)

const HistoryPageSize = 20

var csvHeader = []string{"Espacio", "Patente", "Hora Entrada", "Hora Salida", "Tiempo Total", "Costo", "Fecha", "Estado"}

type HistoryService struct {
	historyRepo repository.HistoryRepository
	configRepo  repository.ConfigurationRepository
	acks        *PrintAckBroker
	clock       clock.Clock
	loc         *time.Location
	ackTimeout  time.Duration
}

func NewHistoryService(historyRepo repository.HistoryRepository, configRepo repository.ConfigurationRepository, acks *PrintAckBroker, clk clock.Clock, loc *time.Location, ackTimeout time.Duration) *HistoryService {
	return &HistoryService{
		historyRepo: historyRepo,
		configRepo:  configRepo,
		acks:        acks,
		clock:       clk,
		loc:         loc,
		ackTimeout:  ackTimeout,
	}
}

// view devuelve el historial normalizado, del más reciente al más antiguo y
// filtrado por patente.
func (s *HistoryService) view(ctx context.Context, patente string) ([]domain.HistoryRecord, error) {
	registros, err := s.historyRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error al leer el historial: %w", err)
	}
	for i := range registros {
		registros[i].Estado = domain.NormalizeHistoryState(string(registros[i].Estado))
	}
	sort.SliceStable(registros, func(i, j int) bool {
		return registros[i].SortKey() > registros[j].SortKey()
	})

	filtro := strings.ToLower(strings.TrimSpace(patente))
	if filtro == "" {
		return registros, nil
	}
	filtrados := registros[:0]
	for _, r := range registros {
		if r.Patente != "" && strings.Contains(strings.ToLower(r.Patente), filtro) {
			filtrados = append(filtrados, r)
		}
	}
	return filtrados, nil
}

func (s *HistoryService) List(ctx context.Context, q domain.HistoryQuery) (*domain.HistoryPage, error) {
	registros, err := s.view(ctx, q.Patente)
	if err != nil {
		return nil, err
	}
	total := len(registros)
	totalPaginas := (total + HistoryPageSize - 1) / HistoryPageSize
	pagina := q.Pagina
	if pagina < 1 {
		pagina = 1
	}
	if totalPaginas > 0 && pagina > totalPaginas {
		pagina = totalPaginas
	}
	inicio := min((pagina-1)*HistoryPageSize, total)
	fin := min(inicio+HistoryPageSize, total)
	return &domain.HistoryPage{
		Registros:    append([]domain.HistoryRecord{}, registros[inicio:fin]...),
		Pagina:       pagina,
		TotalPaginas: totalPaginas,
		Total:        total,
	}, nil
}

// ExportCSV escribe la vista filtrada completa: cabecera sin comillas y cada
// celda de datos entre comillas, filas separadas por "\n".
func (s *HistoryService) ExportCSV(ctx context.Context, q domain.HistoryQuery, w io.Writer) error {
	registros, err := s.view(ctx, q.Patente)
	if err != nil {
		return err
	}
	now := s.clock.Now().In(s.loc)

	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))
	for _, r := range registros {
		costo := ""
		if r.Costo != 0 {
			costo = "$" + billing.FormatCLP(r.Costo)
		}
		estado := "Pendiente"
		if r.Estado == domain.HistorialFinalizado {
			estado = "Finalizado"
		}
		celdas := []string{
			r.Espacio,
			r.Patente,
			r.HoraEntrada,
			r.HoraSalida,
			exportDuration(r.TiempoOcupado),
			costo,
			s.exportDate(r, now),
			estado,
		}
		b.WriteString("\n")
		for i, c := range celdas {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(`"` + strings.ReplaceAll(c, `"`, `""`) + `"`)
		}
	}
	_, err = io.WriteString(w, b.String())
	return err
}

// ExportFilename es el nombre del archivo descargado.
func (s *HistoryService) ExportFilename() string {
	return fmt.Sprintf("historial_estacionamiento_%s.csv", s.clock.Now().UTC().Format("2006-01-02"))
}

func exportDuration(segundos int64) string {
	if segundos < 1 {
		return "--"
	}
	return billing.FormatDuration(segundos)
}

// exportDate es la fecha de la sesión en dd-mm-aaaa. Sin fecha registrada se
// deduce de la hora de salida: hoy, o ayer si esa hora todavía no llega.
func (s *HistoryService) exportDate(r domain.HistoryRecord, now time.Time) string {
	if t, ok := r.Moment(); ok {
		return billing.FormatDate(t.In(s.loc))
	}
	if salida, ok := billing.ParseEntry(r.HoraSalida, now, s.loc); ok {
		if salida.After(now) {
			return billing.FormatDate(now.AddDate(0, 0, -1))
		}
		return billing.FormatDate(now)
	}
	if n, err := strconv.ParseInt(r.ID, 10, 64); err == nil && n > 1000000000000 {
		return billing.FormatDate(time.UnixMilli(n).In(s.loc))
	}
	return billing.FormatDate(now)
}

// Reprint prepara el documento de reimpresión de un registro. Cuando el panel
// confirma la impresión, un registro PENDIENTE pasa a FINALIZADO.
func (s *HistoryService) Reprint(ctx context.Context, id string) (*domain.PrintJob, error) {
	rec, err := s.historyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Estado = domain.NormalizeHistoryState(string(rec.Estado))

	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("error al leer la configuración: %w", err)
	}
	job := domain.PrintJob{ID: uuid.NewString(), Espacio: rec.Espacio, Costo: rec.Costo}
	doc, err := ticket.RenderHistoryReceipt(job.ID, *rec, cfg.Tarifa(), cfg.Impresora, s.clock.Now(), s.loc)
	if err != nil {
		return nil, err
	}
	job.HTML = doc

	results := s.acks.Register(job)
	deadline := s.clock.After(s.ackTimeout)
	go func() {
		result := s.acks.Wait(context.Background(), job.ID, results, deadline)
		if result != domain.PrintConfirmed || rec.Estado == domain.HistorialFinalizado {
			return
		}
		if err := s.historyRepo.UpdateEstado(context.Background(), rec.ID, domain.HistorialFinalizado); err != nil {
			log.Printf("HistoryService: no se pudo finalizar el registro %s: %v", rec.ID, err)
			return
		}
		log.Printf("HistoryService: registro %s reimpreso y FINALIZADO", rec.ID)
	}()
	return &job, nil
}

package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"kiosko_estacionamiento/internal/billing"
	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
	"kiosko_estacionamiento/internal/ticket"
)

// PrinterTestResult es la respuesta de las pruebas de impresora. HTML viene
// cuando la impresora no es directa y la prueba se imprime desde el panel.
type PrinterTestResult struct {
	Exito   bool   `json:"exito"`
	Mensaje string `json:"mensaje"`
	HTML    string `json:"html,omitempty"`
}

type ConfigService struct {
	configRepo repository.ConfigurationRepository
	printer    PrinterDevice
	notifier   *Notifier
	clock      clock.Clock
}

func NewConfigService(configRepo repository.ConfigurationRepository, printer PrinterDevice, notifier *Notifier, clk clock.Clock) *ConfigService {
	return &ConfigService{configRepo: configRepo, printer: printer, notifier: notifier, clock: clk}
}

func (s *ConfigService) Get(ctx context.Context) (*domain.Configuracion, error) {
	return s.configRepo.Get(ctx)
}

func (s *ConfigService) UpdateTarifa(ctx context.Context, tarifa int64) (*domain.Configuracion, error) {
	if tarifa <= 0 {
		return nil, fmt.Errorf("tarifa inválida: %d", tarifa)
	}
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	cfg.TarifaHora = tarifa
	if err := s.configRepo.Save(ctx, cfg); err != nil {
		return nil, err
	}
	log.Printf("ConfigService: tarifa por hora actualizada a $%s", billing.FormatCLP(tarifa))
	s.notifier.Notify(domain.Notification{Tipo: domain.NotificacionExito, Mensaje: "Tarifa actualizada correctamente."})
	return cfg, nil
}

// UpdatePrinter reemplaza la configuración de impresora. El estado de
// conexión lo escriben sólo las verificaciones, así que se conserva.
func (s *ConfigService) UpdatePrinter(ctx context.Context, p domain.PrinterConfig) (*domain.Configuracion, error) {
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Impresora != nil && cfg.Impresora.Conexion != nil {
		p.Conexion = cfg.Impresora.Conexion
	} else {
		p.Conexion = nil
	}
	cfg.Impresora = &p
	if err := s.configRepo.Save(ctx, cfg); err != nil {
		s.notifier.Notify(domain.Notification{Tipo: domain.NotificacionError, Mensaje: "Error al guardar la configuración de impresora."})
		return nil, err
	}
	s.notifier.Notify(domain.Notification{Tipo: domain.NotificacionExito, Mensaje: "Configuración de impresora guardada correctamente."})
	return cfg, nil
}

func (s *ConfigService) UpdateConnection(ctx context.Context, estado domain.ConnectionState, mensaje string) error {
	return s.configRepo.UpdateConnection(ctx, domain.ConnectionUpdate(estado, mensaje, s.clock.Now()))
}

func (s *ConfigService) printerConfig(ctx context.Context) (*domain.PrinterConfig, error) {
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Impresora == nil {
		return nil, ErrPrinterNotConfigured
	}
	return cfg.Impresora, nil
}

// TestPrinter imprime un ticket de prueba con la configuración guardada y
// deja registrado el resultado en impresora/conexion.
func (s *ConfigService) TestPrinter(ctx context.Context) (*PrinterTestResult, error) {
	impresora, err := s.printerConfig(ctx)
	if err != nil {
		if err == ErrPrinterNotConfigured {
			return &PrinterTestResult{Mensaje: "No hay configuración de impresora disponible"}, nil
		}
		return nil, err
	}
	if err := s.UpdateConnection(ctx, domain.ConexionVerificando, ""); err != nil {
		log.Printf("ConfigService: %v", err)
	}

	data := domain.TicketData{
		Espacio:     "TEST",
		Patente:     "PRUEBA",
		HoraEntrada: "00:00:00",
		HoraSalida:  "00:00:00",
		TiempoTotal: "0m",
		Fecha:       billing.FormatDate(s.clock.Now()),
	}
	res := &PrinterTestResult{Exito: true, Mensaje: "Prueba de impresión y corte ejecutado."}
	if impresora.Direct() && s.printer != nil && s.printer.Enabled() {
		if err := s.printer.SendTicket(ctx, "prueba-"+uuid.NewString(), impresora.Puerto, ticket.RenderESCPOS(data, impresora)); err != nil {
			res = &PrinterTestResult{Mensaje: fmt.Sprintf("Conexión válida pero error al imprimir: %v", err)}
		}
	} else {
		page, err := ticket.RenderPrintPage(domain.PrintJob{ID: "prueba"}, data, impresora)
		if err != nil {
			return nil, err
		}
		res.HTML = page
	}

	estado, mensaje := domain.ConexionConectada, ""
	if !res.Exito {
		estado, mensaje = domain.ConexionError, res.Mensaje
	}
	if err := s.UpdateConnection(ctx, estado, mensaje); err != nil {
		log.Printf("ConfigService: %v", err)
	}
	return res, nil
}

// TestCut envía sólo la orden de corte configurada.
func (s *ConfigService) TestCut(ctx context.Context) (*PrinterTestResult, error) {
	impresora, err := s.printerConfig(ctx)
	if err != nil {
		if err == ErrPrinterNotConfigured {
			return &PrinterTestResult{Mensaje: "Configuración de impresora no disponible"}, nil
		}
		return nil, err
	}
	if !impresora.Direct() || s.printer == nil || !s.printer.Enabled() {
		return &PrinterTestResult{Mensaje: "La impresora no tiene un canal directo para recibir el corte."}, nil
	}
	if err := s.printer.SendTicket(ctx, "corte-"+uuid.NewString(), impresora.Puerto, ticket.RenderCutTest(impresora)); err != nil {
		log.Printf("ConfigService: %v", err)
		return &PrinterTestResult{Mensaje: "Error al enviar comando de corte."}, nil
	}
	return &PrinterTestResult{Exito: true, Mensaje: "Comando de corte enviado a la impresora."}, nil
}

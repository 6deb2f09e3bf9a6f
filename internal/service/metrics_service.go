package service

import (
	"context"
	"fmt"
	"time"

	"kiosko_estacionamiento/internal/billing"
	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

type MetricsService struct {
	historyRepo repository.HistoryRepository
	spaceRepo   repository.SpaceRepository
	configRepo  repository.ConfigurationRepository
	clock       clock.Clock
	loc         *time.Location
}

func NewMetricsService(historyRepo repository.HistoryRepository, spaceRepo repository.SpaceRepository, configRepo repository.ConfigurationRepository, clk clock.Clock, loc *time.Location) *MetricsService {
	return &MetricsService{historyRepo: historyRepo, spaceRepo: spaceRepo, configRepo: configRepo, clock: clk, loc: loc}
}

func (s *MetricsService) Calculate(ctx context.Context) (domain.Metrics, error) {
	historial, err := s.historyRepo.FindAll(ctx)
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("error al leer el historial: %w", err)
	}
	return billing.CalculateMetrics(historial, s.clock.Now(), s.loc), nil
}

// Dashboard junta las métricas con la ocupación actual y la tarifa vigente.
func (s *MetricsService) Dashboard(ctx context.Context) (*domain.DashboardSummary, error) {
	metricas, err := s.Calculate(ctx)
	if err != nil {
		return nil, err
	}
	spaces, err := s.spaceRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error al leer los espacios: %w", err)
	}
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("error al leer la configuración: %w", err)
	}
	return &domain.DashboardSummary{
		Metricas:   metricas,
		Espacios:   domain.CountSpaces(spaces),
		TarifaHora: cfg.Tarifa(),
	}, nil
}

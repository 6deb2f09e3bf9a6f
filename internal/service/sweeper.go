package service

import (
	"context"
	"log"
	"time"

	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
)

// StalenessSweeper marca VERIFICAR los espacios cuyo estado no se actualiza
// hace más de threshold. Sólo se escribe el estado.
type StalenessSweeper struct {
	spaceRepo repository.SpaceRepository
	clock     clock.Clock
	interval  time.Duration
	threshold time.Duration
	onChange  func()
}

func NewStalenessSweeper(spaceRepo repository.SpaceRepository, clk clock.Clock, interval, threshold time.Duration, onChange func()) *StalenessSweeper {
	return &StalenessSweeper{
		spaceRepo: spaceRepo,
		clock:     clk,
		interval:  interval,
		threshold: threshold,
		onChange:  onChange,
	}
}

func (w *StalenessSweeper) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()
	log.Printf("StalenessSweeper: revisando cada %s (umbral %s)", w.interval, w.threshold)

	for {
		select {
		case <-ctx.Done():
			log.Println("StalenessSweeper: detenido.")
			return
		case <-ticker.C:
			if _, err := w.SweepOnce(ctx); err != nil {
				log.Printf("StalenessSweeper: %v", err)
			}
		}
	}
}

// SweepOnce hace una pasada y devuelve los ids marcados.
func (w *StalenessSweeper) SweepOnce(ctx context.Context) ([]string, error) {
	spaces, err := w.spaceRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	now := w.clock.Now()
	var marcados []string
	for i := range spaces {
		space := &spaces[i]
		if space.Estado == domain.EstadoLibre || space.Estado == domain.EstadoVerificar {
			continue
		}
		if !space.UltimaActualizacion.Valid || now.Sub(space.UltimaActualizacion.Time) <= w.threshold {
			continue
		}
		space.Estado = domain.EstadoVerificar
		if err := w.spaceRepo.Save(ctx, space); err != nil {
			log.Printf("StalenessSweeper: no se pudo marcar %s: %v", space.ID, err)
			continue
		}
		log.Printf("StalenessSweeper: espacio %s sin actualizar desde %s, pasa a VERIFICAR",
			space.ID, space.UltimaActualizacion.Time.Format(time.RFC3339))
		marcados = append(marcados, space.ID)
	}
	if len(marcados) > 0 && w.onChange != nil {
		w.onChange()
	}
	return marcados, nil
}

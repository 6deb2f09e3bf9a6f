package service

import (
	"context"
	"log"
	"sync"
	"time"

	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
)

type pendingJob struct {
	job domain.PrintJob
	ch  chan domain.PrintResult
}

// PrintAckBroker lleva los trabajos de impresión que esperan la confirmación
// del panel. Cada trabajo se resuelve una sola vez.
type PrintAckBroker struct {
	clock clock.Clock

	mu      sync.Mutex
	pending map[string]*pendingJob
}

func NewPrintAckBroker(clk clock.Clock) *PrintAckBroker {
	return &PrintAckBroker{clock: clk, pending: make(map[string]*pendingJob)}
}

// Register deja el trabajo a la espera y devuelve el canal por el que llegará
// el resultado.
func (b *PrintAckBroker) Register(job domain.PrintJob) <-chan domain.PrintResult {
	ch := make(chan domain.PrintResult, 1)
	b.mu.Lock()
	b.pending[job.ID] = &pendingJob{job: job, ch: ch}
	b.mu.Unlock()
	return ch
}

// Job devuelve un trabajo todavía pendiente.
func (b *PrintAckBroker) Job(id string) (domain.PrintJob, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[id]
	if !ok {
		return domain.PrintJob{}, false
	}
	return p.job, true
}

// Resolve entrega el resultado de un trabajo. Devuelve false si el trabajo no
// existe o ya fue resuelto o venció.
func (b *PrintAckBroker) Resolve(id string, result domain.PrintResult) bool {
	b.mu.Lock()
	p, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
		p.ch <- result
	}
	b.mu.Unlock()
	if !ok {
		return false
	}
	log.Printf("PrintAckBroker: trabajo %s resuelto: %s", id, result)
	return true
}

// Await espera el resultado hasta timeout.
func (b *PrintAckBroker) Await(ctx context.Context, id string, ch <-chan domain.PrintResult, timeout time.Duration) domain.PrintResult {
	return b.Wait(ctx, id, ch, b.clock.After(timeout))
}

// Wait espera el resultado hasta que venza deadline o termine ctx; en ambos
// casos el trabajo se descarta y el resultado es PrintTimedOut.
func (b *PrintAckBroker) Wait(ctx context.Context, id string, ch <-chan domain.PrintResult, deadline <-chan time.Time) domain.PrintResult {
	select {
	case r := <-ch:
		return r
	case <-deadline:
	case <-ctx.Done():
	}
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
	// Un Resolve pudo ganar la carrera antes del delete; su envío ocurre bajo
	// el mismo lock, así que ya está en el canal.
	select {
	case r := <-ch:
		return r
	default:
	}
	log.Printf("PrintAckBroker: trabajo %s sin confirmación", id)
	return domain.PrintTimedOut
}

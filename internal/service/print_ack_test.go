package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
)

func TestPrintAckBrokerResolvesOnce(t *testing.T) {
	b := NewPrintAckBroker(clock.NewFake(ahora))
	assert.False(t, b.Resolve("nada", domain.PrintConfirmed))

	ch := b.Register(domain.PrintJob{ID: "t1", Espacio: "A1"})
	job, ok := b.Job("t1")
	assert.True(t, ok)
	assert.Equal(t, "A1", job.Espacio)

	assert.True(t, b.Resolve("t1", domain.PrintCancelled))
	assert.False(t, b.Resolve("t1", domain.PrintConfirmed))
	_, ok = b.Job("t1")
	assert.False(t, ok)

	got := b.Wait(context.Background(), "t1", ch, nil)
	assert.Equal(t, domain.PrintCancelled, got)
}

func TestPrintAckBrokerTimeoutDiscardsJob(t *testing.T) {
	clk := clock.NewFake(ahora)
	b := NewPrintAckBroker(clk)
	ch := b.Register(domain.PrintJob{ID: "t1"})

	deadline := clk.After(30 * time.Second)
	clk.Advance(30 * time.Second)

	assert.Equal(t, domain.PrintTimedOut, b.Wait(context.Background(), "t1", ch, deadline))
	assert.False(t, b.Resolve("t1", domain.PrintConfirmed))
}

func TestPrintAckBrokerContextCancel(t *testing.T) {
	b := NewPrintAckBroker(clock.NewFake(ahora))
	ch := b.Register(domain.PrintJob{ID: "t1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, domain.PrintTimedOut, b.Wait(ctx, "t1", ch, nil))
	_, ok := b.Job("t1")
	assert.False(t, ok)
}

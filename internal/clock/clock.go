// Package clock permite inyectar el tiempo en los servicios del kiosko.
// Producción usa Real(); las pruebas usan NewFake() y avanzan el reloj a mano.
package clock

import "time"

// Clock cubre las operaciones de tiempo que usan los servicios: temporizadores
// del debouncer de notificaciones, el barrido de inactividad y la espera de
// confirmación de impresión.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	// AfterFunc ejecuta f cuando pasa d. El Timer devuelto no tiene canal.
	AfterFunc(d time.Duration, f func()) *Timer
	// NewTicker entra en pánico si d <= 0, igual que time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Timer es un evento programado que puede cancelarse o reprogramarse.
type Timer struct {
	stop  func() bool
	reset func(time.Duration) bool
}

// Stop devuelve true si el timer estaba pendiente.
func (t *Timer) Stop() bool { return t.stop() }

// Reset reprograma el timer para dentro de d. Devuelve true si seguía pendiente.
func (t *Timer) Reset(d time.Duration) bool { return t.reset(d) }

// Ticker entrega ticks periódicos por C (capacidad 1, se descartan los atrasados).
type Ticker struct {
	C    <-chan time.Time
	stop func()
}

func (t *Ticker) Stop() { t.stop() }

// Real devuelve un Clock respaldado por el paquete time.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop, reset: t.Reset}
}

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}

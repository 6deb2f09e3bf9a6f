package clock

import (
	"sync"
	"time"
)

// Fake es un Clock determinista. El tiempo sólo avanza con Advance; los
// callbacks de AfterFunc se ejecutan en la goroutine que llama a Advance, en
// orden de vencimiento y con Now() fijado al instante de cada vencimiento.
// No llamar a Advance desde dentro de un callback.
type Fake struct {
	mu        sync.Mutex
	now       time.Time
	waiters   []*waiter
	registros *sync.Cond
}

type waiter struct {
	deadline time.Time
	ch       chan time.Time
	fn       func()
	period   time.Duration
	active   bool
}

func NewFake(start time.Time) *Fake {
	f := &Fake{now: start}
	f.registros = sync.NewCond(&f.mu)
	return f
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set mueve el reloj sin disparar nada. Útil para preparar datos de prueba.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if d <= 0 {
		ch <- f.now
		return ch
	}
	f.addLocked(&waiter{deadline: f.now.Add(d), ch: ch, active: true})
	return ch
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) *Timer {
	w := &waiter{fn: fn}
	f.mu.Lock()
	w.deadline = f.now.Add(d)
	w.active = true
	f.addLocked(w)
	f.mu.Unlock()
	if d <= 0 {
		f.Advance(0)
	}
	return &Timer{
		stop: func() bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			was := w.active
			w.active = false
			f.removeLocked(w)
			return was
		},
		reset: func(d time.Duration) bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			was := w.active
			w.deadline = f.now.Add(d)
			if !was {
				w.active = true
				f.addLocked(w)
			}
			return was
		},
	}
}

func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: intervalo no positivo para NewTicker")
	}
	ch := make(chan time.Time, 1)
	w := &waiter{ch: ch, period: d, active: true}
	f.mu.Lock()
	w.deadline = f.now.Add(d)
	f.addLocked(w)
	f.mu.Unlock()
	return &Ticker{
		C: ch,
		stop: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			w.active = false
			f.removeLocked(w)
		},
	}
}

// Advance adelanta el reloj d y dispara, en orden, todo lo que venza.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.nextDueLocked(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = next.deadline
		fireAt := next.deadline
		if next.period > 0 {
			next.deadline = next.deadline.Add(next.period)
		} else {
			next.active = false
			f.removeLocked(next)
		}
		f.mu.Unlock()

		if next.fn != nil {
			next.fn()
			continue
		}
		select {
		case next.ch <- fireAt:
		default:
		}
	}
}

// BlockUntil espera hasta que haya al menos n temporizadores pendientes.
// Evita la carrera entre una goroutine que registra un ticker y la prueba
// que avanza el reloj.
func (f *Fake) BlockUntil(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.waiters) < n {
		f.registros.Wait()
	}
}

// Pending devuelve la cantidad de temporizadores activos.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

func (f *Fake) addLocked(w *waiter) {
	f.waiters = append(f.waiters, w)
	f.registros.Broadcast()
}

func (f *Fake) removeLocked(w *waiter) {
	for i, x := range f.waiters {
		if x == w {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			return
		}
	}
}

func (f *Fake) nextDueLocked(target time.Time) *waiter {
	var next *waiter
	for _, w := range f.waiters {
		if w.deadline.After(target) {
			continue
		}
		if next == nil || w.deadline.Before(next.deadline) {
			next = w
		}
	}
	return next
}

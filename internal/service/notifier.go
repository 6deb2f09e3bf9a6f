package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
)

// Broadcaster entrega mensajes a todos los paneles conectados. Lo implementa
// el hub WebSocket; se declara aquí para evitar la dependencia circular.
type Broadcaster interface {
	Broadcast(msg domain.DashboardMessage)
}

// Notifier filtra avisos repetidos. Una clave tipo-mensaje vista dentro de la
// ventana se descarta. La ventana es única para todas las claves y se reinicia
// con cada aviso mostrado: se vacía cuando pasa `window` sin avisos nuevos.
type Notifier struct {
	clock     clock.Clock
	out       Broadcaster
	autoDelay time.Duration
	window    time.Duration

	mu              sync.Mutex
	recent          map[string]struct{}
	clearTimer      *clock.Timer
	suppressedUntil time.Time
}

func NewNotifier(clk clock.Clock, out Broadcaster, autoDelay, window time.Duration) *Notifier {
	return &Notifier{
		clock:     clk,
		out:       out,
		autoDelay: autoDelay,
		window:    window,
		recent:    make(map[string]struct{}),
	}
}

// Notify muestra de inmediato un aviso originado por el operador. Devuelve
// false si era un duplicado reciente.
func (n *Notifier) Notify(note domain.Notification) bool {
	n.mu.Lock()
	shown := n.insertLocked(note)
	n.mu.Unlock()
	if shown {
		n.emit(note)
	}
	return shown
}

// NotifyAuto programa un aviso derivado de los cambios de estado. Se muestra
// tras autoDelay si para entonces la clave sigue libre y no hay supresión.
func (n *Notifier) NotifyAuto(note domain.Notification) {
	n.mu.Lock()
	_, dup := n.recent[note.Key()]
	n.mu.Unlock()
	if dup || n.Suppressed() {
		return
	}
	n.clock.AfterFunc(n.autoDelay, func() {
		if n.Suppressed() {
			return
		}
		n.mu.Lock()
		shown := n.insertLocked(note)
		n.mu.Unlock()
		if shown {
			n.emit(note)
		}
	})
}

// SuppressAutomatic descarta los avisos automáticos durante d. Los avisos
// manuales no se ven afectados.
func (n *Notifier) SuppressAutomatic(d time.Duration) {
	until := n.clock.Now().Add(d)
	n.mu.Lock()
	if until.After(n.suppressedUntil) {
		n.suppressedUntil = until
	}
	n.mu.Unlock()
}

func (n *Notifier) Suppressed() bool {
	now := n.clock.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	return now.Before(n.suppressedUntil)
}

func (n *Notifier) insertLocked(note domain.Notification) bool {
	key := note.Key()
	if _, ok := n.recent[key]; ok {
		return false
	}
	n.recent[key] = struct{}{}
	if n.clearTimer == nil {
		n.clearTimer = n.clock.AfterFunc(n.window, n.clear)
	} else {
		n.clearTimer.Reset(n.window)
	}
	return true
}

func (n *Notifier) clear() {
	n.mu.Lock()
	n.recent = make(map[string]struct{})
	n.mu.Unlock()
}

func (n *Notifier) emit(note domain.Notification) {
	if n.out == nil {
		return
	}
	n.out.Broadcast(domain.DashboardMessage{Tipo: domain.MensajeNotificacion, Datos: note})
}

// TransitionNotification traduce un cambio de estado de un espacio al aviso
// que ve el operador. Devuelve false si el cambio no se anuncia.
func TransitionNotification(id string, prev, next domain.SpaceState) (domain.Notification, bool) {
	if prev == next {
		return domain.Notification{}, false
	}
	espacio := strings.ToUpper(id)
	switch {
	case prev == domain.EstadoLibre && next == domain.EstadoOcupado:
		return domain.Notification{Tipo: domain.NotificacionInfo, Mensaje: fmt.Sprintf("🚗 Espacio %s ocupado", espacio)}, true
	case (prev == domain.EstadoOcupado || prev == domain.EstadoPendiente) && next == domain.EstadoLibre:
		return domain.Notification{Tipo: domain.NotificacionExito, Mensaje: fmt.Sprintf("✅ Espacio %s disponible", espacio)}, true
	case prev == domain.EstadoOcupado && next == domain.EstadoPendiente:
		return domain.Notification{Tipo: domain.NotificacionAviso, Mensaje: fmt.Sprintf("⏳ Espacio %s listo para ticket", espacio)}, true
	case next == domain.EstadoVerificar:
		return domain.Notification{Tipo: domain.NotificacionError, Mensaje: fmt.Sprintf("⚠️ Espacio %s requiere verificación", espacio)}, true
	}
	return domain.Notification{}, false
}

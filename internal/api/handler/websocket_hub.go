package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"kiosko_estacionamiento/internal/api/middleware"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHub reparte los mensajes del kiosko a todos los paneles
// conectados. Implementa service.Broadcaster.
type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

func (h *WebSocketHub) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			log.Println("WebSocketHub: detenido.")
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			log.Printf("WebSocketHub: panel conectado. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			log.Printf("WebSocketHub: panel desconectado. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Printf("WebSocketHub: error al escribir a un panel: %v", err)
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// join registra la conexión; devuelve false si el hub ya se detuvo.
func (h *WebSocketHub) join(conn *websocket.Conn) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

func (h *WebSocketHub) leave(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
		conn.Close()
	}
}

// Clients devuelve cuántos paneles están conectados.
func (h *WebSocketHub) Clients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHub) Broadcast(msg domain.DashboardMessage) {
	message, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WebSocketHub: error al serializar '%s': %v", msg.Tipo, err)
		return
	}
	select {
	case h.broadcast <- message:
	default:
		log.Printf("WebSocketHub: cola llena, se descarta '%s'", msg.Tipo)
	}
}

// WebSocketHandler atiende GET /ws detrás de AuthenticateWebSocket: envía la
// foto actual de los espacios y después escucha las confirmaciones de
// impresión del panel. Cada confirmación vuelve a revisar la lista de correos.
type WebSocketHandler struct {
	hub          *WebSocketHub
	snapshot     func() []domain.Space
	acks         *service.PrintAckBroker
	emailAllowed func(string) bool
}

func NewWebSocketHandler(hub *WebSocketHub, snapshot func() []domain.Space, acks *service.PrintAckBroker, emailAllowed func(string) bool) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, snapshot: snapshot, acks: acks, emailAllowed: emailAllowed}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	email := c.GetString(middleware.OperatorEmailKey)
	if email == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Se requiere iniciar sesión"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocketHandler: no se pudo abrir el WebSocket: %v", err)
		return
	}

	// La foto inicial se escribe antes de registrar la conexión; desde ahí
	// sólo escribe el hub.
	if h.snapshot != nil {
		if err := conn.WriteJSON(domain.DashboardMessage{Tipo: domain.MensajeEstacionamientos, Datos: h.snapshot()}); err != nil {
			log.Printf("WebSocketHandler: error al enviar la foto inicial: %v", err)
			conn.Close()
			return
		}
	}
	if !h.hub.join(conn) {
		log.Println("WebSocketHandler: el hub está detenido, se cierra la conexión.")
		conn.Close()
		return
	}

	go func() {
		defer h.hub.leave(conn)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocketHandler: %v", err)
				}
				return
			}
			h.handleInbound(email, data)
		}
	}()
}

func (h *WebSocketHandler) handleInbound(email string, data []byte) {
	if h.emailAllowed != nil && !h.emailAllowed(email) {
		log.Printf("WebSocketHandler: confirmación ignorada, '%s' ya no está autorizado", email)
		return
	}
	var msg domain.DashboardInbound
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("WebSocketHandler: mensaje inválido del panel: %v", err)
		return
	}
	var result domain.PrintResult
	switch msg.Tipo {
	case domain.MensajeTicketImpreso:
		result = domain.PrintConfirmed
	case domain.MensajeImpresionCancel:
		result = domain.PrintCancelled
	default:
		log.Printf("WebSocketHandler: tipo de mensaje ignorado: '%s'", msg.Tipo)
		return
	}
	if !h.acks.Resolve(msg.ID, result) {
		log.Printf("WebSocketHandler: confirmación para un trabajo desconocido o vencido: %s", msg.ID)
	}
}

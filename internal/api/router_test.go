package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"kiosko_estacionamiento/internal/api/handler"
	"kiosko_estacionamiento/internal/api/middleware"
	"kiosko_estacionamiento/internal/billing"
	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/repository"
	"kiosko_estacionamiento/internal/repository/memory"
	"kiosko_estacionamiento/internal/service"
)

var ahora = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

type testServer struct {
	router  *gin.Engine
	spaces  repository.SpaceRepository
	history repository.HistoryRepository
	acks    *service.PrintAckBroker
	hub     *handler.WebSocketHub
	watcher *service.SnapshotWatcher
	allowed map[string]bool
	mu      sync.Mutex
	token   string
}

func (ts *testServer) emailAllowed(email string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.allowed[email]
}

func (ts *testServer) revoke(email string) {
	ts.mu.Lock()
	delete(ts.allowed, email)
	ts.mu.Unlock()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clk := clock.NewFake(ahora)

	entrada := domain.Space{ID: "a2"}
	entrada.Reset()
	entrada.Estado = domain.EstadoOcupado
	entrada.Patente = null.StringFrom("ABCD12")
	entrada.HoraEntrada = null.StringFrom("15:20:00")
	entrada.Touch(ahora)

	ts := &testServer{
		spaces:  memory.NewSpaceRepository(entrada),
		history: memory.NewHistoryRepository(),
		hub:     handler.NewWebSocketHub(),
		allowed: map[string]bool{"admin@kiosko.cl": true, "caja@kiosko.cl": true},
	}
	require.NoError(t, ts.spaces.EnsureSeeded(context.Background(), []string{"a1", "a2"}))
	configRepo := memory.NewConfigurationRepository(nil)
	notifier := service.NewNotifier(clk, ts.hub, 100*time.Millisecond, 3*time.Second)
	ts.acks = service.NewPrintAckBroker(clk)

	spaces := service.NewSpaceService(ts.spaces, ts.history, configRepo, notifier, ts.acks, ts.hub, nil, clk, service.SpaceOptions{
		Location: time.UTC, Policy: billing.PolicyHour, AckTimeout: 30 * time.Second, Cooldown: 2 * time.Second,
	})
	ts.watcher = service.NewSnapshotWatcher(ts.spaces, notifier, ts.hub, clk, 5*time.Second)
	auth := service.NewAuthService(memory.NewOperatorRepository(), "secreto", time.Hour, ts.emailAllowed, clk)
	require.NoError(t, auth.EnsureAdmin(context.Background(), "admin@kiosko.cl", "clave123"))

	ts.router = SetupRouter(Services{
		Auth:     auth,
		Spaces:   spaces,
		History:  service.NewHistoryService(ts.history, configRepo, ts.acks, clk, time.UTC, 30*time.Second),
		Config:   service.NewConfigService(configRepo, nil, notifier, clk),
		Metrics:  service.NewMetricsService(ts.history, ts.spaces, configRepo, clk, time.UTC),
		LPR:      service.NewLPRService(nil, spaces),
		Acks:     ts.acks,
		Hub:      ts.hub,
		Snapshot: ts.watcher.Current,
	}, middleware.NewAuthMiddleware(auth))

	ts.token = ts.login(t, "admin@kiosko.cl", "clave123")
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res domain.AuthResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.Token
}

func TestAuthRoutes(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/estacionamientos", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/auth/me", ts.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)

	w = ts.do(t, http.MethodPost, "/auth/register", ts.token, gin.H{"email": "caja@kiosko.cl", "displayName": "Caja", "password": "clave123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	caja := ts.login(t, "caja@kiosko.cl", "clave123")
	w = ts.do(t, http.MethodPost, "/auth/register", caja, gin.H{"email": "otra@kiosko.cl", "displayName": "Otra", "password": "clave123"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(t, http.MethodPut, "/api/v1/configuracion/tarifa", caja, gin.H{"tarifaHora": 1500})
	assert.Equal(t, http.StatusForbidden, w.Code)

	ts.revoke("caja@kiosko.cl")
	w = ts.do(t, http.MethodGet, "/api/v1/estacionamientos", caja, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "el correo salió de la lista autorizada")
}

func TestSpaceFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/estacionamientos", ts.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ocupados":1`)

	w = ts.do(t, http.MethodPost, "/api/v1/estacionamientos/a1/finalizar", ts.token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/estacionamientos/a2/finalizar", ts.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var space domain.Space
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &space))
	assert.Equal(t, domain.EstadoPendiente, space.Estado)
	assert.Equal(t, int64(1000), space.Costo.Int64)

	w = ts.do(t, http.MethodPost, "/api/v1/estacionamientos/a2/imprimir", ts.token, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var job domain.PrintJob
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))

	w = ts.do(t, http.MethodGet, "/api/v1/tickets/"+job.ID, ts.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "ABCD12")

	w = ts.do(t, http.MethodPost, "/api/v1/tickets/"+job.ID+"/confirmacion", ts.token, gin.H{"tipo": "ticket_impreso"})
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodPost, "/api/v1/tickets/"+job.ID+"/confirmacion", ts.token, gin.H{"tipo": "ticket_impreso"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Eventually(t, func() bool {
		s, _ := ts.spaces.FindByID(context.Background(), "a2")
		return s.Estado == domain.EstadoLibre
	}, time.Second, 5*time.Millisecond)

	w = ts.do(t, http.MethodGet, "/api/v1/historial", ts.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page domain.HistoryPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Registros, 1)
	assert.Equal(t, "A2", page.Registros[0].Espacio)

	w = ts.do(t, http.MethodGet, "/api/v1/historial/exportar", ts.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "historial_estacionamiento_2026-03-10.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Espacio,Patente"))

	w = ts.do(t, http.MethodGet, "/api/v1/historial/"+page.Registros[0].ID+"/reimprimir", ts.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodPost, "/api/v1/historial/"+page.Registros[0].ID+"/reimprimir", ts.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"espacio"`)

	w = ts.do(t, http.MethodGet, "/api/v1/dashboard", ts.token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPlateRoute(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/estacionamientos/a2/patente", ts.token, gin.H{"patente": "wxyz98"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "WXYZ98")

	w = ts.do(t, http.MethodPost, "/api/v1/estacionamientos/a2/patente", ts.token, gin.H{"image_base64": "aW1n"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/estacionamientos/a2/patente", ts.token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigRoutes(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPut, "/api/v1/configuracion/tarifa", ts.token, gin.H{"tarifaHora": 1500})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/v1/configuracion", ts.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tarifaHora":1500`)

	w = ts.do(t, http.MethodPost, "/api/v1/configuracion/impresora/prueba", ts.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No hay configuración de impresora disponible")
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func TestWebSocketRequiresAuthorizedOperator(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ts.hub.Start(ctx)

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, "no-es-un-token"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), http.Header{"Authorization": {"Bearer " + ts.token}})
	require.NoError(t, err)
	var first domain.DashboardInbound
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, domain.MensajeEstacionamientos, first.Tipo)

	// Un correo retirado de la lista ya no confirma impresiones ni vuelve a conectarse.
	require.Eventually(t, func() bool { return ts.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	ts.revoke("admin@kiosko.cl")
	ts.acks.Register(domain.PrintJob{ID: "t2"})
	require.NoError(t, conn.WriteJSON(domain.DashboardInbound{Tipo: domain.MensajeTicketImpreso, ID: "t2"}))
	require.Never(t, func() bool {
		_, ok := ts.acks.Job("t2")
		return !ok
	}, 200*time.Millisecond, 10*time.Millisecond)
	conn.Close()

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, ts.token), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketAfterHubStopped(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		ts.hub.Start(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ts.token), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first domain.DashboardInbound
	require.NoError(t, conn.ReadJSON(&first))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var ne net.Error
	assert.False(t, errors.As(err, &ne) && ne.Timeout(), "la conexión debe cerrarse, no quedar colgada: %v", err)
}

func TestWebSocketSendsSnapshotAndResolvesAcks(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.watcher.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ts.hub.Start(ctx)

	srv := httptest.NewServer(ts.router)
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ts.token), nil)
	require.NoError(t, err)
	defer conn.Close()

	var first struct {
		Tipo  string         `json:"tipo"`
		Datos []domain.Space `json:"datos"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, domain.MensajeEstacionamientos, first.Tipo)
	assert.Len(t, first.Datos, 2)

	ts.acks.Register(domain.PrintJob{ID: "t1"})
	require.NoError(t, conn.WriteJSON(domain.DashboardInbound{Tipo: domain.MensajeImpresionCancel, ID: "t1"}))
	require.Eventually(t, func() bool {
		_, ok := ts.acks.Job("t1")
		return !ok
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return ts.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	ts.hub.Broadcast(domain.DashboardMessage{Tipo: domain.MensajeNotificacion, Datos: domain.Notification{Tipo: domain.NotificacionInfo, Mensaje: "hola"}})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	for {
		var note struct {
			Tipo  string          `json:"tipo"`
			Datos json.RawMessage `json:"datos"`
		}
		require.NoError(t, conn.ReadJSON(&note))
		if note.Tipo == domain.MensajeNotificacion {
			assert.JSONEq(t, `{"tipo":"info","mensaje":"hola"}`, string(note.Datos))
			break
		}
	}
}

package api

import (
	"github.com/gin-gonic/gin"

	"kiosko_estacionamiento/internal/api/handler"
	"kiosko_estacionamiento/internal/api/middleware"
	"kiosko_estacionamiento/internal/domain"
	"kiosko_estacionamiento/internal/service"
)

// Services agrupa lo que el router expone.
type Services struct {
	Auth     *service.AuthService
	Spaces   *service.SpaceService
	History  *service.HistoryService
	Config   *service.ConfigService
	Metrics  *service.MetricsService
	LPR      *service.LPRService
	Acks     *service.PrintAckBroker
	Hub      *handler.WebSocketHub
	Snapshot func() []domain.Space
}

func SetupRouter(s Services, authMw *middleware.AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	wsHandler := handler.NewWebSocketHandler(s.Hub, s.Snapshot, s.Acks, s.Auth.EmailAllowed)
	r.GET("/ws", authMw.AuthenticateWebSocket(), authMw.RequireAllowedEmail(), wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(s.Auth)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/register", authMw.Authenticate(), authMw.AuthorizeRole(service.RoleAdmin), authHandler.Register)
		authRoutes.GET("/me", authMw.Authenticate(), authHandler.Me)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate(), authMw.RequireAllowedEmail())
	{
		spaceH := handler.NewSpaceHandler(s.Spaces, s.LPR)
		spaces := v1.Group("/estacionamientos")
		{
			spaces.GET("", spaceH.List)
			spaces.GET("/:id", spaceH.Get)
			spaces.POST("/:id/finalizar", spaceH.Finalize)
			spaces.POST("/:id/imprimir", spaceH.Print)
			spaces.POST("/:id/verificar", spaceH.Verify)
			spaces.POST("/:id/patente", spaceH.Plate)
		}

		ticketH := handler.NewTicketHandler(s.Acks)
		v1.GET("/tickets/:id", ticketH.Page)
		v1.POST("/tickets/:id/confirmacion", ticketH.Ack)

		historyH := handler.NewHistoryHandler(s.History)
		history := v1.Group("/historial")
		{
			history.GET("", historyH.List)
			history.GET("/exportar", historyH.Export)
			history.POST("/:id/reimprimir", historyH.Reprint)
		}

		metricsH := handler.NewMetricsHandler(s.Metrics)
		v1.GET("/metricas", metricsH.Metrics)
		v1.GET("/dashboard", metricsH.Dashboard)

		configH := handler.NewConfigHandler(s.Config)
		cfg := v1.Group("/configuracion")
		{
			cfg.GET("", configH.Get)
			cfg.PUT("/tarifa", authMw.AuthorizeRole(service.RoleAdmin), configH.UpdateTarifa)
			cfg.PUT("/impresora", authMw.AuthorizeRole(service.RoleAdmin), configH.UpdatePrinter)
			cfg.POST("/impresora/prueba", configH.TestPrinter)
			cfg.POST("/impresora/corte", configH.TestCut)
		}
	}
	return r
}

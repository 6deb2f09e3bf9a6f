package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"kiosko_estacionamiento/internal/api"
	"kiosko_estacionamiento/internal/api/handler"
	"kiosko_estacionamiento/internal/api/middleware"
	"kiosko_estacionamiento/internal/billing"
	"kiosko_estacionamiento/internal/clock"
	"kiosko_estacionamiento/internal/config"
	"kiosko_estacionamiento/internal/iot"
	"kiosko_estacionamiento/internal/repository"
	"kiosko_estacionamiento/internal/repository/memory"
	"kiosko_estacionamiento/internal/repository/postgresql"
	"kiosko_estacionamiento/internal/service"
)

type repositories struct {
	spaces    repository.SpaceRepository
	history   repository.HistoryRepository
	config    repository.ConfigurationRepository
	operators repository.OperatorRepository
	eventLog  repository.DeviceEventsLogRepository
	close     func()
}

func openRepositories(ctx context.Context, cfg *config.Config) repositories {
	if cfg.Store == "memory" {
		log.Println("Almacenamiento en memoria (STORE=memory); los datos se pierden al reiniciar.")
		return repositories{
			spaces:    memory.NewSpaceRepository(),
			history:   memory.NewHistoryRepository(),
			config:    memory.NewConfigurationRepository(nil),
			operators: memory.NewOperatorRepository(),
			eventLog:  memory.NewDeviceEventsLogRepository(),
			close:     func() {},
		}
	}

	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("No se pudo conectar a la base de datos: %v", err)
	}
	if err := postgresql.Migrate(ctx, db); err != nil {
		log.Fatalf("No se pudo preparar el esquema: %v", err)
	}
	log.Println("Conectado a la base de datos.")
	return repositories{
		spaces:    postgresql.NewPgSpaceRepository(db),
		history:   postgresql.NewPgHistoryRepository(db),
		config:    postgresql.NewPgConfigurationRepository(db),
		operators: postgresql.NewPgOperatorRepository(db),
		eventLog:  postgresql.NewPgDeviceEventsLogRepository(db),
		close:     func() { db.Close() },
	}
}

func main() {
	cfg := config.Load()
	log.Println("Configuración cargada.")

	policy, err := billing.ParseCostPolicy(cfg.CostPolicy)
	if err != nil {
		log.Fatalf("COST_POLICY inválida: %v", err)
	}
	loc := cfg.Location()
	clk := clock.Real()
	timing := cfg.Timing

	repos := openRepositories(context.Background(), cfg)
	defer repos.close()
	if err := repos.spaces.EnsureSeeded(context.Background(), cfg.Spaces); err != nil {
		log.Fatalf("No se pudieron crear los espacios: %v", err)
	}

	// Clientes AWS: canal de la impresora, cola de sensores y reconocimiento de patentes.
	var printer service.PrinterDevice
	var detector service.TextDetector
	var sqsClient *sqs.Client
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Printf("Aviso: no se pudo cargar la configuración de AWS, se desactivan IoT, SQS y LPR: %v", err)
	} else {
		log.Println("Configuración de AWS cargada para la región:", cfg.AWSRegion)
		if cfg.IoTMQTTEndpoint != "" {
			endpoint := cfg.IoTMQTTEndpoint
			if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
				endpoint = "https://" + endpoint
			}
			iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
				o.BaseEndpoint = aws.String(endpoint)
			})
			printer = service.NewPrinterChannel(iotDataPlaneClient, cfg.PrinterTopic)
		}
		if cfg.SQSEventQueueURL != "" {
			sqsClient = sqs.NewFromConfig(awsSDKCfg)
		}
		detector = rekognition.NewFromConfig(awsSDKCfg)
	}

	hub := handler.NewWebSocketHub()
	notifier := service.NewNotifier(clk, hub, timing.Notifications.GetAutoDelay(), timing.Notifications.GetWindow())
	acks := service.NewPrintAckBroker(clk)

	spaceService := service.NewSpaceService(repos.spaces, repos.history, repos.config, notifier, acks, hub, printer, clk, service.SpaceOptions{
		Location:   loc,
		Policy:     policy,
		AckTimeout: timing.Print.GetAckTimeout(),
		Cooldown:   timing.Notifications.GetCooldown(),
	})
	watcher := service.NewSnapshotWatcher(repos.spaces, notifier, hub, clk, timing.Snapshot.GetPollInterval())
	spaceService.OnChange(watcher.Trigger)
	sweeper := service.NewStalenessSweeper(repos.spaces, clk, timing.Staleness.GetSweepInterval(), timing.Staleness.GetThreshold(), watcher.Trigger)

	historyService := service.NewHistoryService(repos.history, repos.config, acks, clk, loc, timing.Print.GetAckTimeout())
	configService := service.NewConfigService(repos.config, printer, notifier, clk)
	metricsService := service.NewMetricsService(repos.history, repos.spaces, repos.config, clk, loc)
	sensorService := service.NewSensorService(spaceService, repos.eventLog, clk)
	lprService := service.NewLPRService(detector, spaceService)
	authService := service.NewAuthService(repos.operators, cfg.JWTSecret, cfg.JWTExpirationHours, cfg.EmailAllowed, clk)
	authMiddleware := middleware.NewAuthMiddleware(authService)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("No se pudo crear el administrador inicial: %v", err)
		}
	}

	var wg sync.WaitGroup
	bgCtx, cancelBackground := context.WithCancel(context.Background())
	run := func(name string, f func(ctx context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(bgCtx)
			log.Printf("%s detenido.", name)
		}()
	}

	run("WebSocketHub", hub.Start)
	run("SnapshotWatcher", watcher.Run)
	run("StalenessSweeper", sweeper.Run)

	if sqsClient == nil {
		log.Println("AVISO: SQS_EVENT_QUEUE_URL no configurada. No se leerá la cola de sensores.")
	} else {
		consumer := iot.NewSQSConsumer(sqsClient, cfg.SQSEventQueueURL, sensorService)
		run("SQSConsumer", consumer.Start)
	}
	if cfg.MQTTBroker != "" {
		subscriber := iot.NewMQTTSubscriber(cfg.MQTTBroker, "kiosko-estacionamiento", cfg.MQTTSensorTopic, sensorService)
		run("MQTTSubscriber", func(ctx context.Context) {
			if err := subscriber.Start(ctx); err != nil {
				log.Printf("MQTTSubscriber: %v", err)
			}
		})
	}

	router := api.SetupRouter(api.Services{
		Auth:     authService,
		Spaces:   spaceService,
		History:  historyService,
		Config:   configService,
		Metrics:  metricsService,
		LPR:      lprService,
		Acks:     acks,
		Hub:      hub,
		Snapshot: watcher.Current,
	}, authMiddleware)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}
	go func() {
		log.Printf("Servidor escuchando en el puerto %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error en ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Apagando el servidor...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("El servidor se cerró de forma forzada: %v", err)
	}
	cancelBackground()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	select {
	case <-done:
		log.Println("Tareas en segundo plano detenidas.")
	case <-time.After(5 * time.Second):
		log.Println("Las tareas en segundo plano no se detuvieron a tiempo.")
	}
	log.Println("Servidor apagado.")
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort string
	Store      string // "postgres" o "memory"
	DBDriver   string // "pgx" o "postgres" (lib/pq)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion        string
	SQSEventQueueURL string
	IoTMQTTEndpoint  string
	PrinterTopic     string
	MQTTBroker       string
	MQTTSensorTopic  string

	JWTSecret          string
	JWTExpirationHours time.Duration
	AllowedEmails      []string
	AdminEmail         string
	AdminPassword      string

	Timezone   string
	CostPolicy string
	Spaces     []string

	Timing TimingConfig
}

// TimingConfig son los intervalos del kiosko. Se leen del YAML opcional
// (KIOSKO_CONFIG_FILE) y cada getter cae a su valor por defecto.
type TimingConfig struct {
	Staleness     StalenessConfig     `yaml:"staleness"`
	Print         PrintConfig         `yaml:"print"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Snapshot      SnapshotConfig      `yaml:"snapshot"`
}

type StalenessConfig struct {
	SweepInterval string `yaml:"sweep_interval"` // ej: "60s"
	Threshold     string `yaml:"threshold"`      // ej: "35m"
}

type PrintConfig struct {
	AckTimeout string `yaml:"ack_timeout"`
}

type NotificationsConfig struct {
	AutoDelay string `yaml:"auto_delay"`
	Window    string `yaml:"window"`
	Cooldown  string `yaml:"cooldown"`
}

type SnapshotConfig struct {
	PollInterval string `yaml:"poll_interval"`
}

func parseOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (s StalenessConfig) GetSweepInterval() time.Duration { return parseOr(s.SweepInterval, time.Minute) }
func (s StalenessConfig) GetThreshold() time.Duration     { return parseOr(s.Threshold, 35*time.Minute) }

// GetAckTimeout es cuánto se espera la confirmación de un ticket.
func (p PrintConfig) GetAckTimeout() time.Duration { return parseOr(p.AckTimeout, 30*time.Second) }

func (n NotificationsConfig) GetAutoDelay() time.Duration {
	return parseOr(n.AutoDelay, 100*time.Millisecond)
}
func (n NotificationsConfig) GetWindow() time.Duration   { return parseOr(n.Window, 3*time.Second) }
func (n NotificationsConfig) GetCooldown() time.Duration { return parseOr(n.Cooldown, 2*time.Second) }

func (s SnapshotConfig) GetPollInterval() time.Duration { return parseOr(s.PollInterval, 5*time.Second) }

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Aviso: no se pudo cargar el archivo .env: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "12"))

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Store:      getEnv("STORE", "postgres"),
		DBDriver:   getEnv("DB_DRIVER", "pgx"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "kiosko"),
		DBPassword: getEnv("DB_PASSWORD", "kiosko"),
		DBName:     getEnv("DB_NAME", "estacionamiento"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		AWSRegion:        getEnv("AWS_REGION", "sa-east-1"),
		SQSEventQueueURL: getEnv("SQS_EVENT_QUEUE_URL", ""),
		IoTMQTTEndpoint:  getEnv("IOT_MQTT_ENDPOINT", ""),
		PrinterTopic:     getEnv("PRINTER_TOPIC", "estacionamiento/impresora/ticket"),
		MQTTBroker:       getEnv("MQTT_BROKER", ""),
		MQTTSensorTopic:  getEnv("MQTT_SENSOR_TOPIC", "estacionamiento/sensores/+"),

		JWTSecret:          getEnv("JWT_SECRET", "cambiar-esta-clave-en-produccion"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,
		AllowedEmails:      splitList(getEnv("ALLOWED_EMAILS", "")),
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),

		Timezone:   getEnv("TIMEZONE", "America/Santiago"),
		CostPolicy: getEnv("COST_POLICY", "hora"),
		Spaces:     splitList(getEnv("SPACES", "a1,a2,a3,a4")),
	}

	path := getEnv("KIOSKO_CONFIG_FILE", "kiosko.yaml")
	timing, err := LoadTiming(path)
	if err != nil {
		log.Printf("Aviso: %v; se usan los intervalos por defecto", err)
	} else {
		cfg.Timing = timing
	}
	return cfg
}

// LoadTiming lee el bloque de intervalos desde un YAML. Un archivo
// inexistente no es error.
func LoadTiming(path string) (TimingConfig, error) {
	var timing TimingConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return timing, nil
		}
		return timing, fmt.Errorf("error al leer %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &timing); err != nil {
		return TimingConfig{}, fmt.Errorf("error al parsear %s: %w", path, err)
	}
	return timing, nil
}

// Location es la zona horaria en que se muestran las horas del kiosko.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Aviso: zona horaria '%s' inválida (%v), se usa UTC", c.Timezone, err)
		return time.UTC
	}
	return loc
}

// EmailAllowed compara contra ALLOWED_EMAILS; una lista vacía permite a todos.
func (c *Config) EmailAllowed(email string) bool {
	if len(c.AllowedEmails) == 0 {
		return true
	}
	for _, allowed := range c.AllowedEmails {
		if strings.EqualFold(allowed, email) {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Variable de entorno '%s' no definida, se usa el valor por defecto: '%s'", key, fallback)
	return fallback
}

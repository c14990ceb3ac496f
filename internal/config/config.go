package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"EnergyMonitorAPI/internal/logger"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	MQTT     MQTTConfig
	Security SecurityConfig
	Ingest   IngestConfig
	Logging  LoggingConfig
	SeedFile string
}

type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxHeaderBytes  int
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type MQTTConfig struct {
	Enabled        bool
	Broker         string
	Port           int
	ClientID       string
	Username       string
	Password       string
	TelemetryTopic string
	AlertTopic     string
	QoS            byte
	RetainMessages bool
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AutoReconnect  bool
}

type SecurityConfig struct {
	TokenPepper        string
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	RateLimitPerMinute int
	EnableRateLimit    bool
}

// IngestConfig tunes the device ingestion pipeline.
type IngestConfig struct {
	MaxBodyBytes       int64
	WriteTimeout       time.Duration
	AlertTimeout       time.Duration
	AlertCooldown      time.Duration
	DeviceRateWindow   time.Duration
	LimiterIdleTTL     time.Duration
	LimiterMaxEntries  int
	LimiterSweepPeriod time.Duration
}

type LoggingConfig struct {
	Level     logger.Level
	Mode      logger.Mode
	FilePath  string
	UseColors bool
}

var postgresEnvVars = []string{
	"DB_HOST",
	"DB_PORT",
	"DB_USER",
	"DB_PASSWORD",
	"DB_NAME",
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		MQTT:     loadMQTTConfig(),
		Security: loadSecurityConfig(),
		Ingest:   loadIngestConfig(),
		Logging:  loadLoggingConfig(),
		SeedFile: getEnv("SEED_FILE", ""),
	}

	if err := validateRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SensorConfig drives the mock sensor. It shares the MQTT settings with the
// API so both sides agree on broker and topic.
type SensorConfig struct {
	APIURL      string
	DeviceToken string
	DeviceID    string
	Interval    time.Duration
	Transport   string
	MQTT        MQTTConfig
	Logging     LoggingConfig
}

func LoadSensor() *SensorConfig {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	mqttCfg := loadMQTTConfig()
	mqttCfg.ClientID = getEnv("MOCK_MQTT_CLIENT_ID", "energy-mock-sensor")

	return &SensorConfig{
		APIURL:      getEnv("MOCK_API_URL", "http://localhost:8080"),
		DeviceToken: getEnv("MOCK_DEVICE_TOKEN", "dev-test-token"),
		DeviceID:    getEnv("MOCK_DEVICE_ID", "00000000-0000-0000-0000-000000000001"),
		Interval:    time.Duration(getEnvAsInt("MOCK_INTERVAL_MS", 2000)) * time.Millisecond,
		Transport:   getEnv("MOCK_TRANSPORT", "http"),
		MQTT:        mqttCfg,
		Logging:     loadLoggingConfig(),
	}
}

func validateRequired(cfg *Config) error {
	var required []string
	if cfg.Database.Driver == DriverPostgres {
		required = append(required, postgresEnvVars...)
	}
	if cfg.MQTT.Enabled {
		required = append(required, "MQTT_BROKER", "MQTT_PORT")
	}

	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Port:            getEnvAsInt("SERVER_PORT", 8080),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "15s"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", "10s"),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", "15s"),
		MaxHeaderBytes:  getEnvAsInt("MAX_HEADER_BYTES", 1048576),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "energy_admin"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "energy_monitor"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		SQLitePath:      getEnv("SQLITE_PATH", "data/energy.db"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", "5m"),
	}
}

func loadMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Enabled:        getEnvAsBool("MQTT_ENABLED", false),
		Broker:         getEnv("MQTT_BROKER", "localhost"),
		Port:           getEnvAsInt("MQTT_PORT", 1883),
		ClientID:       getEnv("MQTT_CLIENT_ID", "energy-monitor-api"),
		Username:       getEnv("MQTT_USERNAME", ""),
		Password:       getEnv("MQTT_PASSWORD", ""),
		TelemetryTopic: getEnv("MQTT_TELEMETRY_TOPIC", "energy/telemetry"),
		AlertTopic:     getEnv("MQTT_ALERT_TOPIC", "energy/alerts"),
		QoS:            byte(getEnvAsInt("MQTT_QOS", 1)),
		RetainMessages: getEnvAsBool("MQTT_RETAIN", false),
		KeepAlive:      getEnvAsDuration("MQTT_KEEP_ALIVE", "60s"),
		ConnectTimeout: getEnvAsDuration("MQTT_CONNECT_TIMEOUT", "10s"),
		AutoReconnect:  getEnvAsBool("MQTT_AUTO_RECONNECT", true),
	}
}

func loadSecurityConfig() SecurityConfig {
	origins := getEnv("CORS_ALLOWED_ORIGINS", "*")
	methods := getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,OPTIONS")

	return SecurityConfig{
		TokenPepper:        getEnv("DEVICE_TOKEN_PEPPER", ""),
		CORSAllowedOrigins: strings.Split(origins, ","),
		CORSAllowedMethods: strings.Split(methods, ","),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		EnableRateLimit:    getEnvAsBool("ENABLE_RATE_LIMIT", true),
	}
}

func loadIngestConfig() IngestConfig {
	return IngestConfig{
		MaxBodyBytes:       int64(getEnvAsInt("INGEST_MAX_BODY_BYTES", 64*1024)),
		WriteTimeout:       getEnvAsDuration("INGEST_WRITE_TIMEOUT", "5s"),
		AlertTimeout:       getEnvAsDuration("INGEST_ALERT_TIMEOUT", "5s"),
		AlertCooldown:      getEnvAsDuration("ALERT_COOLDOWN", "0s"),
		DeviceRateWindow:   getEnvAsDuration("DEVICE_RATE_WINDOW", "1s"),
		LimiterIdleTTL:     getEnvAsDuration("DEVICE_LIMITER_IDLE_TTL", "1m"),
		LimiterMaxEntries:  getEnvAsInt("DEVICE_LIMITER_MAX_ENTRIES", 10000),
		LimiterSweepPeriod: getEnvAsDuration("DEVICE_LIMITER_SWEEP_PERIOD", "1m"),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:     logger.ParseLevel(getEnv("LOG_LEVEL", "info")),
		Mode:      logger.ParseMode(getEnv("LOG_MODE", "normal")),
		FilePath:  getEnv("LOG_FILE_PATH", ""),
		UseColors: getEnvAsBool("LOG_USE_COLORS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// PostgresDSN builds a lib/pq connection string.
func (c *DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

func (c *MQTTConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Broker, c.Port)
}

func (c *Config) Validate() error {
	var errors []string

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			errors = append(errors, "DB_PASSWORD cannot be empty")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errors = append(errors, "SQLITE_PATH cannot be empty")
		}
	default:
		errors = append(errors, fmt.Sprintf("DB_DRIVER must be %q or %q", DriverPostgres, DriverSQLite))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	if c.MQTT.Enabled && (c.MQTT.Port < 1 || c.MQTT.Port > 65535) {
		errors = append(errors, "MQTT_PORT must be between 1 and 65535")
	}

	if c.Server.Environment == "production" && c.Security.TokenPepper == "" {
		errors = append(errors, "DEVICE_TOKEN_PEPPER must be set in production")
	}

	if c.Ingest.MaxBodyBytes <= 0 {
		errors = append(errors, "INGEST_MAX_BODY_BYTES must be positive")
	}
	if c.Ingest.WriteTimeout <= 0 {
		errors = append(errors, "INGEST_WRITE_TIMEOUT must be positive")
	}
	if c.Ingest.DeviceRateWindow <= 0 {
		errors = append(errors, "DEVICE_RATE_WINDOW must be positive")
	}
	if c.Ingest.LimiterIdleTTL < c.Ingest.DeviceRateWindow {
		errors = append(errors, "DEVICE_LIMITER_IDLE_TTL cannot be shorter than DEVICE_RATE_WINDOW")
	}
	if c.Ingest.AlertCooldown < 0 {
		errors = append(errors, "ALERT_COOLDOWN cannot be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func (c *Config) Print() {
	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║            Energy Monitor - Configuration                ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Printf("Environment:     %s\n", c.Server.Environment)
	fmt.Printf("Server:          %s:%d\n", c.Server.Host, c.Server.Port)
	if c.Database.Driver == DriverSQLite {
		fmt.Printf("Database:        sqlite %s\n", c.Database.SQLitePath)
	} else {
		fmt.Printf("Database:        %s:%d/%s\n", c.Database.Host, c.Database.Port, c.Database.Database)
	}
	if c.MQTT.Enabled {
		fmt.Printf("MQTT Broker:     %s:%d (%s)\n", c.MQTT.Broker, c.MQTT.Port, c.MQTT.TelemetryTopic)
	} else {
		fmt.Println("MQTT Broker:     disabled")
	}
	fmt.Printf("Device window:   %v\n", c.Ingest.DeviceRateWindow)
	fmt.Println("──────────────────────────────────────────────────────────")
}

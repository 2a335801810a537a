package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration from environment variables
type Config struct {
	// Application
	AppPort    string
	AppEnv     string
	LogLevel   string
	SchemaPath string
	SeedData   bool
	StaticDir  string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Sessions
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	SessionCookieName   string
	SessionTTL          time.Duration
	SessionCookieSecure bool
	CORSAllowedOrigins  []string

	// Order events
	KafkaBrokers    []string
	KafkaOrderTopic string

	// OpenTelemetry
	OTELExporterOTLPEndpoint       string
	OTELExporterOTLPProtocol       string
	OTELExporterOTLPHeaders        string // For SigNoz Cloud: signoz-ingestion-key=<key>
	OTELExporterOTLPInsecure       bool   // true for http://, false for https://
	OTELExporterOTLPTracesEndpoint string
	OTELMetricsEnabled             bool
	OTELTracesEnabled              bool
	OTELServiceName                string
	OTELServiceVersion             string
	OTELDeploymentEnvironment      string
	PrometheusEnabled              bool
}

// LoadConfig loads configuration from .env file and environment variables with defaults
func LoadConfig() *Config {
	// .env is optional; only a malformed file is worth a warning
	if err := godotenv.Load(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			log.Warn().Err(err).Msg("error loading .env file")
		}
	}

	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),
		AppEnv:     getEnv("APP_ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		SchemaPath: getEnv("SCHEMA_PATH", "schema.sql"),
		SeedData:   getEnvBool("SEED_CATALOG", true),
		StaticDir:  getEnv("STATIC_DIR", ""),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "techstore"),

		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "techstore_session"),
		SessionTTL:          getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		SessionCookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		KafkaBrokers:    getEnvList("KAFKA_BROKERS", nil),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "orders-placed"),

		OTELExporterOTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELExporterOTLPProtocol:       getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "http/protobuf"),
		OTELExporterOTLPHeaders:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
		OTELExporterOTLPInsecure:       getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELExporterOTLPTracesEndpoint: getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "localhost:4317"),
		OTELMetricsEnabled:             getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracesEnabled:              getEnvBool("OTEL_TRACES_ENABLED", false),
		OTELServiceName:                getEnv("OTEL_SERVICE_NAME", "techstore-go-app"),
		OTELServiceVersion:             getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
		OTELDeploymentEnvironment:      getEnv("OTEL_DEPLOYMENT_ENVIRONMENT", "development"),
		PrometheusEnabled:              getEnvBool("PROMETHEUS_ENABLED", true),
	}
}

// GetDSN returns the MySQL DSN string
func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
}

// IsDevelopment reports whether the app runs with developer conveniences
// (console logging).
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		return false
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid integer, using default")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.Warn().Str("key", key).Str("value", value).Msg("invalid duration, using default")
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

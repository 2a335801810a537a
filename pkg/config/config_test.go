package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("REDIS_ADDR", "")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "techstore_session", cfg.SessionCookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("APP_ENV", "production")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SESSION_COOKIE_SECURE", "yes")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("OTEL_TRACES_ENABLED", "1")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.AppPort)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.SessionCookieSecure)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.OTELTracesEnabled)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("PROMETHEUS_ENABLED", "nope")

	cfg := LoadConfig()

	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.PrometheusEnabled)
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{DBUser: "shop", DBPassword: "secret", DBHost: "db", DBPort: "3307", DBName: "techstore"}
	assert.Equal(t, "shop:secret@tcp(db:3307)/techstore?parseTime=true&charset=utf8mb4", cfg.GetDSN())
}

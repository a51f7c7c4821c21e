package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean; defaults suit local development.
type Config struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// ReviewersJSON is an inline JSON roster used as the reviewer directory
	// when no database backs it. Local development convenience.
	ReviewersJSON string

	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// RedisConfig controls the shared Redis client. An empty URL disables Redis
// and the round-robin cursor falls back to the in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig controls the history outbox publisher. No brokers means the
// outbox worker is not started.
type KafkaConfig struct {
	Brokers      []string
	HistoryTopic string
	PollInterval time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("COMPLYFLOW_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("COMPLYFLOW_DATABASE_URL"),
		JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:       envOr("JWT_ISSUER", "complyflow"),
		JWTAudience:     envOr("JWT_AUDIENCE", "complyflow-api"),
		ReviewersJSON:   os.Getenv("COMPLYFLOW_REVIEWERS"),
		ShutdownTimeout: 10 * time.Second,
		RequestTimeout:  30 * time.Second,
	}

	cfg.Redis = RedisConfig{
		URL:          os.Getenv("COMPLYFLOW_REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	if brokers := os.Getenv("COMPLYFLOW_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka = KafkaConfig{
			Brokers:      strings.Split(brokers, ","),
			HistoryTopic: envOr("COMPLYFLOW_KAFKA_HISTORY_TOPIC", "complyflow.workflow.history"),
			PollInterval: 2 * time.Second,
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

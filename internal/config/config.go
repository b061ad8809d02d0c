package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Simulation defaults.
	Iterations int    // fixed per-run sample size
	BaseSeed   uint32 // base seed folded into projection-mode seed derivation

	// Geoid collaborator. At most one of URL/Path is used; neither means
	// ellipsoid-only mode.
	GeoidURL     string
	GeoidPath    string
	GeoidTimeout time.Duration

	// Flood display.
	TickInterval time.Duration // fade animation tick rate
	ClearPolicy  string        // "after-fade" or "immediate"

	// Run history persistence.
	DBPath        string
	MaxRunAge     time.Duration // prune runs older than this (0 = keep forever)
	PruneInterval time.Duration

	// Kafka run-event publishing (enabled when brokers are set).
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geoidTimeout, err := parseDuration("GEOID_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	tickInterval, err := parseDuration("TICK_INTERVAL", "50ms")
	if err != nil {
		return nil, err
	}
	maxRunAge, err := parseDuration("MAX_RUN_AGE", "720h")
	if err != nil {
		return nil, err
	}
	pruneInterval, err := parseDuration("PRUNE_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}

	iterations, err := parseInt("SIM_ITERATIONS", 5000)
	if err != nil {
		return nil, err
	}
	baseSeed, err := parseInt("SIM_BASE_SEED", 1337)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Iterations: iterations,
		BaseSeed:   uint32(baseSeed),

		GeoidURL:     os.Getenv("GEOID_URL"),
		GeoidPath:    os.Getenv("GEOID_PATH"),
		GeoidTimeout: geoidTimeout,

		TickInterval: tickInterval,
		ClearPolicy:  envOrDefault("CLEAR_POLICY", "after-fade"),

		DBPath:        envOrDefault("DB_PATH", "data/floodline.db"),
		MaxRunAge:     maxRunAge,
		PruneInterval: pruneInterval,

		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "simulation-runs"),
		KafkaEnabled: len(brokers) > 0,
	}

	if cfg.Iterations <= 0 {
		return nil, errors.New("SIM_ITERATIONS must be positive")
	}
	if cfg.TickInterval <= 0 {
		return nil, errors.New("TICK_INTERVAL must be positive")
	}
	if cfg.ClearPolicy != "after-fade" && cfg.ClearPolicy != "immediate" {
		return nil, fmt.Errorf("invalid CLEAR_POLICY %q: want after-fade or immediate", cfg.ClearPolicy)
	}
	if cfg.GeoidURL != "" && cfg.GeoidPath != "" {
		return nil, errors.New("GEOID_URL and GEOID_PATH are mutually exclusive")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

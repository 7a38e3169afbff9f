package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// OMOP database (read-only snapshot)
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers       []string
	KafkaGroupID       string
	RunEventsTopic     string
	BuildRequestsTopic string

	// Dataset pipeline
	BatchSize          int
	RollingAvgVariable string
	RollingWindowHours int
	AgeRoundDecimals   int
	FillHorizon        time.Duration
	CatalogPath        string

	// Feature cache
	FeatureCacheTTL time.Duration

	// Build jobs
	MaxBuildWorkers int
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "fleming"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "fleming123"),
		PostgresDB:       getEnv("POSTGRES_DB", "omop"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:       getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "fleming-platform"),
		RunEventsTopic:     getEnv("RUN_EVENTS_TOPIC", "dataset.runs"),
		BuildRequestsTopic: getEnv("BUILD_REQUESTS_TOPIC", "dataset.build-requests"),

		BatchSize:          getIntEnv("DATASET_BATCH_SIZE", 100),
		RollingAvgVariable: getEnv("ROLLING_AVG_VARIABLE", "Respiratory rate"),
		RollingWindowHours: getIntEnv("ROLLING_WINDOW_HOURS", 2),
		AgeRoundDecimals:   getIntEnv("AGE_ROUND_DECIMALS", 1),
		FillHorizon:        getDuration("FILL_HORIZON", 24*time.Hour),
		CatalogPath:        getEnv("CONCEPT_CATALOG_PATH", ""),

		FeatureCacheTTL: getDuration("FEATURE_CACHE_TTL", 5*time.Minute),

		MaxBuildWorkers: getIntEnv("MAX_BUILD_WORKERS", 1),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string
	JWTSecret  string
	ServerPort string

	CORSOrigins string

	// Redis is optional: an empty address disables the definition cache.
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	DefinitionCacheTTL time.Duration

	// AMQP is optional: an empty URL keeps events in-process (logged only).
	AMQPURL      string
	AMQPExchange string

	SessionSweepCron string
	AnswerGrace      time.Duration

	SeedFile string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBDriver:           getEnv("DB_DRIVER", "postgres"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "test_engine"),
		DBSSLMode:          getEnv("DB_SSLMODE", "disable"),
		SQLitePath:         getEnv("SQLITE_PATH", "test_engine.db"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		CORSOrigins:        getEnv("CORS_ORIGINS", "*"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		DefinitionCacheTTL: getEnvAsDuration("DEFINITION_CACHE_TTL", 5*time.Minute),
		AMQPURL:            getEnv("AMQP_URL", ""),
		AMQPExchange:       getEnv("AMQP_EXCHANGE", "test_engine.events"),
		SessionSweepCron:   getEnv("SESSION_SWEEP_CRON", ""),
		AnswerGrace:        time.Duration(getEnvAsInt("ANSWER_GRACE_SECONDS", 30)) * time.Second,
		SeedFile:           getEnv("SEED_FILE", ""),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

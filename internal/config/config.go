package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	// Postgres
	DatabaseURL    string
	PGMaxConns     int
	PGMinConns     int
	MigrateOnStart bool
	ConnectTimeout time.Duration
	// Redis (idempotency)
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func boolDef(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:             getEnv("ENV", "local"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnv("PORT", "8080"),
		RequestTimeout:  time.Duration(atoiDef(getEnv("REQUEST_TIMEOUT_MS", "3000"), 3000)) * time.Millisecond,
		ShutdownTimeout: time.Duration(atoiDef(getEnv("SHUTDOWN_TIMEOUT_MS", "10000"), 10000)) * time.Millisecond,
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		PGMaxConns:      atoiDef(getEnv("PG_MAX_CONNS", "10"), 10),
		PGMinConns:      atoiDef(getEnv("PG_MIN_CONNS", "1"), 1),
		MigrateOnStart:  boolDef(getEnv("MIGRATE_ON_START", "true"), true),
		ConnectTimeout:  time.Duration(atoiDef(getEnv("PG_CONNECT_TIMEOUT_MS", "15000"), 15000)) * time.Millisecond,
		RedisEnabled:    boolDef(getEnv("REDIS_ENABLED", "true"), true),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         atoiDef(getEnv("REDIS_DB", "0"), 0),
		RedisTTL:        time.Duration(atoiDef(getEnv("IDEMPOTENCY_TTL_MS", "86400000"), 86400000)) * time.Millisecond,
	}
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings read from the environment (and .env via
// godotenv in main).
type Config struct {
	Env              string
	Port             string
	GinMode          string
	LogLevel         string
	DBDriver         string
	DBDSN            string
	JWTSecret        string
	TokenTTL         time.Duration
	CustomerTokenTTL time.Duration
	OTPTTL           time.Duration
	OTPMaxAttempts   int
	OperationTimeout time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	JoinRateLimit    int
	JoinRateWindow   time.Duration
	RabbitMQURL      string
	EventsQueue      string
	CORSOrigin       string
	SeedRestaurant   string
	SeedOwnerEmail   string
	SeedOwnerPass    string
}

func Load() Config {
	return Config{
		Env:              envStr("APP_ENV", "development"),
		Port:             envStr("PORT", "8080"),
		GinMode:          envStr("GIN_MODE", "debug"),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		DBDriver:         strings.ToLower(envStr("DB_DRIVER", "sqlite")),
		DBDSN:            envStr("DB_DSN", "restaurant.db"),
		JWTSecret:        envStr("JWT_SECRET", ""),
		TokenTTL:         envDur("TOKEN_TTL", 24*time.Hour),
		CustomerTokenTTL: envDur("CUSTOMER_TOKEN_TTL", 6*time.Hour),
		OTPTTL:           envDur("OTP_TTL", 24*time.Hour),
		OTPMaxAttempts:   envInt("OTP_MAX_ATTEMPTS", 5),
		OperationTimeout: envDur("OPERATION_TIMEOUT", 5*time.Second),
		RedisAddr:        envStr("REDIS_ADDR", ""),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          envInt("REDIS_DB", 0),
		JoinRateLimit:    envInt("JOIN_RATE_LIMIT", 10),
		JoinRateWindow:   envDur("JOIN_RATE_WINDOW", time.Minute),
		RabbitMQURL:      envStr("RABBITMQ_URL", ""),
		EventsQueue:      envStr("EVENTS_QUEUE", "session.events"),
		CORSOrigin:       envStr("CORS_ORIGIN", "*"),
		SeedRestaurant:   envStr("SEED_RESTAURANT", "My Restaurant"),
		SeedOwnerEmail:   os.Getenv("SEED_OWNER_EMAIL"),
		SeedOwnerPass:    os.Getenv("SEED_OWNER_PASSWORD"),
	}
}

func (c Config) IsProduction() bool { return c.Env == "production" }

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

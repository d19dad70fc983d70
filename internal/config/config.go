package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	JWTSecret string
	TokenTTL  time.Duration

	AllowedOrigins []string
	MaxBodyBytes   int64

	// Fixed-window rate limits. Auth routes are keyed by IP, expense
	// routes by authenticated user.
	AuthRateLimit   int
	APIRateLimit    int
	RateLimitWindow time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTLPEndpoint string
}

func Load() Config {
	// Missing .env is fine, the environment wins either way.
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)
	dbURL := getEnv("DATABASE_URL", "")

	if dbURL == "" {
		dbURL = buildDBURL()
	}

	return Config{
		Env:   env,
		Port:  port,
		DBURL: dbURL,

		JWTSecret: getEnv("JWT_SECRET_KEY", ""),
		TokenTTL:  time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,

		AllowedOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		AuthRateLimit:   getEnvInt("AUTH_RATE_LIMIT", 20),
		APIRateLimit:    getEnvInt("API_RATE_LIMIT", 120),
		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "spendtrack")
	pass := getEnv("DB_PASSWORD", "spendtrack")
	name := getEnv("DB_NAME", "spendtrack")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

// Package config loads runtime configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds every runtime setting the server needs. Required values
// are enforced at startup; optional integrations (broker, SMTP) stay
// empty and the server degrades to in-process fallbacks.
type Config struct {
	Env            string // application environment ("dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string
	DBPass         string // optional, empty allowed
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int // access token lifetime in minutes
	RefreshTTLDays int // refresh token lifetime in days
	BcryptCost     int

	RabbitURL string // optional; empty disables the broker path
	SMTPAddr  string // host:port; optional, empty disables email delivery
	SMTPHost  string
	SMTPFrom  string
	SMTPPass  string
	QRDir     string // directory for rendered ticket QR images
}

// Load reads the environment and returns a Config. Missing required
// variables are fatal.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		RabbitURL: os.Getenv("RABBITMQ_URL"),
		SMTPAddr:  os.Getenv("SMTP_ADDR"),
		SMTPHost:  os.Getenv("SMTP_HOST"),
		SMTPFrom:  os.Getenv("SMTP_FROM"),
		SMTPPass:  os.Getenv("SMTP_PASS"),
		QRDir:     envStr("QR_OUTPUT_DIR", "images/qr"),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is must() plus integer conversion.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

package config

import (
	"os"
	"strings"
	"time"
)

// Config carries everything main needs to wire the service.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Verifier Verifier
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	AdminToken string
}

// Postgres holds the record and access-log store connection. An empty DSN
// selects the in-memory stores (dev mode).
type Postgres struct {
	DSN string
}

// Redis holds the distributed lock backend. An empty URL selects in-process
// keyed locks (single instance only).
type Redis struct {
	URL string
}

// Kafka holds the notification event stream. Empty brokers select the
// in-process queue sink.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Verifier configures authentication of external verifier callbacks.
type Verifier struct {
	CallbackSecret string
}

// LockTTL bounds how long a per-user write lock may be held before Redis
// reclaims it from a crashed holder.
var LockTTL = 10 * time.Second

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("VERISTAY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	adminToken := os.Getenv("VERISTAY_ADMIN_TOKEN")
	if adminToken == "" {
		// Dev default, must be overridden in production.
		adminToken = "dev-admin-token-change-in-production"
	}

	callbackSecret := os.Getenv("VERISTAY_VERIFIER_SECRET")
	if callbackSecret == "" {
		callbackSecret = "dev-verifier-secret-change-in-production"
	}

	topic := os.Getenv("VERISTAY_KAFKA_TOPIC")
	if topic == "" {
		topic = "veristay.verification-outcomes"
	}

	var brokers []string
	if raw := os.Getenv("VERISTAY_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Config{
		Server:   Server{Addr: addr, AdminToken: adminToken},
		Postgres: Postgres{DSN: os.Getenv("VERISTAY_POSTGRES_DSN")},
		Redis:    Redis{URL: os.Getenv("VERISTAY_REDIS_URL")},
		Kafka:    Kafka{Brokers: brokers, Topic: topic},
		Verifier: Verifier{CallbackSecret: callbackSecret},
	}
}

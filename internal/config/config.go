package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/funkoshop/order-service/internal/orders"
)

type Config struct {
	HTTPAddr        string
	WSAddr          string
	PostgresDSN     string // empty runs the API on the in-memory store
	RedisAddr       string // empty disables the read cache
	KafkaBrokers    []string
	OrdersTopic     string
	ServiceName     string
	LogLevel        string
	JaegerEndpoint  string
	CacheTTL        time.Duration
	NotifierGroup   string
	NotifierWorkers int
	CheckClients    bool
}

func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8081"),
		WSAddr:          getenv("WS_ADDR", ":8082"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		KafkaBrokers:    splitCSV(os.Getenv("KAFKA_BROKERS")),
		OrdersTopic:     getenv("ORDERS_TOPIC", orders.TopicOrderEvents),
		ServiceName:     getenv("SERVICE_NAME", "order-api"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		JaegerEndpoint:  os.Getenv("JAEGER_ENDPOINT"),
		CacheTTL:        getduration("CACHE_TTL", 60*time.Second),
		NotifierGroup:   getenv("NOTIFIER_GROUP", "order-notifier"),
		NotifierWorkers: getint("NOTIFIER_WORKERS", 4),
		CheckClients:    getbool("CHECK_CLIENTS", true),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	i, err := strconv.Atoi(os.Getenv(k))
	if err != nil || i <= 0 {
		return def
	}
	return i
}

func getbool(k string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return b
}

func getduration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

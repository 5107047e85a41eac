package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pixil98/go-errors"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	// NatsEmbedded as NATS_URL starts a NATS server inside the process.
	NatsEmbedded = "embedded"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	GinMode        string
	LogLevel       string
	LogFormat      string

	StoreDriver     string
	PostgresURL     string
	SQLitePath      string
	StoreMaxRetries int

	NatsURL  string
	NatsPort int

	RoomIdleTTL     time.Duration
	JanitorInterval time.Duration

	MessagesPerSecond float64
	MessageBurst      int
}

// Load reads the configuration through lookup, usually os.LookupEnv, and validates it.
// Every problem found is reported, not just the first.
func Load(lookup func(string) (string, bool)) (*Config, error) {
	el := errors.NewErrorList()
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}
	getInt := func(key string, def int) int {
		v, err := strconv.Atoi(get(key, strconv.Itoa(def)))
		if err != nil {
			el.Add(fmt.Errorf("parsing %s: %w", key, err))
		}
		return v
	}
	getDuration := func(key string, def time.Duration) time.Duration {
		v, err := time.ParseDuration(get(key, def.String()))
		if err != nil {
			el.Add(fmt.Errorf("parsing %s: %w", key, err))
		}
		return v
	}

	c := &Config{
		Port:            get("PORT", "5000"),
		GinMode:         get("GIN_MODE", "release"),
		LogLevel:        get("LOG_LEVEL", "info"),
		LogFormat:       get("LOG_FORMAT", "console"),
		StoreDriver:     get("STORE_DRIVER", StoreMemory),
		PostgresURL:     get("POSTGRES_URL", ""),
		SQLitePath:      get("SQLITE_PATH", "./data/rooms.db"),
		StoreMaxRetries: getInt("STORE_MAX_RETRIES", 5),
		NatsURL:         get("NATS_URL", ""),
		NatsPort:        getInt("NATS_PORT", 4222),
		RoomIdleTTL:     getDuration("ROOM_IDLE_TTL", 24*time.Hour),
		JanitorInterval: getDuration("JANITOR_INTERVAL", time.Minute),
		MessageBurst:    getInt("MESSAGE_BURST", 10),
	}

	rate, err := strconv.ParseFloat(get("MESSAGES_PER_SECOND", "5"), 64)
	if err != nil {
		el.Add(fmt.Errorf("parsing MESSAGES_PER_SECOND: %w", err))
	}
	c.MessagesPerSecond = rate

	for _, origin := range strings.Split(get("ALLOWED_ORIGINS", ""), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			c.AllowedOrigins = append(c.AllowedOrigins, origin)
		}
	}

	el.Add(c.Validate())
	return c, el.Err()
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if len(c.AllowedOrigins) == 0 {
		el.Add(fmt.Errorf("ALLOWED_ORIGINS is required"))
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		el.Add(fmt.Errorf("PORT must be a number, got %q", c.Port))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		el.Add(fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat))
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			el.Add(fmt.Errorf("SQLITE_PATH is required for the sqlite store"))
		}
	case StorePostgres:
		if c.PostgresURL == "" {
			el.Add(fmt.Errorf("POSTGRES_URL is required for the postgres store"))
		}
	default:
		el.Add(fmt.Errorf("STORE_DRIVER must be one of memory, sqlite, postgres, got %q", c.StoreDriver))
	}
	if c.StoreMaxRetries < 0 {
		el.Add(fmt.Errorf("STORE_MAX_RETRIES must not be negative"))
	}

	if c.NatsURL == NatsEmbedded && (c.NatsPort < 1 || c.NatsPort > 65535) {
		el.Add(fmt.Errorf("NATS_PORT must be a valid port, got %d", c.NatsPort))
	}

	if c.RoomIdleTTL <= 0 {
		el.Add(fmt.Errorf("ROOM_IDLE_TTL must be positive"))
	}
	if c.JanitorInterval < time.Second {
		el.Add(fmt.Errorf("JANITOR_INTERVAL must be at least 1 second"))
	}
	if c.MessagesPerSecond <= 0 || c.MessageBurst < 1 {
		el.Add(fmt.Errorf("MESSAGES_PER_SECOND and MESSAGE_BURST must be positive"))
	}

	return el.Err()
}

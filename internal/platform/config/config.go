package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultRoutingConfigCollection = "routing-configurations"
	defaultTemplateCollection      = "templates"
	defaultQueryPageSize           = 100
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	Events    EventsConfig
	Policy    PolicyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID               string
	EmulatorHost            string
	RoutingConfigCollection string
	TemplateCollection      string
	QueryPageSize           int
}

// EventsConfig configures lifecycle event publishing. An empty topic disables it.
type EventsConfig struct {
	ProjectID string
	Topic     string
}

// PolicyConfig holds behaviour toggles that are deliberately configurable.
type PolicyConfig struct {
	// AllowCompletedUpdate permits update calls against configurations that
	// have already moved to COMPLETED. Off by default.
	AllowCompletedUpdate bool
}

// Load reads configuration from the process environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:         envOrDefault("PORT", defaultPort),
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		},
		Firestore: FirestoreConfig{
			ProjectID:               envOrDefault("FIRESTORE_PROJECT_ID", os.Getenv("GOOGLE_CLOUD_PROJECT")),
			EmulatorHost:            strings.TrimSpace(os.Getenv("FIRESTORE_EMULATOR_HOST")),
			RoutingConfigCollection: envOrDefault("ROUTING_CONFIG_COLLECTION", defaultRoutingConfigCollection),
			TemplateCollection:      envOrDefault("TEMPLATE_COLLECTION", defaultTemplateCollection),
			QueryPageSize:           defaultQueryPageSize,
		},
		Events: EventsConfig{
			ProjectID: envOrDefault("EVENTS_PROJECT_ID", os.Getenv("GOOGLE_CLOUD_PROJECT")),
			Topic:     strings.TrimSpace(os.Getenv("EVENTS_TOPIC")),
		},
	}

	if raw := strings.TrimSpace(os.Getenv("QUERY_PAGE_SIZE")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return Config{}, fmt.Errorf("config: invalid QUERY_PAGE_SIZE %q", raw)
		}
		cfg.Firestore.QueryPageSize = size
	}

	if raw := strings.TrimSpace(os.Getenv("ALLOW_COMPLETED_UPDATE")); raw != "" {
		allow, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid ALLOW_COMPLETED_UPDATE %q", raw)
		}
		cfg.Policy.AllowCompletedUpdate = allow
	}

	for _, key := range []string{"SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT"} {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			continue
		}
		value, err := time.ParseDuration(raw)
		if err != nil || value <= 0 {
			return Config{}, fmt.Errorf("config: invalid %s %q", key, raw)
		}
		switch key {
		case "SERVER_READ_TIMEOUT":
			cfg.Server.ReadTimeout = value
		case "SERVER_WRITE_TIMEOUT":
			cfg.Server.WriteTimeout = value
		case "SERVER_IDLE_TIMEOUT":
			cfg.Server.IdleTimeout = value
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(fallback)
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Server.Port)
	}
	if cfg.Firestore.RoutingConfigCollection != defaultRoutingConfigCollection {
		t.Fatalf("unexpected collection %s", cfg.Firestore.RoutingConfigCollection)
	}
	if cfg.Firestore.QueryPageSize != defaultQueryPageSize {
		t.Fatalf("unexpected page size %d", cfg.Firestore.QueryPageSize)
	}
	if cfg.Policy.AllowCompletedUpdate {
		t.Fatalf("expected completed-update policy off by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("QUERY_PAGE_SIZE", "25")
	t.Setenv("ALLOW_COMPLETED_UPDATE", "true")
	t.Setenv("SERVER_READ_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port override, got %s", cfg.Server.Port)
	}
	if cfg.Firestore.QueryPageSize != 25 {
		t.Fatalf("expected page size 25, got %d", cfg.Firestore.QueryPageSize)
	}
	if !cfg.Policy.AllowCompletedUpdate {
		t.Fatalf("expected completed-update policy enabled")
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("expected read timeout 5s, got %s", cfg.Server.ReadTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("QUERY_PAGE_SIZE", "zero")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid page size")
	}
}

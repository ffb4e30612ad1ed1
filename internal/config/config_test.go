package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_PATH", "DB_BUSY_TIMEOUT", "SERVER_ADDR", "CORS_ALLOWED_ORIGINS", "FORMANCE_ENABLED", "RABBITMQ_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "ecopoints.db" || cfg.Database.BusyTimeout != 5*time.Second {
		t.Errorf("Unexpected database config %+v", cfg.Database)
	}
	if cfg.Server.Addr != ":3000" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("Unexpected server config %+v", cfg.Server)
	}
	if cfg.Formance.Enabled || cfg.Events.Enabled {
		t.Error("Expected optional integrations off by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":8080")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")
	t.Setenv("AUCTION_SWEEP_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.RateLimitPerSecond != 2.5 {
		t.Errorf("Unexpected server config %+v", cfg.Server)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Sweeper.Interval != 30*time.Second {
		t.Errorf("Expected 30s sweep interval, got %s", cfg.Sweeper.Interval)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DB_PING_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("Expected error for invalid duration")
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadTerminalDefaults(t *testing.T) {
	cfg, err := LoadTerminal()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Branch != "main" {
		t.Fatalf("branch = %q", cfg.Branch)
	}
	if cfg.RefetchInterval != time.Minute {
		t.Fatalf("refetch = %v", cfg.RefetchInterval)
	}
	if cfg.PerOrderMinutes != 5 || cfg.KitchenCapacity != 10 {
		t.Fatalf("kitchen defaults = %d/%d", cfg.PerOrderMinutes, cfg.KitchenCapacity)
	}
}

func TestLoadTerminalOverrides(t *testing.T) {
	t.Setenv("BRANCH", "annex")
	t.Setenv("REFETCH_INTERVAL", "30s")
	t.Setenv("KITCHEN_CAPACITY", "20")

	cfg, err := LoadTerminal()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Branch != "annex" || cfg.RefetchInterval != 30*time.Second || cfg.KitchenCapacity != 20 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8081" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
}

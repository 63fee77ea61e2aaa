package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
tick_rate = "20ms"

[network]
bind_addresses = ["127.0.0.1:9000", "127.0.0.1:9001"]
idle_timeout = "3s"

[simulation]
generations = true
`)
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.TickRate != 20*time.Millisecond {
		t.Fatalf("tick rate = %s", cfg.Server.TickRate)
	}
	if len(cfg.Network.BindAddresses) != 2 {
		t.Fatalf("bind addresses = %v", cfg.Network.BindAddresses)
	}
	if cfg.Network.IdleTimeout != 3*time.Second {
		t.Fatalf("idle timeout = %s", cfg.Network.IdleTimeout)
	}
	if !cfg.Simulation.Generations {
		t.Fatal("generations not applied")
	}
	// Untouched sections keep their defaults.
	if cfg.Network.SendQueueSize != 1024 || cfg.Logging.Level != "info" {
		t.Fatalf("defaults lost: %+v %+v", cfg.Network, cfg.Logging)
	}
	if cfg.Server.StartTime == 0 {
		t.Fatal("start time not stamped")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ARENA_TICK_RATE", "33ms")
	t.Setenv("ARENA_BIND_ADDRESSES", "127.0.0.1:7000,127.0.0.1:7001")
	t.Setenv("ARENA_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.TickRate != 33*time.Millisecond {
		t.Fatalf("tick rate = %s", cfg.Server.TickRate)
	}
	if strings.Join(cfg.Network.BindAddresses, ",") != "127.0.0.1:7000,127.0.0.1:7001" {
		t.Fatalf("bind addresses = %v", cfg.Network.BindAddresses)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level = %s", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), false); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero tick":       func(c *Config) { c.Server.TickRate = 0 },
		"no bind":         func(c *Config) { c.Network.BindAddresses = nil },
		"huge datagram":   func(c *Config) { c.Network.MaxDatagram = 70000 },
		"no send queue":   func(c *Config) { c.Network.SendQueueSize = 0 },
		"bad driver":      func(c *Config) { c.Ledger.Driver = "mysql" },
		"driver sans dsn": func(c *Config) { c.Ledger.Driver = "sqlite" },
		"user sans hash":  func(c *Config) { c.Admin.User = "ops" },
		"zero cell":       func(c *Config) { c.Simulation.CellSize = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Network    NetworkConfig    `toml:"network"`
	Simulation SimulationConfig `toml:"simulation"`
	Logging    LoggingConfig    `toml:"logging"`
	Ledger     LedgerConfig     `toml:"ledger"`
	Admin      AdminConfig      `toml:"admin"`
}

type ServerConfig struct {
	Name      string        `toml:"name" env:"ARENA_SERVER_NAME"`
	TickRate  time.Duration `toml:"tick_rate" env:"ARENA_TICK_RATE"`
	StartTime int64         // set at boot, not from config
}

type NetworkConfig struct {
	BindAddresses    []string      `toml:"bind_addresses" env:"ARENA_BIND_ADDRESSES" envSeparator:","`
	MaxDatagram      int           `toml:"max_datagram"`
	IngressCapacity  int           `toml:"ingress_capacity" env:"ARENA_INGRESS_CAPACITY"` // 0 = unbounded
	SendQueueSize    int           `toml:"send_queue_size"`
	WriteTimeout     time.Duration `toml:"write_timeout"`
	IdleTimeout      time.Duration `toml:"idle_timeout" env:"ARENA_IDLE_TIMEOUT"`
	PacketsPerSecond float64       `toml:"packets_per_second"` // 0 = unlimited
	PacketBurst      int           `toml:"packet_burst"`
	Charset          string        `toml:"charset"` // wire encoding for strings, e.g. "utf-8", "big5"
}

type SimulationConfig struct {
	WorldWidth      float32 `toml:"world_width"`
	WorldHeight     float32 `toml:"world_height"`
	CellSize        float32 `toml:"cell_size"`
	PlayerRadius    float32 `toml:"player_radius"`
	MaxSpeed        float32 `toml:"max_speed"`
	Generations     bool    `toml:"generations" env:"ARENA_GENERATIONS"`
	SystemsManifest string  `toml:"systems_manifest"`
	ScriptsDir      string  `toml:"scripts_dir"`
	EventCapacity   int     `toml:"event_capacity"`
}

type LoggingConfig struct {
	Level  string `toml:"level" env:"ARENA_LOG_LEVEL"`
	Format string `toml:"format" env:"ARENA_LOG_FORMAT"` // "json" or "console"
}

type LedgerConfig struct {
	Driver          string        `toml:"driver" env:"ARENA_LEDGER_DRIVER"` // "", "postgres" or "sqlite"
	DSN             string        `toml:"dsn" env:"ARENA_LEDGER_DSN"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	QueueSize       int           `toml:"queue_size"`
}

type AdminConfig struct {
	Enabled      bool     `toml:"enabled" env:"ARENA_ADMIN_ENABLED"`
	BindAddress  string   `toml:"bind_address" env:"ARENA_ADMIN_BIND"`
	User         string   `toml:"user" env:"ARENA_ADMIN_USER"`
	PasswordHash string   `toml:"password_hash" env:"ARENA_ADMIN_PASSWORD_HASH"` // bcrypt
	CORSOrigins  []string `toml:"cors_origins"`
}

// Load reads the TOML file at path over the defaults, then applies ARENA_*
// environment overrides. A missing file is not an error when allowMissing is set.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case allowMissing && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaults()
}

func (c *Config) Validate() error {
	if c.Server.TickRate <= 0 {
		return fmt.Errorf("server.tick_rate must be positive, got %s", c.Server.TickRate)
	}
	if len(c.Network.BindAddresses) == 0 {
		return errors.New("network.bind_addresses must not be empty")
	}
	if c.Network.MaxDatagram <= 0 || c.Network.MaxDatagram > 65507 {
		return fmt.Errorf("network.max_datagram out of range: %d", c.Network.MaxDatagram)
	}
	if c.Network.SendQueueSize <= 0 {
		return fmt.Errorf("network.send_queue_size must be positive, got %d", c.Network.SendQueueSize)
	}
	if c.Network.IngressCapacity < 0 {
		return fmt.Errorf("network.ingress_capacity must not be negative, got %d", c.Network.IngressCapacity)
	}
	if c.Simulation.WorldWidth <= 0 || c.Simulation.WorldHeight <= 0 {
		return errors.New("simulation world dimensions must be positive")
	}
	if c.Simulation.CellSize <= 0 {
		return errors.New("simulation.cell_size must be positive")
	}
	switch c.Ledger.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("ledger.driver %q not supported", c.Ledger.Driver)
	}
	if c.Ledger.Driver != "" && c.Ledger.DSN == "" {
		return fmt.Errorf("ledger.dsn required for driver %q", c.Ledger.Driver)
	}
	if c.Admin.User != "" && c.Admin.PasswordHash == "" {
		return errors.New("admin.password_hash required when admin.user is set")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "arena",
			TickRate: 50 * time.Millisecond,
		},
		Network: NetworkConfig{
			BindAddresses:    []string{"0.0.0.0:4242"},
			MaxDatagram:      1400,
			IngressCapacity:  0,
			SendQueueSize:    1024,
			WriteTimeout:     time.Second,
			IdleTimeout:      10 * time.Second,
			PacketsPerSecond: 120,
			PacketBurst:      30,
			Charset:          "utf-8",
		},
		Simulation: SimulationConfig{
			WorldWidth:      1920,
			WorldHeight:     1080,
			CellSize:        64,
			PlayerRadius:    16,
			MaxSpeed:        400,
			SystemsManifest: "data/yaml/systems.yaml",
			ScriptsDir:      "scripts",
			EventCapacity:   4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Ledger: LedgerConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			QueueSize:       256,
		},
		Admin: AdminConfig{
			Enabled:     true,
			BindAddress: "127.0.0.1:6060",
		},
	}
}

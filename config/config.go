// Package config loads driver and server settings from a TOML file.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config gathers the knobs of the demo driver and the RPC server. Every
// field has a working default; the allocator library itself needs none.
type Config struct {
	Server Server `toml:"server"`
	Bench  Bench  `toml:"bench"`
	Log    Log    `toml:"log"`
}

// Server configures the RPC allocation service.
type Server struct {
	Addr string `toml:"addr"`
}

// Bench configures the root workload driver.
type Bench struct {
	Iterations int `toml:"iterations"`
	Ops        int `toml:"ops"`
	Workers    int `toml:"workers"`
	MaxSize    int `toml:"max_size"`
}

// Log configures the diagnostic sink.
type Log struct {
	Enable bool   `toml:"enable"`
	Path   string `toml:"path"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: Server{Addr: "localhost:7233"},
		Bench: Bench{
			Iterations: 3,
			Ops:        100000,
			Workers:    8,
			MaxSize:    4096,
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.Bench.Workers <= 0 || cfg.Bench.Ops <= 0 || cfg.Bench.MaxSize <= 0 {
		return nil, fmt.Errorf("config %s: bench values must be positive", path)
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Default values applied when the file omits a setting.
const (
	DefaultAddress         = "localhost"
	DefaultPort            = 8080
	DefaultFrontendURL     = "http://localhost:3000"
	DefaultLogLevel        = "info"
	DefaultDriver          = "memory"
	DefaultInitialTokens   = 1000
	DefaultMinimumBet      = 1
	DefaultSessionLifetime = "744h" // 31 days
	DefaultSweepInterval   = "1h"
)

// Config represents the complete server configuration. Every block is optional.
type Config struct {
	Server   *ServerSettings   `hcl:"server,block"`
	Database *DatabaseSettings `hcl:"database,block"`
	Game     *GameSettings     `hcl:"game,block"`
}

// ServerSettings contains HTTP server configuration
type ServerSettings struct {
	Address     string `hcl:"address,optional"`
	Port        int    `hcl:"port,optional"`
	FrontendURL string `hcl:"frontend_url,optional"`
	LogLevel    string `hcl:"log_level,optional"`
}

// DatabaseSettings selects the player store. Driver "memory" keeps
// players in process; "sqlite3" and "postgres" use the DSN.
type DatabaseSettings struct {
	Driver string `hcl:"driver,optional"`
	DSN    string `hcl:"dsn,optional"`
}

// GameSettings contains table rules and session handling
type GameSettings struct {
	InitialTokens   int    `hcl:"initial_tokens,optional"`
	MinimumBet      int    `hcl:"minimum_bet,optional"`
	SessionLifetime string `hcl:"session_lifetime,optional"`
	SweepInterval   string `hcl:"sweep_interval,optional"`
}

// Default returns the default configuration
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load loads configuration from an HCL file. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Database == nil {
		c.Database = &DatabaseSettings{}
	}
	if c.Game == nil {
		c.Game = &GameSettings{}
	}

	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.FrontendURL == "" {
		c.Server.FrontendURL = DefaultFrontendURL
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Game.InitialTokens == 0 {
		c.Game.InitialTokens = DefaultInitialTokens
	}
	if c.Game.MinimumBet == 0 {
		c.Game.MinimumBet = DefaultMinimumBet
	}
	if c.Game.SessionLifetime == "" {
		c.Game.SessionLifetime = DefaultSessionLifetime
	}
	if c.Game.SweepInterval == "" {
		c.Game.SweepInterval = DefaultSweepInterval
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	switch c.Database.Driver {
	case "memory":
	case "sqlite3", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database driver %s requires a dsn", c.Database.Driver)
		}
	default:
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Game.InitialTokens <= 0 {
		return fmt.Errorf("initial tokens must be positive")
	}
	if c.Game.MinimumBet <= 0 {
		return fmt.Errorf("minimum bet must be positive")
	}
	if c.Game.MinimumBet > c.Game.InitialTokens {
		return fmt.Errorf("minimum bet %d exceeds initial tokens %d", c.Game.MinimumBet, c.Game.InitialTokens)
	}

	lifetime, err := time.ParseDuration(c.Game.SessionLifetime)
	if err != nil {
		return fmt.Errorf("invalid session lifetime: %w", err)
	}
	if lifetime < 0 {
		return fmt.Errorf("session lifetime must not be negative")
	}

	sweep, err := time.ParseDuration(c.Game.SweepInterval)
	if err != nil {
		return fmt.Errorf("invalid sweep interval: %w", err)
	}
	if sweep <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// SessionLifetime returns how long an idle player is kept. Call Validate first.
func (c *Config) SessionLifetime() time.Duration {
	d, _ := time.ParseDuration(c.Game.SessionLifetime)
	return d
}

// SweepInterval returns how often idle players are expired. Call Validate first.
func (c *Config) SweepInterval() time.Duration {
	d, _ := time.ParseDuration(c.Game.SweepInterval)
	return d
}

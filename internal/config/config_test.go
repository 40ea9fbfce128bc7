package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
	assert.Equal(t, 31*24*time.Hour, cfg.SessionLifetime())
	assert.Equal(t, time.Hour, cfg.SweepInterval())
	assert.Equal(t, 1000, cfg.Game.InitialTokens)
	assert.Equal(t, 1, cfg.Game.MinimumBet)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server {
  address      = "0.0.0.0"
  port         = 9000
  frontend_url = "https://cards.example.com"
  log_level    = "debug"
}

database {
  driver = "sqlite3"
  dsn    = "file:blackjack.db"
}

game {
  initial_tokens   = 500
  minimum_bet      = 5
  session_lifetime = "24h"
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddress())
	assert.Equal(t, "https://cards.example.com", cfg.Server.FrontendURL)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 500, cfg.Game.InitialTokens)
	assert.Equal(t, 5, cfg.Game.MinimumBet)
	assert.Equal(t, 24*time.Hour, cfg.SessionLifetime())
	assert.Equal(t, time.Hour, cfg.SweepInterval(), "omitted settings fall back to defaults")
}

func TestLoadRejectsBadHCL(t *testing.T) {
	_, err := Load(writeConfig(t, `server { port = `))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `server { colour = "red" }`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"port":              func(c *Config) { c.Server.Port = 70000 },
		"log level":         func(c *Config) { c.Server.LogLevel = "loud" },
		"driver":            func(c *Config) { c.Database.Driver = "mysql" },
		"missing dsn":       func(c *Config) { c.Database.Driver = "postgres" },
		"tokens":            func(c *Config) { c.Game.InitialTokens = -1 },
		"minimum bet":       func(c *Config) { c.Game.MinimumBet = -5 },
		"bet above tokens":  func(c *Config) { c.Game.MinimumBet = 2000 },
		"lifetime":          func(c *Config) { c.Game.SessionLifetime = "forever" },
		"negative lifetime": func(c *Config) { c.Game.SessionLifetime = "-1h" },
		"sweep":             func(c *Config) { c.Game.SweepInterval = "0s" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadPartialFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `game { minimum_bet = 10 }`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Game.MinimumBet)
	assert.Equal(t, DefaultInitialTokens, cfg.Game.InitialTokens)
	assert.Equal(t, DefaultDriver, cfg.Database.Driver)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}

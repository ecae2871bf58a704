// Package config loads wtmux configuration from ~/.wtmux/config.toml
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration.
type Config struct {
	// ProjectsBase is the directory holding project checkouts, their
	// -branches worktree directories, and their -archive roots.
	ProjectsBase string `toml:"projects_base"`

	// SessionPrefix namespaces wtmux-owned tmux sessions.
	SessionPrefix string `toml:"session_prefix"`

	// AssistantCommand is launched in the first pane of new sessions.
	AssistantCommand string `toml:"assistant_command"`

	Relay RelayConfig `toml:"relay"`
	Sync  SyncConfig  `toml:"sync"`
}

// RelayConfig configures the relay server.
type RelayConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	Path              string `toml:"path"`
	HeartbeatMS       int    `toml:"heartbeat_ms"`
	MaxClientsPerRoom int    `toml:"max_clients_per_room"`
	// Token, when set, must match the token query parameter of every
	// joining client. Empty means open access.
	Token string `toml:"token"`
}

// SyncConfig configures the sync server.
type SyncConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Path      string `toml:"path"`
	RefreshMS int    `toml:"refresh_ms"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		ProjectsBase:     filepath.Join(home, "projects"),
		SessionPrefix:    "dev-",
		AssistantCommand: "claude",
		Relay: RelayConfig{
			Host:              "127.0.0.1",
			Port:              8765,
			Path:              "/relay",
			HeartbeatMS:       15000,
			MaxClientsPerRoom: 8,
		},
		Sync: SyncConfig{
			Host:      "127.0.0.1",
			Port:      8766,
			Path:      "/sync",
			RefreshMS: 30000,
		},
	}
}

// Path returns the config file location.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wtmux", "config.toml")
}

// Load reads the config file when present, layers environment overrides,
// and falls back to defaults. A missing file is not an error.
func Load() (Config, error) {
	cfg := Default()

	path := Path()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers WTMUX_* environment overrides onto the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("WTMUX_PROJECTS_BASE"); v != "" {
		cfg.ProjectsBase = v
	}
	if v := os.Getenv("WTMUX_SESSION_PREFIX"); v != "" {
		cfg.SessionPrefix = v
	}
	if v := os.Getenv("WTMUX_ASSISTANT"); v != "" {
		cfg.AssistantCommand = v
	}
	if v := os.Getenv("WTMUX_RELAY_HOST"); v != "" {
		cfg.Relay.Host = v
	}
	if v, ok := envInt("WTMUX_RELAY_PORT"); ok {
		cfg.Relay.Port = v
	}
	if v := os.Getenv("WTMUX_RELAY_TOKEN"); v != "" {
		cfg.Relay.Token = v
	}
	if v := os.Getenv("WTMUX_SYNC_HOST"); v != "" {
		cfg.Sync.Host = v
	}
	if v, ok := envInt("WTMUX_SYNC_PORT"); ok {
		cfg.Sync.Port = v
	}
	if v, ok := envInt("WTMUX_SYNC_REFRESH_MS"); ok {
		cfg.Sync.RefreshMS = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

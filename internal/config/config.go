// Package config loads and stores the cs2ctl server list in the XDG config
// dir. Only non-secret settings live here; RCON passwords go to the OS
// keychain.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const appDir = "cs2ctl"

// Server is one managed game server entry.
type Server struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`

	// Timeouts in milliseconds; 0 means the client defaults.
	ConnectTimeoutMs int `json:"connect_timeout_ms,omitempty"`
	CommandTimeoutMs int `json:"command_timeout_ms,omitempty"`
}

// ConnectTimeout returns the entry's connect timeout, or 0 for the default.
func (s Server) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutMs) * time.Millisecond
}

// CommandTimeout returns the entry's command timeout, or 0 for the default.
func (s Server) CommandTimeout() time.Duration {
	return time.Duration(s.CommandTimeoutMs) * time.Millisecond
}

// Config holds all non-sensitive cs2ctl settings.
type Config struct {
	DefaultServer string   `json:"default_server,omitempty"`
	Servers       []Server `json:"servers,omitempty"`

	// QuickCommands are console shortcuts runnable as @1, @2, ...
	QuickCommands []string `json:"quick_commands,omitempty"`
}

// Find returns the server entry with the given name.
func (c Config) Find(name string) (Server, bool) {
	for _, s := range c.Servers {
		if s.Name == name {
			return s, true
		}
	}
	return Server{}, false
}

// Upsert adds the entry or replaces the one sharing its name.
func (c *Config) Upsert(s Server) {
	for i := range c.Servers {
		if c.Servers[i].Name == s.Name {
			c.Servers[i] = s
			return
		}
	}
	c.Servers = append(c.Servers, s)
}

// Remove deletes the named entry, reporting whether it existed.
func (c *Config) Remove(name string) bool {
	for i := range c.Servers {
		if c.Servers[i].Name == name {
			c.Servers = append(c.Servers[:i], c.Servers[i+1:]...)
			if c.DefaultServer == name {
				c.DefaultServer = ""
			}
			return true
		}
	}
	return false
}

// dir resolves the XDG config directory for cs2ctl, creating it with
// private permissions when missing. Falls back to ~/.config/cs2ctl when
// XDG_CONFIG_HOME is unset.
func dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	d := filepath.Join(base, appDir)
	if err := os.MkdirAll(d, 0o700); err != nil {
		return "", err
	}
	return d, nil
}

func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.json"), nil
}

// Load reads the configuration; a missing file returns defaults.
func Load() (Config, error) {
	var c Config
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", p, err)
	}
	return c, nil
}

// Save writes the configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

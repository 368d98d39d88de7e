package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rendis/flowmon/internal/layout"
	"github.com/rendis/flowmon/internal/logging"
)

// Config holds all flowmon configuration.
// Priority: flags > env vars > settings.json > defaults.
type Config struct {
	ListenAddr      string        `json:"listen_addr"`
	DBPath          string        `json:"db_path"`
	LogLevel        string        `json:"log_level"`
	LogFormat       string        `json:"log_format"`
	RefreshInterval string        `json:"refresh_interval"`
	AdmissionRules  []string      `json:"admission_rules,omitempty"`
	HubBuffer       int           `json:"hub_buffer"`
	Layout          layout.Config `json:"layout"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:      ":4200",
		DBPath:          filepath.Join(flowmonDir(), "flowmon.db"),
		LogLevel:        "info",
		LogFormat:       "text",
		RefreshInterval: "30s",
		AdmissionRules:  []string{"size(nodes) <= 500"},
		HubBuffer:       64,
		Layout:          layout.DefaultConfig(),
	}
}

func flowmonDir() string {
	if v := os.Getenv("FLOWMON_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowmon"
	}
	return filepath.Join(home, ".flowmon")
}

func settingsPath() string {
	return filepath.Join(flowmonDir(), "settings.json")
}

// loadConfig layers settings.json and FLOWMON_* env vars over the defaults.
// A malformed settings file is an error; a missing one is not.
func loadConfig() (Config, error) {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", settingsPath(), err)
		}
	}

	// Layer 3: env vars override.
	if v := os.Getenv("FLOWMON_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("FLOWMON_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FLOWMON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLOWMON_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("FLOWMON_REFRESH_INTERVAL"); v != "" {
		cfg.RefreshInterval = v
	}
	if v := os.Getenv("FLOWMON_ADMISSION_RULES"); v != "" {
		cfg.AdmissionRules = splitRules(v)
	}
	if v := os.Getenv("FLOWMON_HUB_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HubBuffer = n
		}
	}
	if v := os.Getenv("FLOWMON_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Layout.Seed = n
		}
	}
	if v := os.Getenv("FLOWMON_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Layout.MaxIterations = n
		}
	}

	return cfg, nil
}

// splitRules splits a ';'-separated rule list, dropping blanks.
func splitRules(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ";") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Validate checks the fields the process cannot start without.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if _, err := c.refreshInterval(); err != nil {
		return err
	}
	if c.HubBuffer <= 0 {
		return fmt.Errorf("hub_buffer must be positive, got %d", c.HubBuffer)
	}
	return c.Layout.Validate()
}

func (c Config) refreshInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid refresh interval %q", c.RefreshInterval)
	}
	return d, nil
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	LogLevelChanged bool
	RulesChanged    bool
	RestartNeeded   []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if strings.Join(old.AdmissionRules, ";") != strings.Join(new.AdmissionRules, ";") {
		d.RulesChanged = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.LogFormat != new.LogFormat {
		d.RestartNeeded = append(d.RestartNeeded, "log_format")
	}
	if old.RefreshInterval != new.RefreshInterval {
		d.RestartNeeded = append(d.RestartNeeded, "refresh_interval")
	}
	if old.HubBuffer != new.HubBuffer {
		d.RestartNeeded = append(d.RestartNeeded, "hub_buffer")
	}
	if old.Layout != new.Layout {
		d.RestartNeeded = append(d.RestartNeeded, "layout")
	}
	return d
}

func pidPath() string {
	return filepath.Join(flowmonDir(), "flowmon.pid")
}

package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowmon/internal/layout"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FLOWMON_HOME", dir)
	for _, k := range []string{
		"FLOWMON_LISTEN_ADDR", "FLOWMON_DB_PATH", "FLOWMON_LOG_LEVEL", "FLOWMON_LOG_FORMAT",
		"FLOWMON_REFRESH_INTERVAL", "FLOWMON_ADMISSION_RULES", "FLOWMON_HUB_BUFFER",
		"FLOWMON_SEED", "FLOWMON_MAX_ITERATIONS",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func writeSettings(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(body), 0o644))
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := isolateHome(t)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":4200", cfg.ListenAddr)
	assert.Equal(t, filepath.Join(dir, "flowmon.db"), cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, layout.DefaultConfig(), cfg.Layout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Layers(t *testing.T) {
	dir := isolateHome(t)
	writeSettings(t, dir, `{"listen_addr": ":9000", "log_level": "debug", "layout": {"max_iterations": 40}}`)
	t.Setenv("FLOWMON_LOG_LEVEL", "warn")
	t.Setenv("FLOWMON_SEED", "12")
	t.Setenv("FLOWMON_ADMISSION_RULES", "size(nodes) <= 10; ;size(edges) <= 20")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr, "settings.json overrides defaults")
	assert.Equal(t, "warn", cfg.LogLevel, "env overrides settings.json")
	assert.Equal(t, 40, cfg.Layout.MaxIterations)
	assert.Equal(t, uint64(12), cfg.Layout.Seed)
	assert.Equal(t, layout.DefaultConfig().Damping, cfg.Layout.Damping, "unset layout fields keep defaults")
	assert.Equal(t, []string{"size(nodes) <= 10", "size(edges) <= 20"}, cfg.AdmissionRules)
}

func TestLoadConfig_MalformedSettings(t *testing.T) {
	dir := isolateHome(t)
	writeSettings(t, dir, `{"listen_addr": `)

	_, err := loadConfig()
	assert.ErrorContains(t, err, "settings.json")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"refresh interval", func(c *Config) { c.RefreshInterval = "-1s" }, "invalid refresh interval"},
		{"hub buffer", func(c *Config) { c.HubBuffer = 0 }, "hub_buffer"},
		{"layout", func(c *Config) { c.Layout.MaxIterations = 0 }, "max_iterations"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}

func TestDiffConfigs(t *testing.T) {
	old := defaultConfig()
	next := old
	next.LogLevel = "debug"
	next.AdmissionRules = []string{"size(nodes) <= 5"}
	next.ListenAddr = ":1"
	next.Layout.Seed = 3

	d := diffConfigs(old, next)
	assert.True(t, d.LogLevelChanged)
	assert.True(t, d.RulesChanged)
	assert.Equal(t, []string{"listen_addr", "layout"}, d.RestartNeeded)

	assert.Equal(t, configDiff{}, diffConfigs(old, old))
}

func TestFlagsOverrideConfig(t *testing.T) {
	dir := isolateHome(t)
	t.Setenv("FLOWMON_LOG_LEVEL", "warn")

	root, a := newRoot(io.Discard)
	root.SetOut(io.Discard)
	root.SetArgs([]string{"version", "--log-level", "debug", "--seed", "9", "--db-path", filepath.Join(dir, "x.db")})
	require.NoError(t, root.Execute())

	assert.Equal(t, "debug", a.cfg.LogLevel)
	assert.Equal(t, uint64(9), a.cfg.Layout.Seed)
	assert.Equal(t, filepath.Join(dir, "x.db"), a.cfg.DBPath)
	assert.Equal(t, "DEBUG", a.level.Level().String())
}

func TestInvalidFlagValueFails(t *testing.T) {
	isolateHome(t)

	root, _ := newRoot(io.Discard)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"version", "--log-format", "yaml"})
	assert.ErrorContains(t, root.Execute(), "invalid log format")
}

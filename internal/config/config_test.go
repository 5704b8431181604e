package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlab/derelict/internal/executer"
	"github.com/agentlab/derelict/internal/vagrant"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, vagrant.DefaultPath(), cfg.InstancePath)
	assert.Equal(t, ".", cfg.ProjectPath)
	assert.Equal(t, executer.ModeLines, cfg.Mode())
	assert.Nil(t, cfg.Color)
}

func TestDefaultConfigPathUsesXDG(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("XDG_CONFIG_HOME is only honored on Unix-like systems")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "derelict", "config.yaml"), DefaultConfigPath())
}

func TestLoadAppliesFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `instance_path: /opt/vagrant-1.4
project_path: /srv/project
sudo: true
provider: vmware_fusion
color: false
output_mode: chars
no_buffer: true
log_level: debug
log_format: json
history_db: /tmp/history.db
history_limit: 5
history_retain: 50
metrics_file: /var/lib/node_exporter/derelict.prom
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigPath)
	assert.Equal(t, "/opt/vagrant-1.4", cfg.InstancePath)
	assert.Equal(t, "/srv/project", cfg.ProjectPath)
	assert.True(t, cfg.Sudo)
	assert.Equal(t, "vmware_fusion", cfg.Provider)
	require.NotNil(t, cfg.Color)
	assert.False(t, *cfg.Color)
	assert.Equal(t, executer.ModeChars, cfg.Mode())
	assert.True(t, cfg.NoBuffer)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/tmp/history.db", cfg.HistoryDB)
	assert.Equal(t, 5, cfg.HistoryLimit)
	assert.Equal(t, 50, cfg.HistoryRetain)
	assert.Equal(t, "/var/lib/node_exporter/derelict.prom", cfg.MetricsFile)
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: aws\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	defaults := DefaultConfig()
	assert.Equal(t, "aws", cfg.Provider)
	assert.Equal(t, defaults.InstancePath, cfg.InstancePath)
	assert.Equal(t, defaults.HistoryLimit, cfg.HistoryLimit)
	assert.Equal(t, defaults.HistoryRetain, cfg.HistoryRetain)
	assert.False(t, cfg.Sudo)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("instance_path: [unterminated\n"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("output_mode: words\n"), 0o600))
	_, err = Load(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output_mode")
}

func TestLoadHistoryRetainZeroKeepsEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history_retain: 0\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.HistoryRetain)
	assert.Positive(t, DefaultConfig().HistoryRetain)
}

func TestLoadOptionalMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadOptional(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigPath)
	assert.Equal(t, DefaultConfig().InstancePath, cfg.InstancePath)
}

func TestLoadOptionalPropagatesParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history_limit: lots\n"), 0o600))
	_, err := LoadOptional(path)
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("instance_path: /from/file\n"), 0o600))
	t.Setenv("DERELICT_INSTANCE_PATH", "/from/env")
	t.Setenv("DERELICT_PROJECT_PATH", "/srv/env-project")
	t.Setenv("DERELICT_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.InstancePath)
	assert.Equal(t, "/srv/env-project", cfg.ProjectPath)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"instance path", func(c *Config) { c.InstancePath = " " }, "instance_path"},
		{"project path", func(c *Config) { c.ProjectPath = "" }, "project_path"},
		{"output mode", func(c *Config) { c.OutputMode = "bytes" }, "output_mode"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"log level", func(c *Config) { c.LogLevel = "chatty" }, "log_level"},
		{"history limit", func(c *Config) { c.HistoryLimit = 0 }, "history_limit"},
		{"history retain", func(c *Config) { c.HistoryRetain = -1 }, "history_retain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %s error, got %v", tt.want, err)
			}
		})
	}
}

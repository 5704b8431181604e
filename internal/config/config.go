package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/agentlab/derelict/internal/executer"
	"github.com/agentlab/derelict/internal/vagrant"
)

const (
	appDir               = "derelict"
	configFileName       = "config.yaml"
	historyFileName      = "history.db"
	defaultHistoryLimit  = 20
	defaultHistoryRetain = 1000

	envInstancePath = "DERELICT_INSTANCE_PATH"
	envProjectPath  = "DERELICT_PROJECT_PATH"
	envLogLevel     = "DERELICT_LOG_LEVEL"
)

// Config holds the settings of the derelict command line tool.
type Config struct {
	ConfigPath   string
	InstancePath string
	ProjectPath  string
	Sudo         bool
	Provider     string
	Color        *bool
	OutputMode   string
	NoBuffer     bool
	LogLevel     string
	LogFormat    string
	HistoryDB    string
	HistoryLimit int
	// HistoryRetain caps the stored runs; zero keeps every run.
	HistoryRetain int
	MetricsFile   string
}

// FileConfig represents supported YAML config overrides.
type FileConfig struct {
	InstancePath  string `yaml:"instance_path"`
	ProjectPath   string `yaml:"project_path"`
	Sudo          *bool  `yaml:"sudo"`
	Provider      string `yaml:"provider"`
	Color         *bool  `yaml:"color"`
	OutputMode    string `yaml:"output_mode"`
	NoBuffer      *bool  `yaml:"no_buffer"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	HistoryDB     string `yaml:"history_db"`
	HistoryLimit  int    `yaml:"history_limit"`
	HistoryRetain *int   `yaml:"history_retain"`
	MetricsFile   string `yaml:"metrics_file"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/derelict/config.yaml, falling
// back to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDir, configFileName)
	}
	return filepath.Join(".config", appDir, configFileName)
}

func defaultHistoryDB() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, appDir, historyFileName)
	}
	return filepath.Join(".cache", appDir, historyFileName)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		ConfigPath:    DefaultConfigPath(),
		InstancePath:  vagrant.DefaultPath(),
		ProjectPath:   ".",
		OutputMode:    executer.ModeLines.String(),
		LogLevel:      "warn",
		LogFormat:     "text",
		HistoryDB:     defaultHistoryDB(),
		HistoryLimit:  defaultHistoryLimit,
		HistoryRetain: defaultHistoryRetain,
	}
}

// Load reads the config file at path (DefaultConfigPath when empty) on top of
// the defaults. A missing or invalid file is an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		cfg.ConfigPath = path
	}
	data, err := os.ReadFile(cfg.ConfigPath)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", cfg.ConfigPath, err)
	}
	return parse(cfg, data)
}

// LoadOptional is like Load but falls back to the defaults when the file does
// not exist.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	cfg = DefaultConfig()
	if path != "" {
		cfg.ConfigPath = path
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parse(cfg Config, data []byte) (Config, error) {
	var fileCfg FileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", cfg.ConfigPath, err)
	}
	applyFileConfig(&cfg, fileCfg)
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFileConfig(cfg *Config, fileCfg FileConfig) {
	if fileCfg.InstancePath != "" {
		cfg.InstancePath = fileCfg.InstancePath
	}
	if fileCfg.ProjectPath != "" {
		cfg.ProjectPath = fileCfg.ProjectPath
	}
	if fileCfg.Sudo != nil {
		cfg.Sudo = *fileCfg.Sudo
	}
	if fileCfg.Provider != "" {
		cfg.Provider = fileCfg.Provider
	}
	if fileCfg.Color != nil {
		color := *fileCfg.Color
		cfg.Color = &color
	}
	if fileCfg.OutputMode != "" {
		cfg.OutputMode = fileCfg.OutputMode
	}
	if fileCfg.NoBuffer != nil {
		cfg.NoBuffer = *fileCfg.NoBuffer
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if fileCfg.LogFormat != "" {
		cfg.LogFormat = fileCfg.LogFormat
	}
	if fileCfg.HistoryDB != "" {
		cfg.HistoryDB = fileCfg.HistoryDB
	}
	if fileCfg.HistoryLimit != 0 {
		cfg.HistoryLimit = fileCfg.HistoryLimit
	}
	if fileCfg.HistoryRetain != nil {
		cfg.HistoryRetain = *fileCfg.HistoryRetain
	}
	if fileCfg.MetricsFile != "" {
		cfg.MetricsFile = fileCfg.MetricsFile
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(envInstancePath)); v != "" {
		cfg.InstancePath = v
	}
	if v := strings.TrimSpace(os.Getenv(envProjectPath)); v != "" {
		cfg.ProjectPath = v
	}
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		cfg.LogLevel = v
	}
}

// Mode returns the parsed output mode.
func (c Config) Mode() executer.Mode {
	mode, err := executer.ParseMode(c.OutputMode)
	if err != nil {
		return executer.ModeLines
	}
	return mode
}

// Validate ensures required configuration values are present and valid.
func (c Config) Validate() error {
	if strings.TrimSpace(c.InstancePath) == "" {
		return fmt.Errorf("instance_path is required")
	}
	if strings.TrimSpace(c.ProjectPath) == "" {
		return fmt.Errorf("project_path is required")
	}
	if _, err := executer.ParseMode(c.OutputMode); err != nil {
		return fmt.Errorf("output_mode must be lines or chars: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level is invalid: %w", err)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive")
	}
	if c.HistoryRetain < 0 {
		return fmt.Errorf("history_retain must not be negative")
	}
	return nil
}

// ABOUTME: Shared CLI state: configuration, logger, observers and the vagrant instance.
// ABOUTME: Built once per invocation by the root command's pre-run hook.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentlab/derelict/internal/config"
	"github.com/agentlab/derelict/internal/history"
	"github.com/agentlab/derelict/internal/logging"
	"github.com/agentlab/derelict/internal/metrics"
	"github.com/agentlab/derelict/internal/vagrant"
)

var errHistoryDisabled = errors.New("run history is disabled")

type globalFlags struct {
	configPath   string
	instancePath string
	projectPath  string
	sudo         bool
	noColor      bool
	logLevel     string
	logFormat    string
	mode         string
	noBuffer     bool
	jsonOutput   bool
	noHistory    bool
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	runner vagrant.Runner // nil runs real processes

	flags    globalFlags
	cfg      config.Config
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	history  *history.Store
	instance *vagrant.Instance
	colors   palette
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, a *app, args []string) int {
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	if err == nil {
		return 0
	}
	return a.reportError(err)
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, warning, err := a.loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), a.flags, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: a.stderr})
	if err != nil {
		return err
	}
	a.logger = logger
	if warning != "" {
		logger.Warn(warning)
	}

	a.colors = palette{enabled: !a.flags.noColor && (cfg.Color == nil || *cfg.Color) && isTerminal(a.stdout)}
	a.metrics = metrics.NewMetrics()
	observers := []vagrant.Observer{a.metrics}
	if cfg.HistoryDB != "" && !a.flags.noHistory {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			logger.WithError(err).Warn("run history disabled")
		} else {
			a.history = store
			observers = append(observers, &history.Recorder{Store: store, Logger: logger, Redactor: newRedactor(), Retain: cfg.HistoryRetain})
		}
	}

	a.instance = &vagrant.Instance{
		Path:        cfg.InstancePath,
		Sudo:        cfg.Sudo,
		Provider:    cfg.Provider,
		Color:       cfg.Color,
		Mode:        cfg.Mode(),
		Runner:      a.runner,
		Logger:      logger,
		External:    logging.External(a.stdout),
		ExternalErr: logging.External(a.stderr),
		Observers:   observers,
	}
	return nil
}

// loadConfig reads --config when given, otherwise the optional default file.
// The returned string is a permission warning worth logging.
func (a *app) loadConfig() (config.Config, string, error) {
	path := a.flags.configPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultConfigPath()
	}
	var warning string
	if _, err := os.Stat(path); err == nil {
		warning, err = config.CheckConfigPermissions(path)
		if err != nil {
			return config.Config{}, "", err
		}
	}
	if explicit {
		cfg, err := config.Load(path)
		return cfg, warning, err
	}
	cfg, err := config.LoadOptional(path)
	return cfg, warning, err
}

func applyFlags(flags *pflag.FlagSet, values globalFlags, cfg *config.Config) {
	if flags.Changed("instance") {
		cfg.InstancePath = values.instancePath
	}
	if flags.Changed("project") {
		cfg.ProjectPath = values.projectPath
	}
	if flags.Changed("sudo") {
		cfg.Sudo = values.sudo
	}
	if flags.Changed("no-color") && values.noColor {
		color := false
		cfg.Color = &color
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = values.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = values.logFormat
	}
	if flags.Changed("mode") {
		cfg.OutputMode = values.mode
	}
	if flags.Changed("no-buffer") {
		cfg.NoBuffer = values.noBuffer
	}
}

// newRedactor scrubs the credentials vagrant and its providers read from the
// environment, in case they show up on a recorded command line.
func newRedactor() *history.Redactor {
	redactor := history.NewRedactor()
	for _, key := range []string{"VAGRANT_CLOUD_TOKEN", "ATLAS_TOKEN", "AWS_SECRET_ACCESS_KEY", "DIGITALOCEAN_TOKEN"} {
		redactor.AddValues(os.Getenv(key))
	}
	return redactor
}

func (a *app) projectPath() (string, error) {
	path, err := filepath.Abs(a.cfg.ProjectPath)
	if err != nil {
		return "", fmt.Errorf("resolve project path: %w", err)
	}
	return path, nil
}

// connect validates the installation and opens the project.
func (a *app) connect() (*vagrant.Connection, error) {
	if err := a.instance.Validate(); err != nil {
		return nil, err
	}
	path, err := a.projectPath()
	if err != nil {
		return nil, err
	}
	return a.instance.Connect(path)
}

func (a *app) close() error {
	var errs []error
	if a.metrics != nil {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.history.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close history: %w", err))
	}
	a.history = nil
	return errors.Join(errs...)
}

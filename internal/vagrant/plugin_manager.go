package vagrant

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/agentlab/derelict/internal/executer"
	"github.com/agentlab/derelict/internal/logging"
	"github.com/agentlab/derelict/internal/models"
	"github.com/agentlab/derelict/internal/parser"
)

// PluginOptions tunes plugin install, uninstall and update.
type PluginOptions struct {
	Log bool
}

// PluginManager lists and manages the plugins of an installation.
type PluginManager struct {
	Instance *Instance

	mu      sync.Mutex
	plugins []models.Plugin
}

func (m *PluginManager) log() logrus.FieldLogger {
	return logging.Component(m.Instance.Logger, "plugin_manager")
}

// List returns the installed plugins. The result is cached until a plugin is
// installed, uninstalled or updated.
func (m *PluginManager) List(ctx context.Context) ([]models.Plugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.plugins != nil {
		return m.plugins, nil
	}
	m.log().Info("retrieving plugin list")
	result, err := m.Instance.ExecuteChecked(ctx, ExecOptions{}, "plugin", "list")
	if err != nil {
		return nil, err
	}
	plugins, err := parser.NewPluginList(result.Stdout, m.Instance.Logger).Plugins()
	if err != nil {
		return nil, err
	}
	m.plugins = plugins
	return plugins, nil
}

// Fetch returns the installed plugin called name.
func (m *PluginManager) Fetch(ctx context.Context, name string) (models.Plugin, error) {
	plugins, err := m.List(ctx)
	if err != nil {
		return models.Plugin{}, err
	}
	for _, plugin := range plugins {
		if plugin.Name == name {
			return plugin, nil
		}
	}
	return models.Plugin{}, &PluginNotFoundError{Name: name}
}

// Installed reports whether name is installed. An empty version matches any
// installed version.
func (m *PluginManager) Installed(ctx context.Context, name, version string) (bool, error) {
	plugin, err := m.Fetch(ctx, name)
	if errors.Is(err, ErrPluginNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return version == "" || plugin.Version == version, nil
}

// Install installs a plugin, pinned to version when it is not empty.
func (m *PluginManager) Install(ctx context.Context, name, version string, opts PluginOptions) (*executer.Result, error) {
	m.log().WithField("plugin", name).WithField("version", version).Info("installing plugin")
	args := []string{"install", name}
	if version != "" {
		args = append(args, "--plugin-version", version)
	}
	return m.run(ctx, opts, args...)
}

// Uninstall removes a plugin.
func (m *PluginManager) Uninstall(ctx context.Context, name string, opts PluginOptions) (*executer.Result, error) {
	m.log().WithField("plugin", name).Info("uninstalling plugin")
	return m.run(ctx, opts, "uninstall", name)
}

// Update updates a plugin to its latest version.
func (m *PluginManager) Update(ctx context.Context, name string, opts PluginOptions) (*executer.Result, error) {
	m.log().WithField("plugin", name).Info("updating plugin")
	return m.run(ctx, opts, "update", name)
}

func (m *PluginManager) run(ctx context.Context, opts PluginOptions, args ...string) (*executer.Result, error) {
	result, err := m.Instance.ExecuteChecked(ctx, ExecOptions{Log: opts.Log}, "plugin", args...)
	if err != nil {
		return result, err
	}
	m.mu.Lock()
	m.plugins = nil
	m.mu.Unlock()
	return result, nil
}

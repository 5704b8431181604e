package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentlab/derelict/internal/executer"
	"github.com/agentlab/derelict/internal/vagrant"
)

type pluginJSON struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func newPluginCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage vagrant plugins",
	}
	cmd.AddCommand(
		newPluginListCommand(a),
		newPluginInstallCommand(a),
		newPluginRunCommand(a, "uninstall", "Uninstall a plugin", (*vagrant.PluginManager).Uninstall),
		newPluginRunCommand(a, "update", "Update a plugin", (*vagrant.PluginManager).Update),
	)
	return cmd
}

func (a *app) plugins() (*vagrant.PluginManager, error) {
	if err := a.instance.Validate(); err != nil {
		return nil, err
	}
	return a.instance.Plugins(), nil
}

func newPluginListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := a.plugins()
			if err != nil {
				return err
			}
			plugins, err := manager.List(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonOutput {
				out := make([]pluginJSON, 0, len(plugins))
				for _, p := range plugins {
					out = append(out, pluginJSON{Name: p.Name, Version: p.Version})
				}
				return writeJSON(a.stdout, out)
			}
			w := newTable(a.stdout, "NAME", "VERSION")
			for _, p := range plugins {
				fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Version)
			}
			return w.Flush()
		},
	}
}

func newPluginInstallCommand(a *app) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "install NAME",
		Short: "Install a plugin unless it is already present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := a.plugins()
			if err != nil {
				return err
			}
			name := args[0]
			installed, err := manager.Installed(cmd.Context(), name, version)
			if err != nil {
				return err
			}
			if installed {
				fmt.Fprintf(a.stdout, "%s plugin %s is already installed\n", a.colors.success("==>"), name)
				return nil
			}
			if _, err := manager.Install(cmd.Context(), name, version, vagrant.PluginOptions{Log: true}); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s plugin %s installed\n", a.colors.success("==>"), name)
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "Install this exact version")
	return cmd
}

type pluginRunFunc func(m *vagrant.PluginManager, ctx context.Context, name string, opts vagrant.PluginOptions) (*executer.Result, error)

func newPluginRunCommand(a *app, use, short string, run pluginRunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := a.plugins()
			if err != nil {
				return err
			}
			if _, err := run(manager, cmd.Context(), args[0], vagrant.PluginOptions{Log: true}); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s plugin %s: %s done\n", a.colors.success("==>"), args[0], use)
			return nil
		},
	}
}

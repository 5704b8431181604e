package main

import (
	"github.com/spf13/cobra"

	"github.com/agentlab/derelict/internal/vagrant"
)

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "derelict",
		Short:         "Drive a Vagrant installation",
		Long:          "derelict runs vagrant commands against a project, parses their output and records every run.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	cobra.EnableCommandSorting = false

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.configPath, "config", "", "Path to config file (default $XDG_CONFIG_HOME/derelict/config.yaml)")
	flags.StringVar(&a.flags.instancePath, "instance", "", "Vagrant installation directory")
	flags.StringVarP(&a.flags.projectPath, "project", "C", "", "Project directory containing the Vagrantfile")
	flags.BoolVar(&a.flags.sudo, "sudo", false, "Run vagrant through sudo")
	flags.BoolVar(&a.flags.noColor, "no-color", false, "Disable colored output for derelict and vagrant")
	flags.StringVar(&a.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.flags.logFormat, "log-format", "", "Log format (text or json)")
	flags.StringVar(&a.flags.mode, "mode", "", "Output relay granularity (lines or chars)")
	flags.BoolVar(&a.flags.noBuffer, "no-buffer", false, "Do not buffer output of passthrough commands")
	flags.BoolVar(&a.flags.jsonOutput, "json", false, "Output json")
	flags.BoolVar(&a.flags.noHistory, "no-history", false, "Do not record this invocation in the run history")

	_ = root.RegisterFlagCompletionFunc("mode", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"lines", "chars"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(newStatusCommand(a))
	for _, action := range vagrant.Actions() {
		root.AddCommand(newActionCommand(a, action))
	}
	root.AddCommand(
		newBoxCommand(a),
		newPluginCommand(a),
		newExecCommand(a),
		newHistoryCommand(a),
		newDoctorCommand(a),
		newVersionCommand(a),
	)
	return root
}

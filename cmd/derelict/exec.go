package main

import (
	"github.com/spf13/cobra"

	"github.com/agentlab/derelict/internal/vagrant"
)

func newExecCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec SUBCOMMAND [ARGS...]",
		Short: "Run any vagrant subcommand in the project directory",
		Long: "Run any vagrant subcommand in the project directory, relaying its output.\n" +
			"The exit status of vagrant becomes the exit status of derelict.",
		Example: "  derelict exec -- ssh-config web\n  derelict exec box outdated",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.connect()
			if err != nil {
				return err
			}
			result, err := conn.Execute(cmd.Context(), vagrant.ExecOptions{Log: true, NoBuffer: a.cfg.NoBuffer}, args[0], args[1:]...)
			if err != nil {
				return err
			}
			if result.Succeeded() {
				return nil
			}
			code := 1
			if result.ExitStatus != nil && *result.ExitStatus > 0 {
				code = *result.ExitStatus
			}
			return &exitError{code: code, silent: true}
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentlab/derelict/internal/buildinfo"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print derelict and vagrant versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := buildinfo.Get()
			vagrantVersion, vagrantErr := a.instance.Version(cmd.Context())
			if a.flags.jsonOutput {
				payload := map[string]any{"derelict": info}
				if vagrantErr != nil {
					payload["vagrant_error"] = vagrantErr.Error()
				} else {
					payload["vagrant"] = vagrantVersion
				}
				return writeJSON(a.stdout, payload)
			}
			fmt.Fprintf(a.stdout, "derelict %s (commit %s, built %s, %s)\n", info.Version, info.Commit, info.Date, info.GoVersion)
			if vagrantErr != nil {
				fmt.Fprintf(a.stdout, "vagrant  unavailable: %v\n", vagrantErr)
				return nil
			}
			fmt.Fprintf(a.stdout, "vagrant  %s\n", vagrantVersion)
			return nil
		},
	}
}

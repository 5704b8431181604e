package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentlab/derelict/internal/vagrant"
)

// newActionCommand builds the command for one lifecycle action. Without
// arguments the action runs against every machine of the project.
func newActionCommand(a *app, action vagrant.Action) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   string(action) + " [VM...]",
		Short: action.Summary(),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.connect()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var machines []*vagrant.VirtualMachine
			if len(args) == 0 {
				status, err := conn.Status(ctx)
				if err != nil {
					return err
				}
				names, err := status.VMNames()
				if err != nil {
					return err
				}
				for _, name := range names {
					machines = append(machines, conn.Machine(name))
				}
			}
			for _, name := range args {
				vm, err := conn.VM(ctx, name)
				if err != nil {
					return err
				}
				machines = append(machines, vm)
			}

			opts := vagrant.ActionOptions{Log: !a.flags.jsonOutput, Provider: provider}
			for _, vm := range machines {
				if !a.flags.jsonOutput {
					fmt.Fprintf(a.stdout, "%s %s\n", a.colors.header("==> "+vm.Name+":"), action)
				}
				if _, err := vm.Run(ctx, action, opts); err != nil {
					return err
				}
			}
			return a.reportStates(cmd, machines)
		},
	}
	if action == vagrant.ActionUp {
		cmd.Flags().StringVar(&provider, "provider", "", "Provider to bring the machine up with")
	}
	return cmd
}

func (a *app) reportStates(cmd *cobra.Command, machines []*vagrant.VirtualMachine) error {
	out := make([]machineJSON, 0, len(machines))
	for _, vm := range machines {
		state, err := vm.State(cmd.Context())
		if err != nil {
			return err
		}
		if a.flags.jsonOutput {
			out = append(out, machineJSON{Name: vm.Name, State: string(state)})
			continue
		}
		fmt.Fprintf(a.stdout, "%s %s is %s\n", a.colors.success("==>"), vm.Name, a.colors.state(state))
	}
	if a.flags.jsonOutput {
		return writeJSON(a.stdout, out)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentlab/derelict/internal/models"
)

type machineJSON struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Provider string `json:"provider"`
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [VM]",
		Short: "Show the state of the project's machines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.connect()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if len(args) == 1 {
				vm, err := conn.VM(ctx, args[0])
				if err != nil {
					return err
				}
				state, err := vm.State(ctx)
				if err != nil {
					return err
				}
				if a.flags.jsonOutput {
					return writeJSON(a.stdout, map[string]string{"name": vm.Name, "state": string(state)})
				}
				fmt.Fprintf(a.stdout, "%s: %s\n", vm.Name, a.colors.state(state))
				return nil
			}

			status, err := conn.Status(ctx)
			if err != nil {
				return err
			}
			machines, err := status.Machines()
			if err != nil {
				return err
			}
			return a.printMachines(machines)
		},
	}
}

func (a *app) printMachines(machines []models.Machine) error {
	if a.flags.jsonOutput {
		out := make([]machineJSON, 0, len(machines))
		for _, m := range machines {
			out = append(out, machineJSON{Name: m.Name, State: string(m.State), Provider: m.Provider})
		}
		return writeJSON(a.stdout, out)
	}
	w := newTable(a.stdout, "NAME", "PROVIDER", "STATE")
	for _, m := range machines {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, orDash(m.Provider), a.colors.state(m.State))
	}
	return w.Flush()
}

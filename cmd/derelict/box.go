package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentlab/derelict/internal/models"
	"github.com/agentlab/derelict/internal/vagrant"
)

type boxJSON struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

func newBoxCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "box",
		Short: "Manage installed boxes",
	}
	cmd.AddCommand(newBoxListCommand(a), newBoxShowCommand(a), newBoxAddCommand(a), newBoxRemoveCommand(a))
	return cmd
}

func (a *app) boxes() (*vagrant.BoxManager, error) {
	if err := a.instance.Validate(); err != nil {
		return nil, err
	}
	return a.instance.Boxes(), nil
}

func newBoxListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed boxes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := a.boxes()
			if err != nil {
				return err
			}
			boxes, err := manager.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.printBoxes(boxes)
		},
	}
}

func newBoxShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME PROVIDER",
		Short: "Check that a box is installed for a provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := a.boxes()
			if err != nil {
				return err
			}
			box, err := manager.Fetch(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.printBoxes([]models.Box{box})
		},
	}
}

func newBoxAddCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "add NAME SOURCE",
		Short: "Download and install a box",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := a.boxes()
			if err != nil {
				return err
			}
			if _, err := manager.Add(cmd.Context(), args[0], args[1], vagrant.BoxAddOptions{Force: force, Log: true}); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s box %s added\n", a.colors.success("==>"), args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing box")
	return cmd
}

func newBoxRemoveCommand(a *app) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove an installed box",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := a.boxes()
			if err != nil {
				return err
			}
			if _, err := manager.Remove(cmd.Context(), args[0], vagrant.BoxRemoveOptions{Provider: provider, Log: true}); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s box %s removed\n", a.colors.success("==>"), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Only remove the box for this provider")
	return cmd
}

func (a *app) printBoxes(boxes []models.Box) error {
	if a.flags.jsonOutput {
		out := make([]boxJSON, 0, len(boxes))
		for _, box := range boxes {
			out = append(out, boxJSON{Name: box.Name, Provider: box.Provider})
		}
		return writeJSON(a.stdout, out)
	}
	w := newTable(a.stdout, "NAME", "PROVIDER")
	for _, box := range boxes {
		fmt.Fprintf(w, "%s\t%s\n", box.Name, box.Provider)
	}
	return w.Flush()
}

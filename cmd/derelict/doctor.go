package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type doctorCheck struct {
	Section string `json:"section"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newDoctorCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the vagrant installation, project and run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checks := a.runDoctor(cmd.Context())
			failed := 0
			for _, check := range checks {
				if check.Error != "" {
					failed++
				}
			}
			if a.flags.jsonOutput {
				if err := writeJSON(a.stdout, checks); err != nil {
					return err
				}
			} else {
				w := newTable(a.stdout, "CHECK", "RESULT", "DETAIL")
				for _, check := range checks {
					result, detail := a.colors.success("ok"), check.Detail
					if check.Error != "" {
						result, detail = a.colors.failure("fail"), check.Error
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", check.Section, result, orDash(detail))
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}
			if failed > 0 {
				return &exitError{code: 1, silent: true}
			}
			return nil
		},
	}
}

func (a *app) runDoctor(ctx context.Context) []doctorCheck {
	checks := []doctorCheck{{Section: "config", Detail: a.cfg.ConfigPath}}

	install := doctorCheck{Section: "installation", Detail: a.instance.BinaryPath()}
	if err := a.instance.Validate(); err != nil {
		install.Error = err.Error()
		return append(checks, install)
	}
	checks = append(checks, install)

	version := doctorCheck{Section: "vagrant version"}
	if v, err := a.instance.Version(ctx); err != nil {
		version.Error = err.Error()
	} else {
		version.Detail = v
	}
	checks = append(checks, version)

	plugins := doctorCheck{Section: "plugins"}
	if list, err := a.instance.Plugins().List(ctx); err != nil {
		plugins.Error = err.Error()
	} else {
		plugins.Detail = fmt.Sprintf("%d installed", len(list))
	}
	checks = append(checks, plugins)

	project := doctorCheck{Section: "project"}
	if conn, err := a.connect(); err != nil {
		project.Error = err.Error()
	} else if status, err := conn.Status(ctx); err != nil {
		project.Error = err.Error()
	} else if names, err := status.VMNames(); err != nil {
		project.Error = err.Error()
	} else {
		project.Detail = fmt.Sprintf("%s (%d machines)", conn.Path, len(names))
	}
	checks = append(checks, project)

	hist := doctorCheck{Section: "history"}
	switch {
	case a.history != nil:
		if count, err := a.history.Count(ctx); err != nil {
			hist.Error = err.Error()
		} else {
			hist.Detail = fmt.Sprintf("%s (%d runs)", a.history.Path, count)
		}
	case a.flags.noHistory || a.cfg.HistoryDB == "":
		hist.Detail = "disabled"
	default:
		hist.Error = "could not open " + a.cfg.HistoryDB
	}
	return append(checks, hist)
}

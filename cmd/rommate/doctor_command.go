package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rommate/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, reference databases and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			color := shouldColorize(out)

			tbl := newTextTable("Check", "Status", "Detail")
			failures := 0
			for _, r := range preflight.RunAll(cfg) {
				if !r.Passed {
					failures++
				}
				tbl.add(r.Name, checkMark(r.Passed, false, color), r.Detail)
			}

			for _, dep := range preflight.CheckSystemDeps(cfg) {
				detail := dep.Description
				if !dep.Available {
					detail = fmt.Sprintf("%s (%s)", dep.Detail, dep.Description)
					if !dep.Optional {
						failures++
					}
				}
				tbl.add(dep.Name, checkMark(dep.Available, dep.Optional, color), detail)
			}

			fmt.Fprintln(out, tbl)

			if verbose {
				for _, cov := range preflight.CheckDatabases(nil, cfg) {
					if len(cov.Missing) == 0 {
						continue
					}
					fmt.Fprintf(out, "\nNo %s database for: %s\n", cov.Family, strings.Join(cov.MissingKeys(), ", "))
				}
			}
			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List systems without a reference database")
	return cmd
}

func checkMark(passed, optional, color bool) string {
	switch {
	case passed:
		return colorize("OK", ansiGreen, color)
	case optional:
		return colorize("WARN", ansiYellow, color)
	default:
		return colorize("ERROR", ansiRed, color)
	}
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rommate/internal/history"
	"rommate/internal/verify"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded scans",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryRemoveCommand(ctx))
	return historyCmd
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent scans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			scans, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				if scans == nil {
					scans = []history.Scan{}
				}
				return writeJSON(cmd, scans)
			}
			out := cmd.OutOrStdout()
			if len(scans) == 0 {
				fmt.Fprintln(out, "No scans recorded")
				return nil
			}
			tbl := newTextTable("ID", "Started", "State", "Files", "OK", "Attention", "Failed", "Folder").
				align(alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft)
			var files, ok, attention, failed int
			for _, sc := range scans {
				tbl.add(
					sc.ID[:8],
					sc.StartedAt.Local().Format("2006-01-02 15:04"),
					string(sc.State),
					strconv.Itoa(sc.Processed),
					strconv.Itoa(sc.Verified),
					strconv.Itoa(sc.Attention),
					strconv.Itoa(sc.Failed),
					truncate(sc.Root, 48),
				)
				files += sc.Processed
				ok += sc.Verified
				attention += sc.Attention
				failed += sc.Failed
			}
			tbl.total(fmt.Sprintf("%d scan(s)", len(scans)), "", "",
				strconv.Itoa(files), strconv.Itoa(ok), strconv.Itoa(attention), strconv.Itoa(failed), "")
			fmt.Fprintln(out, tbl)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum scans to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit scans as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var status string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <scan-id>",
		Short: "Show the results of one scan",
		Long:  "Show the results of one scan. A unique prefix of the scan ID is enough.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			sc, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			results, err := store.Results(cmd.Context(), sc.ID)
			if err != nil {
				return err
			}
			if status != "" {
				filtered := results[:0]
				for _, r := range results {
					if string(r.Status) == status || string(r.Status.Group()) == status {
						filtered = append(filtered, r)
					}
				}
				results = filtered
			}
			if jsonOutput {
				if results == nil {
					results = []verify.Result{}
				}
				return writeJSON(cmd, struct {
					Scan    history.Scan    `json:"scan"`
					Results []verify.Result `json:"results"`
				}{sc, results})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scan %s\n", sc.ID)
			fmt.Fprintf(out, "  Folder:   %s\n", sc.Root)
			fmt.Fprintf(out, "  Started:  %s\n", sc.StartedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "  State:    %s\n", sc.State)
			if sc.FinishedAt != nil {
				fmt.Fprintf(out, "  Duration: %s\n", formatDuration(sc.Duration()))
			}
			if sc.Error != "" {
				fmt.Fprintf(out, "  Error:    %s\n", sc.Error)
			}
			fmt.Fprintf(out, "  Files:    %d of %d (verified %d, attention %d, failed %d)\n\n",
				sc.Processed, sc.Candidates, sc.Verified, sc.Attention, sc.Failed)
			color := shouldColorize(out)
			for _, r := range results {
				fmt.Fprintln(out, resultLine(r, color))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show one status (e.g. unknown) or group (verified, attention, failed)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the scan and its results as JSON")
	return cmd
}

func newHistoryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <scan-id>",
		Short: "Delete one recorded scan and its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			sc, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), sc.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed scan %s (%s)\n", sc.ID, sc.Root)
			return nil
		},
	}
}

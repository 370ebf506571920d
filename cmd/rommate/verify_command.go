package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"rommate/internal/config"
	"rommate/internal/verify"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify <file>...",
		Short: "Verify individual files",
		Long: `Verify individual ROM files, archives, CUE sheets or CHD images.

Each file gets the same verdict it would receive during a folder scan.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.newEngine()
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}

			results := make([]verify.Result, 0, len(args))
			failed := 0
			color := shouldColorize(cmd.OutOrStdout())
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				r := engine.Verify(runCtx, path)
				results = append(results, r)
				if r.Status.Group() == verify.GroupFailed {
					failed++
				}
				if jsonOutput {
					continue
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, resultLine(r, color))
				for _, line := range r.Details {
					fmt.Fprintf(out, "    %s\n", line)
				}
				if r.CRC32 != "" {
					fmt.Fprintf(out, "    crc32=%s md5=%s sha1=%s\n", r.CRC32, r.MD5, r.SHA1)
				}
			}
			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			}
			if failed > 0 {
				return &verifyProblemError{failed: failed}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit results as JSON")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"rommate/internal/config"
	"rommate/internal/conversion"
	"rommate/internal/services"
	"rommate/internal/services/chdman"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var deleteOriginals bool

	cmd := &cobra.Command{
		Use:   "convert <dir>",
		Short: "Compress disc images in a folder to CHD",
		Long: `Compress every .cue, .gdi, .cdi and .iso image directly inside a folder
to CHD with chdman. Images that already have a CHD next to them are skipped.

With --delete-originals the source image, and for CUE sheets every
referenced track file, is removed once its CHD has been written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return services.Wrap(services.ErrNotFound, "convert", "start", dir+" is not a folder", err)
			}
			client := ctx.chdmanClient()
			if client == nil || !client.Available() {
				return services.Wrap(services.ErrExternalTool, "convert", "start", "install chdman (MAME tools) or set chdman.binary", chdman.ErrNotInstalled)
			}

			del := deleteOriginals || cfg.Chdman.DeleteOriginals
			converter := conversion.New(afero.NewOsFs(), client, del, ctx.log())

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			runCtx, stop := signal.NotifyContext(runCtx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			color := shouldColorize(out)
			start := time.Now()
			summary, err := converter.ConvertFolder(runCtx, dir, &conversion.Observer{
				File: func(current, total int, name string) {
					fmt.Fprintf(out, "[%d/%d] %s\n", current, total, name)
				},
				Log: func(message string) {
					fmt.Fprintf(out, "  %s\n", message)
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, colorize(fmt.Sprintf("Converted: %d  Skipped: %d  Failed: %d  (%s)",
				summary.Converted, summary.Skipped, summary.Failed, elapsed(start)), summaryColor(summary.Failed), color))
			if summary.Canceled {
				return services.Wrap(services.ErrCanceled, "convert", "run", "interrupted", nil)
			}
			if summary.Failed > 0 {
				return &verifyProblemError{failed: summary.Failed}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteOriginals, "delete-originals", false, "Remove source images after a successful conversion")
	return cmd
}

func summaryColor(failed int) string {
	if failed > 0 {
		return ansiRed
	}
	return ansiGreen
}

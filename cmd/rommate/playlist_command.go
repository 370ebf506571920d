package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"rommate/internal/config"
	"rommate/internal/playlist"
	"rommate/internal/services"
)

func newPlaylistCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "playlist <dir>",
		Short: "Create M3U playlists for multi-disc games",
		Long: `Create an M3U playlist for every multi-disc game directly inside a folder.

Discs are grouped by the title before "(Disc N)", "[Disc N]" or "Disc N".
With --format auto the playlists reference CHD files when the folder has any,
otherwise the original images. Existing playlists are never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return services.Wrap(services.ErrNotFound, "playlist", "start", dir+" is not a folder", err)
			}
			choice, err := playlist.ParseChoice(format)
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}

			out := cmd.OutOrStdout()
			creator := playlist.NewCreator(afero.NewOsFs(), ctx.log())
			summary, err := creator.CreateAll(runCtx, dir, choice, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, playlist.ErrNoImages) {
				fmt.Fprintln(out, "No disc images found")
				return nil
			}
			if err != nil {
				return err
			}
			if len(summary.Outcomes) > 0 {
				tbl := newTextTable("Game", "Discs", "Playlist").align(alignLeft, alignRight, alignLeft)
				for _, o := range summary.Outcomes {
					state := "created"
					switch {
					case o.Err != nil:
						state = "failed"
					case !o.Created:
						state = "exists"
					}
					tbl.add(o.Game.Title, fmt.Sprintf("%d", len(o.Game.Discs)), state)
				}
				fmt.Fprintln(out, tbl)
			}
			fmt.Fprintf(out, "Created: %d  Skipped: %d  Mixed formats: %d\n", summary.Created, summary.Skipped, len(summary.Mixed))
			if summary.Failed > 0 {
				return fmt.Errorf("%d playlist(s) could not be written", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "auto", "Image format to reference: auto, chd or original")
	return cmd
}

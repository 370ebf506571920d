package main

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"rommate/internal/config"
	"rommate/internal/header"
	"rommate/internal/romfile"
	"rommate/internal/services"
	"rommate/internal/systems"
)

func newFixHeaderCommand(ctx *commandContext) *cobra.Command {
	var output string
	var systemKey string

	cmd := &cobra.Command{
		Use:   "fix-header <file>",
		Short: "Write a copy of a ROM without its copier header",
		Long: `Write a copy of a ROM without its external copier header.

The original is never modified. By default the copy goes to a "headerless"
folder next to the original; the copy is re-read and checked before the
command reports success.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			system, err := resolveSystem(path, systemKey)
			if err != nil {
				return err
			}
			fsys := afero.NewOsFs()
			src, err := romfile.Open(fsys, path, nil)
			if err != nil {
				return services.Wrap(services.ErrNotFound, "fix-header", "open", path, err)
			}
			out := cmd.OutOrStdout()
			if src.Kind() != romfile.KindFile {
				return services.Wrap(services.ErrValidation, "fix-header", "open", "extract the ROM from the archive first", nil)
			}
			size := header.Detect(src, system)
			if size == 0 {
				fmt.Fprintf(out, "No external header detected in %s (%s)\n", src.Name(), system.Label())
				return nil
			}

			dst := strings.TrimSpace(output)
			if dst == "" {
				dst = header.DefaultOutput(path)
			} else if dst, err = config.ExpandPath(dst); err != nil {
				return err
			}
			written, err := header.Strip(fsys, path, dst, size)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d-byte %s header\n", size, system.Label())
			fmt.Fprintf(out, "Wrote %s (%d bytes, verified)\n", dst, written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default: headerless/<name> next to the original)")
	cmd.Flags().StringVar(&systemKey, "system", "", "System key when the extension is ambiguous (e.g. snes, nes, pce)")
	return cmd
}

func resolveSystem(path, key string) (systems.System, error) {
	if key = strings.TrimSpace(key); key != "" {
		system, err := systems.Parse(key)
		if err != nil {
			return systems.Unknown, services.Wrap(services.ErrValidation, "fix-header", "system", key, err)
		}
		return system, nil
	}
	system, ok := systems.Detect(path)
	if !ok {
		return systems.Unknown, services.Wrap(services.ErrValidation, "fix-header", "system", "unrecognised extension; pass --system", nil)
	}
	return system, nil
}

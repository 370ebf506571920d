package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"rommate/internal/config"
	"rommate/internal/digestcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the checksum cache",
		Long: `Inspect and manage the checksum cache.

When digest_cache.enabled is set, computed checksums are stored keyed by
path, archive entry, size and modification time so unchanged files are not
re-hashed on the next scan.

Commands:
  list     - List cached checksums, newest first
  remove   - Forget every cached checksum for a file
  clear    - Remove all cached entries`,
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

var errCacheDisabled = errors.New("checksum cache is disabled (set digest_cache.enabled = true)")

func openDigestCache(ctx *commandContext) (*digestcache.Cache, error) {
	if _, err := ctx.ensureConfig(); err != nil {
		return nil, err
	}
	cache := ctx.digestCache()
	if cache == nil {
		return nil, errCacheDisabled
	}
	return cache, nil
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached checksums",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openDigestCache(ctx)
			if err != nil {
				return err
			}
			entries := cache.List()
			if jsonOutput {
				if entries == nil {
					entries = []digestcache.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Checksum cache: empty")
				return nil
			}
			fmt.Fprintf(out, "Checksum cache: %d entries (%s)\n\n", len(entries), cache.Path())
			tbl := newTextTable("#", "File", "Skip", "CRC32", "Cached").
				align(alignRight, alignLeft, alignRight, alignLeft, alignLeft)
			for i, e := range entries {
				tbl.add(
					fmt.Sprintf("%d", i+1),
					truncate(filepath.Base(e.Path), 40),
					fmt.Sprintf("%d", e.Skip),
					e.CRC32,
					e.CachedAt.Local().Format("2006-01-02"),
				)
			}
			fmt.Fprintln(out, tbl)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit entries as JSON")
	return cmd
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <file>",
		Short: "Forget cached checksums for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openDigestCache(ctx)
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			n, err := cache.Remove(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached entr%s for %s\n", n, plural(n, "y", "ies"), path)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached checksums",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openDigestCache(ctx)
			if err != nil {
				return err
			}
			n := cache.Count()
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached entr%s\n", n, plural(n, "y", "ies"))
			return nil
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

package commands

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meigma/wad"
	"github.com/meigma/wad/hashlist"
	"github.com/meigma/wad/internal/config"
)

func newPackCmd(a *app) *cobra.Command {
	var hashesOut string
	cmd := &cobra.Command{
		Use:   "pack <dir> <archive>",
		Short: "Build an archive from a directory",
		Long: `Build an archive from every regular file under a directory.

Entry paths are the slash-separated paths relative to the directory.
Because archives store only path hashes, --hashes-out can save the
paths to a registry file for later browsing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, out := args[0], args[1]

			reg := hashlist.New()
			var entries []wad.WriteEntry
			err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.Type().IsRegular() {
					return nil
				}
				rel, err := filepath.Rel(dir, path)
				if err != nil {
					return err
				}
				name := filepath.ToSlash(rel)
				if _, err := reg.Add(name); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				entries = append(entries, wad.WriteEntry{Path: name, Data: data})
				return nil
			})
			if err != nil {
				return err
			}

			opts := append(a.cfg.WriteOptions(), wad.WithWriteLogger(a.logger))
			if err := wad.WriteFile(cmd.Context(), out, entries, opts...); err != nil {
				return err
			}
			if hashesOut != "" {
				if err := writeRegistry(hashesOut, reg); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "packed %d entries into %s\n", len(entries), out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&hashesOut, "hashes-out", "", "write the entry paths to this registry file")
	flags.String("compression", "", "default compression: none, gzip or zstd")
	flags.Int("level", 0, "compression level (0 uses the codec default)")
	flags.Bool("dedup", true, "store identical files once, as redirects")
	bind(a.v, flags, "compression", config.KeyCompression)
	bind(a.v, flags, "level", config.KeyLevel)
	bind(a.v, flags, "dedup", config.KeyDeduplicate)
	return cmd
}

func writeRegistry(path string, reg *hashlist.Registry) error {
	f, err := os.Create(path) //nolint:gosec // user-provided output path
	if err != nil {
		return err
	}
	if _, err := reg.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

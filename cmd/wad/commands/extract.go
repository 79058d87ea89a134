package commands

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/meigma/wad/internal/batch"
	"github.com/meigma/wad/tree"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		dest      string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "extract <archive> [folder]",
		Short: "Extract entries to a directory",
		Long: `Extract entries to a directory, laid out as the folder tree.

Entries with no known path are written under unknown/ named by hash.
Existing files are skipped unless --overwrite is set.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()
			reg, err := a.registry()
			if err != nil {
				return err
			}

			root := ar.Tree(reg)
			if len(args) == 2 {
				n, ok := root.Lookup(args[1])
				if !ok {
					return fmt.Errorf("%s: no such folder", args[1])
				}
				folder, ok := n.(*tree.Folder)
				if !ok {
					return fmt.Errorf("%s: not a folder", args[1])
				}
				root = folder
			}

			sink := batch.NewFileSink(dest, batch.WithOverwrite(overwrite))
			var files []*tree.File
			var sizes []uint64
			for f := range root.AllFiles() {
				if !sink.ShouldWrite(f.Path()) {
					continue
				}
				files = append(files, f)
				sizes = append(sizes, uint64(f.Entry.UncompressedSize))
			}
			skipped := root.FileCount() - len(files)
			workers := batch.Workers(a.cfg.Workers, len(files), batch.TotalBytes(sizes...))

			var written atomic.Int64
			err = batch.Run(cmd.Context(), len(files), workers, func(_ context.Context, i int) error {
				f := files[i]
				content, err := ar.ReadEntry(*f.Entry)
				if err != nil {
					return fmt.Errorf("%s: %w", f.Path(), err)
				}
				if err := sink.Put(f.Path(), content.Data); err != nil {
					return err
				}
				written.Add(1)
				return nil
			})
			if err != nil {
				return err
			}

			a.logger.Debug("extracted", "written", written.Load(), "skipped", skipped, "workers", workers)
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d entries to %s (%d skipped)\n", written.Load(), dest, skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "output", "o", ".", "destination directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing files")
	return cmd
}
